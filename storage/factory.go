package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/scanview/report-store-backend/interfaces"
)

// schemeEntry binds one descriptor scheme to its display name and
// constructor. The table is checked in order, most specific prefix first;
// ProviderType must stay in sync with it and therefore reads the same table.
type schemeEntry struct {
	prefix      string
	displayName string
	create      func(f *ProviderFactory, rest, prefix string) (interfaces.StorageProvider, error)
}

var schemeTable = []schemeEntry{
	{"minio://", "MinIO", (*ProviderFactory).createMinioProvider},
	{"vault://", "HashiCorp Vault", (*ProviderFactory).createVaultProvider},
	{"ipfs://", "IPFS", (*ProviderFactory).createIPFSProvider},
	{"file://", "Local Filesystem", (*ProviderFactory).createFileProvider},
	{"s3://", "Amazon S3", (*ProviderFactory).createS3Provider},
}

// localDisplayName is used for descriptors matching no scheme, which are
// treated as local filesystem root paths.
const localDisplayName = "Local Filesystem"

// ProviderFactory creates storage providers from location descriptors.
type ProviderFactory struct {
	log *slog.Logger
}

// NewProviderFactory creates a new factory instance.
func NewProviderFactory(logger *slog.Logger) *ProviderFactory {
	return &ProviderFactory{log: logger}
}

// CreateStorageProvider parses a location descriptor and constructs the
// matching provider variant. Each recognized scheme strips its own prefix
// and treats the remainder as the backend-specific root identifier; a
// descriptor matching no scheme is a local filesystem root path. prefix
// seeds the active/archived layout inside the location.
//
// An empty descriptor returns ErrInvalidLocation; the process cannot start
// without a storage location.
func (f *ProviderFactory) CreateStorageProvider(descriptor, prefix string) (interfaces.StorageProvider, error) {
	if descriptor == "" {
		return nil, fmt.Errorf("%w: empty storage location descriptor", interfaces.ErrInvalidLocation)
	}

	for _, entry := range schemeTable {
		if strings.HasPrefix(descriptor, entry.prefix) {
			f.log.Debug("Creating storage provider",
				slog.String("type", entry.displayName),
				slog.String("descriptor", descriptor))
			return entry.create(f, descriptor[len(entry.prefix):], prefix)
		}
	}

	f.log.Debug("Creating storage provider",
		slog.String("type", localDisplayName),
		slog.String("descriptor", descriptor))
	return NewFileProvider(descriptor, prefix, f.log)
}

// ProviderType classifies a location descriptor into a human-readable
// provider name for logging. Pure and side-effect free.
func ProviderType(descriptor string) string {
	for _, entry := range schemeTable {
		if strings.HasPrefix(descriptor, entry.prefix) {
			return entry.displayName
		}
	}
	return localDisplayName
}

// createS3Provider handles s3://bucket-name descriptors.
func (f *ProviderFactory) createS3Provider(rest, prefix string) (interfaces.StorageProvider, error) {
	bucket := strings.SplitN(strings.Trim(rest, "/"), "/", 2)[0]
	if bucket == "" {
		return nil, fmt.Errorf("%w: missing bucket name in s3 descriptor", interfaces.ErrInvalidLocation)
	}
	return NewS3Provider(bucket, prefix, f.log)
}

// createMinioProvider handles minio://host:port/bucket-name descriptors.
// The descriptor embeds the service endpoint ahead of the bucket.
func (f *ProviderFactory) createMinioProvider(rest, prefix string) (interfaces.StorageProvider, error) {
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: minio descriptor must be minio://host:port/bucket", interfaces.ErrInvalidLocation)
	}
	return NewMinioProvider(parts[0], parts[1], prefix, f.log)
}

// createIPFSProvider handles ipfs://host:port descriptors.
func (f *ProviderFactory) createIPFSProvider(rest, prefix string) (interfaces.StorageProvider, error) {
	hostport := strings.Trim(rest, "/")
	if hostport == "" {
		return nil, fmt.Errorf("%w: missing node address in ipfs descriptor", interfaces.ErrInvalidLocation)
	}
	if !strings.Contains(hostport, ":") {
		hostport += ":5001"
	}
	return NewIPFSProvider(hostport, prefix, f.log)
}

// createVaultProvider handles vault://host:port/mount descriptors.
func (f *ProviderFactory) createVaultProvider(rest, prefix string) (interfaces.StorageProvider, error) {
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: missing server address in vault descriptor", interfaces.ErrInvalidLocation)
	}
	mount := "secret"
	if len(parts) == 2 && parts[1] != "" {
		mount = strings.Trim(parts[1], "/")
	}
	return NewVaultProvider("https://"+parts[0], mount, prefix, f.log)
}

// createFileProvider handles explicit file:// descriptors.
func (f *ProviderFactory) createFileProvider(rest, prefix string) (interfaces.StorageProvider, error) {
	if rest == "" {
		return nil, fmt.Errorf("%w: empty path in file descriptor", interfaces.ErrInvalidLocation)
	}
	return NewFileProvider(rest, prefix, f.log)
}
