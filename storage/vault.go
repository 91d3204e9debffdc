package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/pathutils"
)

// VaultProvider implements a storage provider on a HashiCorp Vault KV v2
// secrets engine. Documents are stored one per secret under the mount,
// with the raw JSON in a "content" field. Vault's LIST returns the full
// key set with no native paging, so the token is a numeric offset into a
// recomputed listing; entry sizes are unknown without reading each secret
// and are therefore omitted.
//
// The client authenticates with the standard VAULT_TOKEN environment.
type VaultProvider struct {
	client       *api.Client
	mountPath    string
	activePath   string
	archivedPath string
	log          *slog.Logger
	locationURI  string
}

// NewVaultProvider creates a Vault storage provider for the KV v2 engine
// mounted at mountPath on the server at address.
func NewVaultProvider(address, mountPath, prefix string, log *slog.Logger) (*VaultProvider, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.Trim(mountPath, "/")

	return &VaultProvider{
		client:       client,
		mountPath:    mountPath,
		activePath:   pathutils.ActivePath(prefix),
		archivedPath: pathutils.ArchivedPath(prefix),
		log:          log,
		locationURI:  fmt.Sprintf("vault://%s/%s", strings.TrimPrefix(address, "https://"), mountPath),
	}, nil
}

// ListFiles returns one page of the keys under dirPath. Vault reports
// sub-directories as keys with a trailing slash; a missing path yields an
// empty page, not an error.
func (p *VaultProvider) ListFiles(ctx context.Context, dirPath string, limit int, continuationToken string) (*interfaces.ListPage, error) {
	start := time.Now()
	offset, err := parseOffsetToken(continuationToken)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	secret, err := p.client.Logical().ListWithContext(ctx, p.metadataPath(dirPath))
	if err != nil {
		p.log.Error("Failed to list keys in Vault",
			slog.String("path", dirPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return &interfaces.ListPage{Entries: []interfaces.FileEntry{}}, nil
	}

	rawKeys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid keys format in Vault response")
	}

	var dirs, files []interfaces.FileEntry
	for _, raw := range rawKeys {
		name, ok := raw.(string)
		if !ok {
			continue
		}
		if strings.HasSuffix(name, "/") {
			name = strings.TrimSuffix(name, "/")
			dirs = append(dirs, interfaces.FileEntry{
				Key:  path.Join(dirPath, name),
				Name: name,
				Type: interfaces.DirectoryType,
			})
			continue
		}
		if !pathutils.IsJSONFile(name) {
			continue
		}
		files = append(files, interfaces.FileEntry{
			Key:  path.Join(dirPath, name),
			Name: name,
			Type: interfaces.FileType,
		})
	}

	p.log.Debug("Listed keys in Vault",
		slog.String("path", dirPath),
		slog.Int("entries", len(dirs)+len(files)),
		slog.Duration("duration", time.Since(start)))

	return pageOf(append(dirs, files...), offset, limit), nil
}

// GetFile retrieves and validates the JSON document at key.
func (p *VaultProvider) GetFile(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := p.readContent(ctx, key)
	if err != nil {
		return nil, err
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: stored bytes are not valid JSON", interfaces.ErrInvalidContent)
	}

	p.log.Debug("Fetched secret from Vault",
		slog.String("key", key),
		slog.Int("size", len(data)))

	return json.RawMessage(data), nil
}

// CopyFile duplicates sourceKey to destKey. Vault has no native copy, so
// this is a read followed by a write; intermediate path segments need no
// creation in a KV engine.
func (p *VaultProvider) CopyFile(ctx context.Context, sourceKey, destKey string) error {
	data, err := p.readContent(ctx, sourceKey)
	if err != nil {
		return err
	}

	if err := p.writeContent(ctx, destKey, data); err != nil {
		return err
	}

	p.log.Debug("Copied secret in Vault",
		slog.String("source", sourceKey),
		slog.String("dest", destKey))

	return nil
}

// DeleteFile removes the secret and its version metadata at key, failing
// with ErrNotFound when absent.
func (p *VaultProvider) DeleteFile(ctx context.Context, key string) error {
	if _, err := p.readContent(ctx, key); err != nil {
		return err
	}

	// Metadata delete removes all versions; a data-path delete would only
	// soft-delete the latest one.
	if _, err := p.client.Logical().DeleteWithContext(ctx, p.metadataPath(key)); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Deleted secret from Vault", slog.String("key", key))
	return nil
}

// SaveFile writes content under the active path, overwriting silently.
func (p *VaultProvider) SaveFile(ctx context.Context, filename string, content []byte) (*interfaces.SaveResult, error) {
	key := p.activePath + "/" + filename

	if err := p.writeContent(ctx, key, content); err != nil {
		return nil, err
	}

	p.log.Debug("Saved secret to Vault",
		slog.String("key", key),
		slog.Int("size", len(content)))

	return &interfaces.SaveResult{Key: key, Filename: filename}, nil
}

// ActivePath returns the logical root for current files.
func (p *VaultProvider) ActivePath() string {
	return p.activePath
}

// ArchivedPath returns the logical root for retired files.
func (p *VaultProvider) ArchivedPath() string {
	return p.archivedPath
}

// Name returns a unique identifier for this storage provider.
func (p *VaultProvider) Name() string {
	return fmt.Sprintf("vault-%s", p.mountPath)
}

// LocationURI returns the descriptor identifying this provider.
func (p *VaultProvider) LocationURI() string {
	return p.locationURI
}

// readContent fetches the raw document bytes stored at key.
func (p *VaultProvider) readContent(ctx context.Context, key string) ([]byte, error) {
	secret, err := p.client.Logical().ReadWithContext(ctx, p.dataPath(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrNotFound
	}

	// KV v2 wraps the stored fields in a "data" envelope.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	return []byte(content), nil
}

// writeContent stores raw document bytes at key.
func (p *VaultProvider) writeContent(ctx context.Context, key string, content []byte) error {
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(content),
		},
	}

	if _, err := p.client.Logical().WriteWithContext(ctx, p.dataPath(key), secretData); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

func (p *VaultProvider) dataPath(key string) string {
	return p.mountPath + "/data/" + strings.Trim(key, "/")
}

func (p *VaultProvider) metadataPath(key string) string {
	return p.mountPath + "/metadata/" + strings.Trim(key, "/")
}
