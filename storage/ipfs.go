package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/pathutils"
)

// MFS entry types as reported by the IPFS files API.
const (
	mfsTypeFile      = 0
	mfsTypeDirectory = 1
)

// IPFSProvider implements a storage provider on the IPFS Mutable File
// System, which gives the node named paths over content-addressed blocks.
// Copy is native (files/cp re-links the blocks), hierarchy is real, and
// listing has no native paging so the token is a numeric offset into a
// recomputed directory listing.
type IPFSProvider struct {
	shell        *shell.Shell
	nodeAddr     string
	activePath   string
	archivedPath string
	log          *slog.Logger
	locationURI  string
}

// NewIPFSProvider creates an IPFS storage provider connected to the files
// API of the node at nodeAddr (host:port).
func NewIPFSProvider(nodeAddr, prefix string, log *slog.Logger) (*IPFSProvider, error) {
	return &IPFSProvider{
		shell:        shell.NewShell(nodeAddr),
		nodeAddr:     nodeAddr,
		activePath:   pathutils.ActivePath(prefix),
		archivedPath: pathutils.ArchivedPath(prefix),
		log:          log,
		locationURI:  fmt.Sprintf("ipfs://%s", nodeAddr),
	}, nil
}

// ListFiles returns one page of the MFS directory listing under dirPath.
// A missing directory yields an empty page, not an error.
func (p *IPFSProvider) ListFiles(ctx context.Context, dirPath string, limit int, continuationToken string) (*interfaces.ListPage, error) {
	start := time.Now()
	offset, err := parseOffsetToken(continuationToken)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	if !p.shell.IsUp() {
		return nil, interfaces.ErrBackendUnavailable
	}

	listed, err := p.shell.FilesLs(ctx, p.mfsPath(dirPath), shell.FilesLs.Stat(true))
	if err != nil {
		if isMFSNotFound(err) {
			return &interfaces.ListPage{Entries: []interfaces.FileEntry{}}, nil
		}
		p.log.Error("Failed to list MFS directory",
			slog.String("path", dirPath),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	var dirs, files []interfaces.FileEntry
	for _, entry := range listed {
		key := path.Join(dirPath, entry.Name)
		switch {
		case entry.Type == mfsTypeDirectory:
			dirs = append(dirs, interfaces.FileEntry{
				Key:  key,
				Name: entry.Name,
				Type: interfaces.DirectoryType,
			})
		case entry.Type == mfsTypeFile && pathutils.IsJSONFile(entry.Name):
			size := int64(entry.Size)
			files = append(files, interfaces.FileEntry{
				Key:  key,
				Name: entry.Name,
				Size: &size,
				Type: interfaces.FileType,
			})
		}
	}

	p.log.Debug("Listed MFS directory",
		slog.String("path", dirPath),
		slog.Int("entries", len(dirs)+len(files)),
		slog.Duration("duration", time.Since(start)))

	return pageOf(append(dirs, files...), offset, limit), nil
}

// GetFile retrieves and validates the JSON document at key.
func (p *IPFSProvider) GetFile(ctx context.Context, key string) (json.RawMessage, error) {
	reader, err := p.shell.FilesRead(ctx, p.mfsPath(key))
	if err != nil {
		if isMFSNotFound(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read MFS file: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: stored bytes are not valid JSON", interfaces.ErrInvalidContent)
	}

	p.log.Debug("Fetched file from MFS",
		slog.String("key", key),
		slog.Int("size", len(data)))

	return json.RawMessage(data), nil
}

// CopyFile duplicates sourceKey to destKey with the native files/cp call,
// creating the destination directory first since cp does not.
func (p *IPFSProvider) CopyFile(ctx context.Context, sourceKey, destKey string) error {
	destDir := path.Dir(p.mfsPath(destKey))
	if err := p.shell.FilesMkdir(ctx, destDir, shell.FilesMkdir.Parents(true)); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if err := p.shell.FilesCp(ctx, p.mfsPath(sourceKey), p.mfsPath(destKey)); err != nil {
		if isMFSNotFound(err) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Copied file in MFS",
		slog.String("source", sourceKey),
		slog.String("dest", destKey))

	return nil
}

// DeleteFile removes the file at key, failing with ErrNotFound when absent.
func (p *IPFSProvider) DeleteFile(ctx context.Context, key string) error {
	if _, err := p.shell.FilesStat(ctx, p.mfsPath(key)); err != nil {
		if isMFSNotFound(err) {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if err := p.shell.FilesRm(ctx, p.mfsPath(key), true); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Deleted file from MFS", slog.String("key", key))
	return nil
}

// SaveFile writes content under the active path, creating missing
// directories and truncating an existing file with the same name.
func (p *IPFSProvider) SaveFile(ctx context.Context, filename string, content []byte) (*interfaces.SaveResult, error) {
	key := p.activePath + "/" + filename

	err := p.shell.FilesWrite(ctx, p.mfsPath(key), bytes.NewReader(content),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Saved file to MFS",
		slog.String("key", key),
		slog.Int("size", len(content)))

	return &interfaces.SaveResult{Key: key, Filename: filename}, nil
}

// ActivePath returns the logical root for current files.
func (p *IPFSProvider) ActivePath() string {
	return p.activePath
}

// ArchivedPath returns the logical root for retired files.
func (p *IPFSProvider) ArchivedPath() string {
	return p.archivedPath
}

// Name returns a unique identifier for this storage provider.
func (p *IPFSProvider) Name() string {
	return fmt.Sprintf("ipfs-%s", p.nodeAddr)
}

// LocationURI returns the descriptor identifying this provider.
func (p *IPFSProvider) LocationURI() string {
	return p.locationURI
}

// mfsPath maps a slash-separated key to an absolute MFS path.
func (p *IPFSProvider) mfsPath(key string) string {
	return "/" + strings.Trim(key, "/")
}

func isMFSNotFound(err error) bool {
	return strings.Contains(err.Error(), "does not exist")
}
