package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/pathutils"
)

// FileProvider implements a storage provider on the local filesystem.
//
// Keys are slash-separated paths relative to the configured root so the
// request layer's key policy matches the object-store variants; they are
// mapped to native paths internally. Pagination is a numeric offset into a
// freshly recomputed listing sorted by modification time descending — the
// full directory is rescanned on every page request and no snapshot
// consistency is guaranteed across pages if the directory mutates between
// calls.
type FileProvider struct {
	rootDir      string
	activePath   string
	archivedPath string
	log          *slog.Logger
	locationURI  string
}

// NewFileProvider creates a local filesystem provider rooted at rootDir,
// creating the root and the active/archived directories if missing.
func NewFileProvider(rootDir, prefix string, log *slog.Logger) (*FileProvider, error) {
	p := &FileProvider{
		rootDir:      rootDir,
		activePath:   pathutils.ActivePath(prefix),
		archivedPath: pathutils.ArchivedPath(prefix),
		log:          log,
		locationURI:  "file://" + rootDir,
	}

	for _, dir := range []string{p.nativePath(p.activePath), p.nativePath(p.archivedPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return p, nil
}

// ListFiles returns one page of the mtime-descending listing under dirPath.
// A missing directory yields an empty page, not an error.
func (p *FileProvider) ListFiles(ctx context.Context, dirPath string, limit int, continuationToken string) (*interfaces.ListPage, error) {
	offset, err := parseOffsetToken(continuationToken)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	dirEntries, err := os.ReadDir(p.nativePath(dirPath))
	if os.IsNotExist(err) {
		return &interfaces.ListPage{Entries: []interfaces.FileEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var dirs, files []interfaces.FileEntry
	for _, entry := range dirEntries {
		key := path.Join(dirPath, entry.Name())
		if entry.IsDir() {
			dirs = append(dirs, interfaces.FileEntry{
				Key:  key,
				Name: entry.Name(),
				Type: interfaces.DirectoryType,
			})
			continue
		}
		if !pathutils.IsJSONFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		modified := info.ModTime()
		size := info.Size()
		files = append(files, interfaces.FileEntry{
			Key:          key,
			Name:         entry.Name(),
			Size:         &size,
			LastModified: &modified,
			Type:         interfaces.FileType,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].LastModified.After(*files[j].LastModified)
	})

	return pageOf(append(dirs, files...), offset, limit), nil
}

// GetFile reads and validates the JSON document at key.
func (p *FileProvider) GetFile(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := os.ReadFile(p.nativePath(key))
	if os.IsNotExist(err) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: stored bytes are not valid JSON", interfaces.ErrInvalidContent)
	}

	p.log.Debug("Fetched file from filesystem",
		slog.String("key", key),
		slog.Int("size", len(data)))

	return json.RawMessage(data), nil
}

// CopyFile duplicates sourceKey to destKey, creating any missing parent
// directories for the destination.
func (p *FileProvider) CopyFile(ctx context.Context, sourceKey, destKey string) error {
	data, err := os.ReadFile(p.nativePath(sourceKey))
	if os.IsNotExist(err) {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	destPath := p.nativePath(destKey)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write destination file: %w", err)
	}

	p.log.Debug("Copied file",
		slog.String("source", sourceKey),
		slog.String("dest", destKey))

	return nil
}

// DeleteFile removes the file at key, failing with ErrNotFound when absent.
func (p *FileProvider) DeleteFile(ctx context.Context, key string) error {
	nativePath := p.nativePath(key)
	if _, err := os.Stat(nativePath); os.IsNotExist(err) {
		return interfaces.ErrNotFound
	}

	if err := os.Remove(nativePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	p.log.Debug("Deleted file", slog.String("key", key))
	return nil
}

// SaveFile writes content under the active path using filename as the leaf
// name, overwriting silently on collision.
func (p *FileProvider) SaveFile(ctx context.Context, filename string, content []byte) (*interfaces.SaveResult, error) {
	key := p.activePath + "/" + filename
	nativePath := p.nativePath(key)

	if err := os.MkdirAll(filepath.Dir(nativePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(nativePath, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	p.log.Debug("Saved file",
		slog.String("key", key),
		slog.Int("size", len(content)))

	return &interfaces.SaveResult{Key: key, Filename: filename}, nil
}

// ActivePath returns the logical root for current files.
func (p *FileProvider) ActivePath() string {
	return p.activePath
}

// ArchivedPath returns the logical root for retired files.
func (p *FileProvider) ArchivedPath() string {
	return p.archivedPath
}

// Name returns a unique identifier for this storage provider.
func (p *FileProvider) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(p.rootDir))
}

// LocationURI returns the descriptor identifying this provider.
func (p *FileProvider) LocationURI() string {
	return p.locationURI
}

// nativePath maps a slash-separated key to a path under the root. The key
// runs through the shared segment filter so a crafted key cannot resolve
// outside rootDir.
func (p *FileProvider) nativePath(key string) string {
	return filepath.Join(p.rootDir, filepath.FromSlash(pathutils.SanitizeSubPath(key)))
}
