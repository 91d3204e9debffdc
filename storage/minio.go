package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/pathutils"
)

// MinioProvider implements a storage provider on MinIO or any
// S3-compatible service addressed by endpoint and bucket. Credentials come
// from the MINIO_ACCESS_KEY / MINIO_SECRET_KEY environment; set
// MINIO_USE_SSL=true for TLS endpoints.
//
// The client's listing API streams objects with no exposed page token, so
// pagination uses a start-after key cursor: the token is the last key of
// the previous page and listing resumes lexically after it.
type MinioProvider struct {
	client       *minio.Client
	bucketName   string
	activePath   string
	archivedPath string
	log          *slog.Logger
	locationURI  string
}

// NewMinioProvider creates a MinIO storage provider for the given endpoint
// and bucket.
func NewMinioProvider(endpoint, bucketName, prefix string, log *slog.Logger) (*MinioProvider, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvMinio(),
		Secure: os.Getenv("MINIO_USE_SSL") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioProvider{
		client:       client,
		bucketName:   bucketName,
		activePath:   pathutils.ActivePath(prefix),
		archivedPath: pathutils.ArchivedPath(prefix),
		log:          log,
		locationURI:  fmt.Sprintf("minio://%s/%s", endpoint, bucketName),
	}, nil
}

// ListFiles returns one page of entries under dirPath. Directory entries
// come from the delimiter-derived common prefixes the stream interleaves
// with objects; within the page they are reordered ahead of files.
func (p *MinioProvider) ListFiles(ctx context.Context, dirPath string, limit int, continuationToken string) (*interfaces.ListPage, error) {
	start := time.Now()
	limit = clampLimit(limit)
	prefix := listPrefix(dirPath)

	// Cancel the listing stream as soon as the page is full.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := p.client.ListObjects(listCtx, p.bucketName, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  false,
		StartAfter: continuationToken,
		MaxKeys:    limit + 1,
	})

	page, err := p.collectPage(prefix, limit, objects)
	if err != nil {
		p.log.Error("Failed to list objects in MinIO",
			slog.String("bucket", p.bucketName),
			slog.String("prefix", prefix),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, err
	}

	p.log.Debug("Listed objects in MinIO",
		slog.String("bucket", p.bucketName),
		slog.String("prefix", prefix),
		slog.Int("entries", len(page.Entries)),
		slog.Bool("hasMore", page.HasMore),
		slog.Duration("duration", time.Since(start)))

	return page, nil
}

// GetFile retrieves and validates the JSON document at key.
func (p *MinioProvider) GetFile(ctx context.Context, key string) (json.RawMessage, error) {
	obj, err := p.client.GetObject(ctx, p.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: stored bytes are not valid JSON", interfaces.ErrInvalidContent)
	}

	p.log.Debug("Fetched object from MinIO",
		slog.String("bucket", p.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)))

	return json.RawMessage(data), nil
}

// CopyFile duplicates sourceKey to destKey via the native server-side copy.
func (p *MinioProvider) CopyFile(ctx context.Context, sourceKey, destKey string) error {
	_, err := p.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: p.bucketName, Object: destKey},
		minio.CopySrcOptions{Bucket: p.bucketName, Object: sourceKey},
	)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Copied object in MinIO",
		slog.String("bucket", p.bucketName),
		slog.String("source", sourceKey),
		slog.String("dest", destKey))

	return nil
}

// DeleteFile removes the object at key. The native delete is idempotent,
// so the object is statted first to honor the uniform ErrNotFound policy.
func (p *MinioProvider) DeleteFile(ctx context.Context, key string) error {
	if _, err := p.client.StatObject(ctx, p.bucketName, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if err := p.client.RemoveObject(ctx, p.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Deleted object from MinIO",
		slog.String("bucket", p.bucketName),
		slog.String("key", key))

	return nil
}

// SaveFile uploads content under the active path, overwriting silently.
func (p *MinioProvider) SaveFile(ctx context.Context, filename string, content []byte) (*interfaces.SaveResult, error) {
	key := p.activePath + "/" + filename

	_, err := p.client.PutObject(ctx, p.bucketName, key,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	p.log.Debug("Saved object to MinIO",
		slog.String("bucket", p.bucketName),
		slog.String("key", key),
		slog.Int("size", len(content)))

	return &interfaces.SaveResult{Key: key, Filename: filename}, nil
}

// ActivePath returns the logical root for current files.
func (p *MinioProvider) ActivePath() string {
	return p.activePath
}

// ArchivedPath returns the logical root for retired files.
func (p *MinioProvider) ArchivedPath() string {
	return p.archivedPath
}

// Name returns a unique identifier for this storage provider.
func (p *MinioProvider) Name() string {
	return fmt.Sprintf("minio-%s", p.bucketName)
}

// LocationURI returns the descriptor identifying this provider.
func (p *MinioProvider) LocationURI() string {
	return p.locationURI
}

// collectPage drains the listing stream until one page is full, derives
// the resume cursor and reorders directories ahead of files.
func (p *MinioProvider) collectPage(prefix string, limit int, objects <-chan minio.ObjectInfo) (*interfaces.ListPage, error) {
	var entries []interfaces.FileEntry
	hasMore := false
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, obj.Err)
		}

		entry, ok := p.entryFor(prefix, obj)
		if !ok {
			continue
		}
		if len(entries) == limit {
			hasMore = true
			break
		}
		entries = append(entries, entry)
	}

	page := &interfaces.ListPage{Entries: entries}
	if hasMore {
		// Cursor must be derived before the dirs-first reorder below; the
		// stream delivers keys lexically and the cursor resumes after the
		// last delivered one.
		page.NextContinuationToken = pageCursor(entries[len(entries)-1])
		page.HasMore = true
	}

	sort.SliceStable(page.Entries, func(i, j int) bool {
		return page.Entries[i].Type == interfaces.DirectoryType &&
			page.Entries[j].Type == interfaces.FileType
	})

	return page, nil
}

// pageCursor turns the last delivered entry into the start-after key for
// the next page. For a directory the cursor advances past the delimiter
// ('0' is the byte after '/'), otherwise resuming would re-yield the same
// common prefix.
func pageCursor(last interfaces.FileEntry) string {
	if last.Type == interfaces.DirectoryType {
		return last.Key + "0"
	}
	return last.Key
}

// entryFor maps one streamed object to a list entry. The directory marker
// for the listed prefix itself and non-JSON objects are excluded.
func (p *MinioProvider) entryFor(prefix string, obj minio.ObjectInfo) (interfaces.FileEntry, bool) {
	if strings.HasSuffix(obj.Key, "/") {
		key := strings.TrimSuffix(obj.Key, "/")
		if key == "" || key+"/" == prefix {
			return interfaces.FileEntry{}, false
		}
		return interfaces.FileEntry{
			Key:  key,
			Name: path.Base(key),
			Type: interfaces.DirectoryType,
		}, true
	}

	if !pathutils.IsJSONFile(obj.Key) {
		return interfaces.FileEntry{}, false
	}
	modified := obj.LastModified
	size := obj.Size
	return interfaces.FileEntry{
		Key:          obj.Key,
		Name:         path.Base(obj.Key),
		Size:         &size,
		LastModified: &modified,
		Type:         interfaces.FileType,
	}, true
}
