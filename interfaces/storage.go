package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// EntryType distinguishes listable items.
type EntryType string

const (
	// FileType marks a report document.
	FileType EntryType = "file"
	// DirectoryType marks a one-level-deep sub-directory.
	DirectoryType EntryType = "directory"
)

// FileEntry is one discoverable item under a storage location.
//
// Key is the full backend-native identifier and is always valid as an
// argument for GetFile/CopyFile/DeleteFile on the provider instance that
// produced it. Name is the basename of Key. Size and LastModified are
// absent for directories.
type FileEntry struct {
	Key          string     `json:"key"`
	Name         string     `json:"name"`
	Size         *int64     `json:"size,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Type         EntryType  `json:"type"`
}

// ListPage is the result of one ListFiles call.
//
// Entries are ordered directories first, then files, each group in
// backend-native order. The invariant HasMore == (NextContinuationToken != "")
// must hold on every page; a provider violating it makes clients stop
// paginating early or loop forever.
type ListPage struct {
	Entries               []FileEntry `json:"entries"`
	NextContinuationToken string      `json:"nextContinuationToken,omitempty"`
	HasMore               bool        `json:"hasMore"`
}

// SaveResult reports where SaveFile placed a document.
type SaveResult struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

var (
	// ErrNotFound is returned when a key or path is absent from the backend.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidContent is returned when stored bytes are not parseable as
	// JSON, or when uploaded content fails shape, filename or size validation.
	ErrInvalidContent = errors.New("invalid content")

	// ErrBackendUnavailable is returned on network, authentication or service
	// failure from the underlying storage medium.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocation is returned when a storage location descriptor is
	// missing or unusable. Fatal at startup only.
	ErrInvalidLocation = errors.New("invalid storage location")
)

// StorageProvider is the uniform capability set over one physical storage
// medium. Exactly one provider instance is constructed at process start and
// owns its backend client handle for the process lifetime; the handle is
// shared read-only across concurrent calls.
//
// Every variant must implement identical semantics:
//
//   - ListFiles treats path as a prefix, returns only ".json" items as
//     files, surfaces one-level-deep sub-directories as directory entries,
//     and returns an empty page (not an error) for a non-existent path.
//     limit is clamped to a backend-specific maximum. The token chain
//     enumerates the full result set exactly once, terminating when
//     HasMore is false.
//   - GetFile fails with ErrNotFound for an absent key and ErrInvalidContent
//     when the stored bytes are not valid JSON.
//   - CopyFile duplicates without removing the source and creates any
//     structural prerequisites the destination needs.
//   - DeleteFile fails with ErrNotFound for an absent key on every backend,
//     including those whose native delete is idempotent.
//   - SaveFile writes under the active path using filename as the leaf
//     name, creating missing intermediate structure and overwriting
//     silently on name collision.
type StorageProvider interface {
	// ListFiles returns one page of entries under a directory-like path.
	ListFiles(ctx context.Context, path string, limit int, continuationToken string) (*ListPage, error)

	// GetFile retrieves and validates a stored JSON document by key.
	GetFile(ctx context.Context, key string) (json.RawMessage, error)

	// CopyFile duplicates sourceKey to destKey without removing the source.
	CopyFile(ctx context.Context, sourceKey, destKey string) error

	// DeleteFile removes the object or file at key.
	DeleteFile(ctx context.Context, key string) error

	// SaveFile writes a new document under the active path.
	SaveFile(ctx context.Context, filename string, content []byte) (*SaveResult, error)

	// ActivePath returns the logical root for current files.
	ActivePath() string

	// ArchivedPath returns the logical root for retired files.
	ArchivedPath() string

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns the descriptor identifying this provider.
	LocationURI() string
}
