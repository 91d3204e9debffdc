package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/metrics"
	"github.com/scanview/report-store-backend/pathutils"
)

const (
	// maxUploadSize is the content ceiling for uploaded reports (10 MiB).
	maxUploadSize = 10 * 1024 * 1024

	// maxBodySize bounds the request body read, leaving headroom for the
	// JSON envelope around the content.
	maxBodySize = maxUploadSize + 64*1024
)

// Handler processes HTTP requests for the report file API. It owns the
// single storage provider selected at startup and translates request
// parameters into provider calls through the shared path policy.
type Handler struct {
	provider interfaces.StorageProvider
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler around the given provider.
func NewHandler(provider interfaces.StorageProvider, log *slog.Logger) *Handler {
	return &Handler{
		provider: provider,
		log:      log,
	}
}

type listFilesResponse struct {
	Files                 []interfaces.FileEntry `json:"files"`
	NextContinuationToken string                 `json:"nextContinuationToken,omitempty"`
	HasMore               bool                   `json:"hasMore"`
	CurrentPath           string                 `json:"currentPath"`
}

type uploadRequest struct {
	Filename string          `json:"filename"`
	Content  json.RawMessage `json:"content"`
}

type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Key      string `json:"key"`
}

type archiveRequest struct {
	Key string `json:"key"`
}

type archiveResponse struct {
	Message     string `json:"message"`
	OriginalKey string `json:"originalKey"`
	ArchivedKey string `json:"archivedKey"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleListFiles serves GET /api/files?path=&limit=&continuationToken=.
// The path parameter is a relative sub-path under the active root and is
// sanitized before use.
func (h *Handler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	subPath := pathutils.SanitizeSubPath(query.Get("path"))
	listPath := h.provider.ActivePath()
	if subPath != "" {
		listPath += "/" + subPath
	}

	limit, _ := strconv.Atoi(query.Get("limit"))
	token := query.Get("continuationToken")

	page, err := h.provider.ListFiles(r.Context(), listPath, limit, token)
	if err != nil {
		metrics.IncStorageError("list")
		h.log.Error("Failed to list files", "err", err, "path", listPath)
		h.writeError(w, err)
		return
	}
	metrics.IncStorageOp("list")

	entries := page.Entries
	if entries == nil {
		entries = []interfaces.FileEntry{}
	}
	h.writeJSON(w, http.StatusOK, listFilesResponse{
		Files:                 entries,
		NextContinuationToken: page.NextContinuationToken,
		HasMore:               page.HasMore,
		CurrentPath:           subPath,
	})
}

// HandleGetFile serves GET /api/files/* where the wildcard is the file
// key. A key not already under the active path is treated as relative and
// qualified.
func (h *Handler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	key := pathutils.QualifyKey(h.provider.ActivePath(), chi.URLParam(r, "*"))
	if key == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file key"})
		return
	}

	doc, err := h.provider.GetFile(r.Context(), key)
	if err != nil {
		metrics.IncStorageError("get")
		if !errors.Is(err, interfaces.ErrNotFound) {
			h.log.Error("Failed to get file", "err", err, "key", key)
		}
		h.writeError(w, err)
		return
	}
	metrics.IncStorageOp("get")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// HandleUpload serves POST /api/files/upload. The filename and the report
// shape are validated before any provider call: the stem must match the
// filename pattern, the content must stay under the size ceiling, and the
// document must carry a top-level Results array.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !pathutils.ValidFilename(req.Filename) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid filename: only letters, digits, underscore, hyphen, dot and space are allowed, with a .json suffix"})
		return
	}
	if len(req.Content) > maxUploadSize {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "content exceeds maximum allowed size"})
		return
	}
	if !hasResultsArray(req.Content) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "content must be a JSON object with a Results array"})
		return
	}

	saved, err := h.provider.SaveFile(r.Context(), req.Filename, req.Content)
	if err != nil {
		metrics.IncStorageError("save")
		h.log.Error("Failed to save file", "err", err, "filename", req.Filename)
		h.writeError(w, err)
		return
	}
	metrics.IncStorageOp("save")

	h.log.Info("File uploaded",
		slog.String("filename", saved.Filename),
		slog.String("key", saved.Key))

	h.writeJSON(w, http.StatusOK, uploadResponse{
		Message:  "file uploaded successfully",
		Filename: saved.Filename,
		Key:      saved.Key,
	})
}

// HandleArchive serves POST /api/files/archive. Archival is a copy to the
// archived path followed by a delete of the source; it is not
// transactional. If the delete fails after a successful copy both copies
// remain and the failure is surfaced, so callers must treat archive as
// at-least-once copy with best-effort delete.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file key"})
		return
	}

	sourceKey := pathutils.QualifyKey(h.provider.ActivePath(), req.Key)
	if sourceKey == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file key"})
		return
	}
	archivedKey := pathutils.ArchivedKey(h.provider.ArchivedPath(), sourceKey, time.Now())

	if err := h.provider.CopyFile(r.Context(), sourceKey, archivedKey); err != nil {
		metrics.IncStorageError("archive")
		if !errors.Is(err, interfaces.ErrNotFound) {
			h.log.Error("Failed to copy file to archive", "err", err, "key", sourceKey)
		}
		h.writeError(w, err)
		return
	}

	if err := h.provider.DeleteFile(r.Context(), sourceKey); err != nil {
		metrics.IncStorageError("archive")
		h.log.Error("Archived copy succeeded but source deletion failed; both copies remain",
			"err", err,
			slog.String("originalKey", sourceKey),
			slog.String("archivedKey", archivedKey))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "file was copied to the archive but the original could not be deleted",
		})
		return
	}
	metrics.IncStorageOp("archive")

	h.log.Info("File archived",
		slog.String("originalKey", sourceKey),
		slog.String("archivedKey", archivedKey))

	h.writeJSON(w, http.StatusOK, archiveResponse{
		Message:     "file archived successfully",
		OriginalKey: sourceKey,
		ArchivedKey: archivedKey,
	})
}

// writeError maps provider errors onto status codes: absent keys are 404,
// everything else is a 500 with the error kind's message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "file not found"})
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage backend unavailable"})
	default:
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// hasResultsArray reports whether content is a JSON object whose top-level
// Results field is an array.
func hasResultsArray(content json.RawMessage) bool {
	var probe struct {
		Results json.RawMessage `json:"Results"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	trimmed := bytes.TrimLeft(probe.Results, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
