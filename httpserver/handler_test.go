package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/scanview/report-store-backend/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, interfaces.StorageProvider) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider, err := storage.NewFileProvider(t.TempDir(), "reports", logger)
	require.NoError(t, err)

	handler := NewHandler(provider, logger)

	mux := chi.NewRouter()
	mux.Get("/api/files", handler.HandleListFiles)
	mux.Post("/api/files/upload", handler.HandleUpload)
	mux.Post("/api/files/archive", handler.HandleArchive)
	mux.Get("/api/files/*", handler.HandleGetFile)

	return mux, provider
}

func doJSON(t *testing.T, mux *chi.Mux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func uploadReport(t *testing.T, mux *chi.Mux, filename, content string) uploadResponse {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/files/upload", map[string]any{
		"filename": filename,
		"content":  json.RawMessage(content),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadThenGet(t *testing.T) {
	mux, _ := newTestRouter(t)

	doc := `{"Results":[{"Target":"alpine:3.19"}]}`
	resp := uploadReport(t, mux, "scan.json", doc)
	assert.Equal(t, "scan.json", resp.Filename)
	assert.Equal(t, "reports/active/scan.json", resp.Key)

	// Short display name is qualified by the active path.
	rec := doJSON(t, mux, http.MethodGet, "/api/files/scan.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, doc, rec.Body.String())

	// The fully qualified key works too.
	rec = doJSON(t, mux, http.MethodGet, "/api/files/reports/active/scan.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, doc, rec.Body.String())
}

func TestGetMissingFile(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/files/nope.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFiles(t *testing.T) {
	mux, _ := newTestRouter(t)

	uploadReport(t, mux, "a.json", `{"Results":[]}`)
	uploadReport(t, mux, "b.json", `{"Results":[]}`)

	rec := doJSON(t, mux, http.MethodGet, "/api/files?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listFilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 2)
	assert.False(t, resp.HasMore)
	assert.Empty(t, resp.NextContinuationToken)
	assert.Equal(t, "", resp.CurrentPath)
}

func TestListFilesSanitizesPath(t *testing.T) {
	mux, _ := newTestRouter(t)

	uploadReport(t, mux, "scan.json", `{"Results":[]}`)

	// Traversal segments are dropped, so this lists the active root.
	rec := doJSON(t, mux, http.MethodGet, "/api/files?path=..%2F..%2F", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listFilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 1)
	assert.Equal(t, "", resp.CurrentPath)
}

func TestListFilesEmptyDirectory(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/files?path=nope", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listFilesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Files)
	assert.Empty(t, resp.Files)
	assert.False(t, resp.HasMore)
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		wantErr  string
	}{
		{
			name:     "bad filename extension",
			filename: "report.txt",
			content:  `{"Results":[]}`,
			wantErr:  "invalid filename",
		},
		{
			name:     "traversal in filename",
			filename: "../evil.json",
			content:  `{"Results":[]}`,
			wantErr:  "invalid filename",
		},
		{
			name:     "trailing extension smuggling",
			filename: "report.json.exe",
			content:  `{"Results":[]}`,
			wantErr:  "invalid filename",
		},
		{
			name:     "missing Results",
			filename: "scan.json",
			content:  `{"Findings":[]}`,
			wantErr:  "Results array",
		},
		{
			name:     "Results not an array",
			filename: "scan.json",
			content:  `{"Results":{"count":0}}`,
			wantErr:  "Results array",
		},
		{
			name:     "content not an object",
			filename: "scan.json",
			content:  `[1,2,3]`,
			wantErr:  "Results array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, provider := newTestRouter(t)

			rec := doJSON(t, mux, http.MethodPost, "/api/files/upload", map[string]any{
				"filename": tt.filename,
				"content":  json.RawMessage(tt.content),
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantErr)

			// No write happened.
			page, err := provider.ListFiles(httptest.NewRequest(http.MethodGet, "/", nil).Context(), provider.ActivePath(), 10, "")
			require.NoError(t, err)
			assert.Empty(t, page.Entries)
		})
	}
}

func TestUploadOversizedContent(t *testing.T) {
	mux, provider := newTestRouter(t)

	// A JSON string just over the 10 MiB ceiling.
	huge := `"` + strings.Repeat("a", maxUploadSize+1) + `"`
	body := fmt.Sprintf(`{"filename":"big.json","content":%s}`, huge)

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	page, err := provider.ListFiles(req.Context(), provider.ActivePath(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
}

func TestArchive(t *testing.T) {
	mux, provider := newTestRouter(t)

	doc := `{"Results":[{"Target":"debian:12"}]}`
	uploaded := uploadReport(t, mux, "scan.json", doc)

	rec := doJSON(t, mux, http.MethodPost, "/api/files/archive", archiveRequest{Key: uploaded.Key})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp archiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uploaded.Key, resp.OriginalKey)
	assert.True(t, strings.HasPrefix(resp.ArchivedKey, "reports/archived/scan.json."), resp.ArchivedKey)

	// Original is gone, archived copy holds the content.
	rec = doJSON(t, mux, http.MethodGet, "/api/files/"+uploaded.Key, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got, err := provider.GetFile(httptest.NewRequest(http.MethodGet, "/", nil).Context(), resp.ArchivedKey)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(got))
}

func TestArchiveMissingFile(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/files/archive", archiveRequest{Key: "nope.json"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveMissingKey(t *testing.T) {
	mux, _ := newTestRouter(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/files/archive", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveTraversalKeyStaysInsideRoot(t *testing.T) {
	base := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider, err := storage.NewFileProvider(filepath.Join(base, "store"), "reports", logger)
	require.NoError(t, err)

	victimPath := filepath.Join(base, "victim.json")
	require.NoError(t, os.WriteFile(victimPath, []byte(`{"secret":true}`), 0644))

	handler := NewHandler(provider, logger)
	mux := chi.NewRouter()
	mux.Post("/api/files/archive", handler.HandleArchive)

	// Traversal segments are dropped during qualification, so the key
	// resolves inside the root and the sibling file is never touched.
	rec := doJSON(t, mux, http.MethodPost, "/api/files/archive", archiveRequest{Key: "../victim.json"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err = os.Stat(victimPath)
	require.NoError(t, err)
}
