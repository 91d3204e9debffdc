package storage

import (
	"fmt"
	"strconv"

	"github.com/scanview/report-store-backend/interfaces"
)

const (
	// maxListLimit is the per-page entry ceiling every backend clamps to.
	maxListLimit = 100

	// defaultListLimit applies when the caller passes no usable limit.
	defaultListLimit = 50
)

// clampLimit normalizes a caller-supplied page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// offsetToken serializes a numeric offset as an opaque continuation token.
// Used by the backends without a native paging primitive (filesystem, IPFS,
// Vault), which re-enumerate the full listing on every call.
func offsetToken(offset int) string {
	return strconv.Itoa(offset)
}

// parseOffsetToken decodes a token produced by offsetToken. An empty token
// means the first page.
func parseOffsetToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid continuation token %q", token)
	}
	return offset, nil
}

// pageOf slices one page out of a fully materialized listing and derives
// the token for the next page. HasMore is true exactly when a token is
// returned, keeping the pagination contract truthful by construction.
func pageOf(all []interfaces.FileEntry, offset, limit int) *interfaces.ListPage {
	if offset >= len(all) {
		return &interfaces.ListPage{Entries: []interfaces.FileEntry{}}
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := &interfaces.ListPage{Entries: all[offset:end]}
	if end < len(all) {
		page.NextContinuationToken = offsetToken(end)
		page.HasMore = true
	}
	return page
}
