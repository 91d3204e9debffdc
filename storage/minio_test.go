package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/scanview/report-store-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMinioProvider(t *testing.T) *MinioProvider {
	t.Helper()
	provider, err := NewMinioProvider("localhost:9000", "reports-bucket", "reports", testLogger())
	require.NoError(t, err)
	return provider
}

// fakeListing imitates the server side of a non-recursive listing: keys
// ending in "/" stand for delimiter-derived common prefixes, and only keys
// sorting strictly after startAfter are streamed. keys must be sorted.
func fakeListing(keys []string, startAfter string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	now := time.Now()
	for _, key := range keys {
		if key <= startAfter {
			continue
		}
		ch <- minio.ObjectInfo{Key: key, Size: 2, LastModified: now}
	}
	close(ch)
	return ch
}

func TestMinioCollectPageEnumeratesExactlyOnce(t *testing.T) {
	provider := newTestMinioProvider(t)

	prefix := "reports/active/"
	keys := []string{
		"reports/active/",
		"reports/active/a.json",
		"reports/active/archive-2024/",
		"reports/active/b.json",
		"reports/active/notes.txt",
		"reports/active/sub/",
		"reports/active/z.json",
	}
	want := map[string]bool{
		"reports/active/a.json":       true,
		"reports/active/archive-2024": true,
		"reports/active/b.json":       true,
		"reports/active/sub":          true,
		"reports/active/z.json":       true,
	}

	for _, limit := range []int{1, 2, 3, 10} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			seen := map[string]bool{}
			token := ""
			for pages := 0; ; pages++ {
				require.Less(t, pages, 20, "pagination did not terminate")

				page, err := provider.collectPage(prefix, limit, fakeListing(keys, token))
				require.NoError(t, err)

				// Truthful pagination: HasMore and the token must agree.
				assert.Equal(t, page.HasMore, page.NextContinuationToken != "")

				for _, entry := range page.Entries {
					assert.False(t, seen[entry.Key], "entry %s yielded twice", entry.Key)
					seen[entry.Key] = true
				}
				if !page.HasMore {
					break
				}
				token = page.NextContinuationToken
			}
			assert.Equal(t, want, seen)
		})
	}
}

func TestMinioCollectPageOrdersDirectoriesFirst(t *testing.T) {
	provider := newTestMinioProvider(t)

	keys := []string{
		"reports/active/a.json",
		"reports/active/sub/",
	}

	page, err := provider.collectPage("reports/active/", 10, fakeListing(keys, ""))
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, interfaces.DirectoryType, page.Entries[0].Type)
	assert.Equal(t, "sub", page.Entries[0].Name)
	assert.Equal(t, interfaces.FileType, page.Entries[1].Type)
	assert.False(t, page.HasMore)
}

func TestMinioPageCursorAdvancesPastDirectory(t *testing.T) {
	cursor := pageCursor(interfaces.FileEntry{Key: "reports/active/sub", Type: interfaces.DirectoryType})
	assert.Equal(t, "reports/active/sub0", cursor)

	// Everything under the directory sorts before the cursor, so resuming
	// cannot re-yield the common prefix; the next sibling still follows it.
	assert.Less(t, "reports/active/sub/", cursor)
	assert.Less(t, "reports/active/sub/deep.json", cursor)
	assert.Greater(t, "reports/active/sub2/", cursor)

	fileCursor := pageCursor(interfaces.FileEntry{Key: "reports/active/a.json", Type: interfaces.FileType})
	assert.Equal(t, "reports/active/a.json", fileCursor)
}
