// Package pathutils holds the shared path and key conventions used by all
// storage providers and by the request layer: active/archived root layout,
// sub-path sanitization, upload filename validation and key qualification.
package pathutils

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// JSONSuffix is the only file suffix the system serves.
const JSONSuffix = ".json"

// Stem of letters, digits, underscore, hyphen, dot and space, with a
// mandatory case-insensitive .json suffix.
var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-. ]+\.(?i:json)$`)

// ActivePath returns the logical root for current files. prefix may be
// empty; when non-empty it is joined without introducing a leading slash,
// since object-store keys must not start with one.
func ActivePath(prefix string) string {
	return joinRoot(prefix, "active")
}

// ArchivedPath returns the logical root for retired files.
func ArchivedPath(prefix string) string {
	return joinRoot(prefix, "archived")
}

func joinRoot(prefix, root string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return root
	}
	return prefix + "/" + root
}

// SanitizeSubPath is the sole traversal defense for client-supplied
// relative listing paths. The path is split on "/", every empty segment
// and every literal ".." segment is dropped, and the remainder rejoined.
// Escapes are rejected by construction (dropping ".." rather than
// resolving it), so "a/../b" becomes "a/b", not "b".
func SanitizeSubPath(subPath string) string {
	segments := strings.Split(subPath, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/")
}

// ValidFilename reports whether name is acceptable as an upload leaf name.
// Anything outside the pattern, including path separators, is rejected
// before reaching any provider.
func ValidFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// IsJSONFile reports whether key names a report document.
func IsJSONFile(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), JSONSuffix)
}

// QualifyKey treats a caller-supplied key that does not already start with
// the provider's active path as relative and prefixes it. This makes the
// API tolerant of both absolute backend keys and short display names; no
// ownership verification is performed on already-qualified keys.
//
// The key runs through the same segment filter as listing sub-paths, so a
// ".." segment can never address anything outside the storage root.
func QualifyKey(activePath, key string) string {
	key = SanitizeSubPath(key)
	if key == "" || strings.HasPrefix(key, activePath+"/") || key == activePath {
		return key
	}
	return activePath + "/" + key
}

// ArchivedKey computes the destination key for retiring a file: the
// original leaf name suffixed with an RFC 3339 UTC timestamp, under the
// archived path.
func ArchivedKey(archivedPath, sourceKey string, now time.Time) string {
	name := path.Base(sourceKey)
	return archivedPath + "/" + name + "." + now.UTC().Format(time.RFC3339)
}
