package pathutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActiveAndArchivedPath(t *testing.T) {
	tests := []struct {
		name         string
		prefix       string
		wantActive   string
		wantArchived string
	}{
		{
			name:         "empty prefix",
			prefix:       "",
			wantActive:   "active",
			wantArchived: "archived",
		},
		{
			name:         "plain prefix",
			prefix:       "reports",
			wantActive:   "reports/active",
			wantArchived: "reports/archived",
		},
		{
			name:         "prefix with surrounding slashes",
			prefix:       "/team/reports/",
			wantActive:   "team/reports/active",
			wantArchived: "team/reports/archived",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantActive, ActivePath(tt.prefix))
			assert.Equal(t, tt.wantArchived, ArchivedPath(tt.prefix))
		})
	}
}

func TestSanitizeSubPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"sub", "sub"},
		{"a/b/c", "a/b/c"},
		{"../../etc", "etc"},
		{"a/../b", "a/b"},
		{"//a///b//", "a/b"},
		{"..", ""},
		{"../..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSubPath(tt.input))
		})
	}
}

func TestValidFilename(t *testing.T) {
	accepted := []string{
		"report-1.json",
		"My Report.JSON",
		"scan_2024.01.02.json",
		"a.Json",
	}
	rejected := []string{
		"../evil.json",
		"report.txt",
		"report.json.exe",
		"sub/report.json",
		".json",
		"",
		"report.json\n",
	}

	for _, name := range accepted {
		assert.True(t, ValidFilename(name), "expected %q to be accepted", name)
	}
	for _, name := range rejected {
		assert.False(t, ValidFilename(name), "expected %q to be rejected", name)
	}
}

func TestIsJSONFile(t *testing.T) {
	assert.True(t, IsJSONFile("active/report.json"))
	assert.True(t, IsJSONFile("active/report.JSON"))
	assert.False(t, IsJSONFile("active/report.txt"))
	assert.False(t, IsJSONFile("active/json"))
}

func TestQualifyKey(t *testing.T) {
	tests := []struct {
		name       string
		activePath string
		key        string
		want       string
	}{
		{
			name:       "short display name gets qualified",
			activePath: "reports/active",
			key:        "scan.json",
			want:       "reports/active/scan.json",
		},
		{
			name:       "already qualified key passes through",
			activePath: "reports/active",
			key:        "reports/active/scan.json",
			want:       "reports/active/scan.json",
		},
		{
			name:       "leading slash is stripped first",
			activePath: "reports/active",
			key:        "/reports/active/scan.json",
			want:       "reports/active/scan.json",
		},
		{
			name:       "nested relative key",
			activePath: "active",
			key:        "sub/scan.json",
			want:       "active/sub/scan.json",
		},
		{
			name:       "traversal segments are dropped",
			activePath: "reports/active",
			key:        "../../../victim.json",
			want:       "reports/active/victim.json",
		},
		{
			name:       "traversal inside a qualified key is dropped",
			activePath: "reports/active",
			key:        "reports/active/../../secret.json",
			want:       "reports/active/secret.json",
		},
		{
			name:       "pure traversal collapses to empty",
			activePath: "reports/active",
			key:        "../..",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualifyKey(tt.activePath, tt.key))
		})
	}
}

func TestArchivedKey(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	got := ArchivedKey("reports/archived", "reports/active/sub/scan.json", now)
	assert.Equal(t, "reports/archived/scan.json.2025-03-14T09:26:53Z", got)
}
