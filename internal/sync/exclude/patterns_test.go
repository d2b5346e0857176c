package exclude

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatcher_Defaults(t *testing.T) {
	m := New(nil)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"report.pdf", false, false},
		{"sub/report.pdf", false, false},
		{".DS_Store", false, true},
		{"photos/.DS_Store", false, true},
		{"._report.pdf", false, true},
		{"draft.txt.swp", false, true},
		{".git", true, true},
		{".git/config", false, true},
		{"budget.xlsx~", false, true},
		{IgnoreFileName, false, true},
		{".", true, false},
	}
	for _, tt := range tests {
		if got := m.IsExcluded(tt.path, tt.isDir); got != tt.want {
			t.Errorf("IsExcluded(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestMatcher_CustomPatterns(t *testing.T) {
	m := New([]string{"*.bak", "cache/", "  "})

	if !m.IsExcluded("notes.bak", false) {
		t.Error("*.bak should be excluded")
	}
	if !m.IsExcluded("cache/blob", false) {
		t.Error("files under cache/ should be excluded")
	}
	if m.IsExcluded("notes.txt", false) {
		t.Error("notes.txt should be included")
	}
}

func TestMatcher_NilIsPermissive(t *testing.T) {
	var m *Matcher
	if m.IsExcluded(".DS_Store", false) {
		t.Error("nil matcher should exclude nothing")
	}
}

func TestLoad_IgnoreFileAndIncludes(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("# local rules\nsecret/\n*.iso\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(root, []string{"*.bak"}, []string{"**/*.pdf", "**/*.iso"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"report.pdf", false},
		{"deep/tree/report.pdf", false},
		{"notes.txt", true},
		{"secret/report.pdf", true},
		{"disk.iso", true},
		{"old.pdf.bak", true},
	}
	for _, tt := range tests {
		if got := m.IsExcluded(tt.path, false); got != tt.want {
			t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if m.IsExcluded("deep", true) {
		t.Error("include globs must not exclude directories")
	}
}

func TestLoad_InvalidInclude(t *testing.T) {
	if _, err := Load(t.TempDir(), nil, []string{"[unterminated"}); err == nil {
		t.Error("expected error for invalid include pattern")
	}
}
