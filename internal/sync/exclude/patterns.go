package exclude

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is read from the root of the watched directory when present
const IgnoreFileName = ".gdsyncignore"

// Matcher decides which local paths are mirrored. Exclusions use gitignore
// syntax; includes, when set, are doublestar globs a file must match.
type Matcher struct {
	ignore   *gitignore.GitIgnore
	includes []string
}

func DefaultPatterns() []string {
	return []string{
		IgnoreFileName,
		".git/",
		".DS_Store",
		"._*",
		"*.swp",
		"*.tmp",
		"*~",
	}
}

func New(patterns []string) *Matcher {
	return &Matcher{ignore: gitignore.CompileIgnoreLines(mergePatterns(patterns)...)}
}

// Load builds a matcher from the defaults, patterns, and root's ignore file
func Load(root string, patterns, includes []string) (*Matcher, error) {
	lines := mergePatterns(patterns)
	ignorePath := filepath.Join(root, IgnoreFileName)

	m := &Matcher{includes: cleanPatterns(includes)}
	for _, p := range m.includes {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.New("invalid include pattern: " + p)
		}
	}

	if _, err := os.Stat(ignorePath); err == nil {
		ignore, err := gitignore.CompileIgnoreFileAndLines(ignorePath, lines...)
		if err != nil {
			return nil, err
		}
		m.ignore = ignore
		return m, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	m.ignore = gitignore.CompileIgnoreLines(lines...)
	return m, nil
}

// IsExcluded reports whether relPath (slash separated, relative to the watched
// root) should be skipped
func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = strings.TrimPrefix(path.Clean(filepath.ToSlash(relPath)), "./")
	if relPath == "." || relPath == "" {
		return false
	}

	candidate := relPath
	if isDir {
		candidate += "/"
	}
	if m.ignore != nil && m.ignore.MatchesPath(candidate) {
		return true
	}
	if isDir || len(m.includes) == 0 {
		return false
	}
	for _, p := range m.includes {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return false
		}
	}
	return true
}

func mergePatterns(patterns []string) []string {
	return append(DefaultPatterns(), cleanPatterns(patterns)...)
}

func cleanPatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
