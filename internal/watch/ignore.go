package watch

import (
	"path"
	"strings"
)

// Ignore holds patterns for paths the watcher skips.
//
// Each pattern is split on separators and matches when its segments match a
// run of consecutive path segments. Segments are compared as globs, so "*.swp"
// ignores any swap file and "build/*.map" ignores source maps directly under
// any build directory.
type Ignore []string

// Match reports whether the path is ignored. Both slash and backslash
// separators are accepted.
func (ig Ignore) Match(p string) bool {
	names := segments(p)
	for _, pattern := range ig {
		globs := segments(pattern)
		if len(globs) == 0 {
			continue
		}
		for start := 0; start+len(globs) <= len(names); start++ {
			if matchRun(globs, names[start:start+len(globs)]) {
				return true
			}
		}
	}
	return false
}

func matchRun(globs, names []string) bool {
	for i, g := range globs {
		if g == names[i] {
			continue
		}
		if ok, _ := path.Match(g, names[i]); !ok {
			return false
		}
	}
	return true
}

// segments splits p into its non-empty names, dropping "." entries.
func segments(p string) []string {
	fields := strings.FieldsFunc(strings.TrimSpace(p), func(r rune) bool {
		return r == '/' || r == '\\'
	})
	names := fields[:0]
	for _, f := range fields {
		if f != "." {
			names = append(names, f)
		}
	}
	return names
}
