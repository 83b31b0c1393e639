package watch

import "testing"

func TestIgnore_Match(t *testing.T) {
	tests := []struct {
		name    string
		ignore  Ignore
		path    string
		matched bool
	}{
		{"dotfile", Ignore{".*"}, "/.env", true},
		{"dot dir segment", Ignore{".*"}, "/.git/config", true},
		{"nested dot dir", Ignore{".*"}, "/styles/.cache/a.css", true},
		{"visible", Ignore{".*"}, "/styles/main.scss", false},
		{"exact segment", Ignore{"node_modules"}, "/node_modules/x/index.js", true},
		{"exact segment prefix only", Ignore{"node"}, "/node_modules/x.js", false},
		{"glob basename", Ignore{"*.swp"}, "/a/main.scss.swp", true},
		{"tilde backup", Ignore{"*~"}, "/main.scss~", true},
		{"path segments", Ignore{"build/tmp"}, "/build/tmp/x.css", true},
		{"path segments mismatch", Ignore{"build/tmp"}, "/build/x.css", false},
		{"path glob", Ignore{"build/*.map"}, "/build/index.js.map", true},
		{"path glob nested", Ignore{"build/*.map"}, "/pkg/build/a.js.map", true},
		{"path glob too deep", Ignore{"build/*.map"}, "/build/sub/a.js.map", false},
		{"glob run", Ignore{"cache/*/tmp"}, "/a/cache/v1/tmp/x.css", true},
		{"dot segments", Ignore{"./build/tmp"}, "/./build/tmp/x.css", true},
		{"pattern longer than path", Ignore{"a/b/c"}, "/a/b", false},
		{"malformed glob", Ignore{"[x"}, "/[x/a.css", true},
		{"windows separators", Ignore{`build\tmp`}, `\build\tmp\x.css`, true},
		{"blank patterns", Ignore{"", "  "}, "/a.css", false},
		{"none", nil, "/.env", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ignore.Match(tt.path); got != tt.matched {
				t.Errorf("Ignore(%v).Match(%q) = %v, want %v", tt.ignore, tt.path, got, tt.matched)
			}
		})
	}
}
