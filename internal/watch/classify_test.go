package watch

import "testing"

func TestClassify(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name string
		root Root
		path string
		want Action
	}{
		{"server plugin", RootServer, "/auth.js", ActionExit},
		{"server route any ext", RootServer, "/users/index.json", ActionExit},
		{"src scss", RootSource, "/styles/main.scss", ActionRebuild},
		{"src css", RootSource, "/reset.css", ActionRebuild},
		{"src sass", RootSource, "/theme.sass", ActionRebuild},
		{"src less", RootSource, "/theme.less", ActionRebuild},
		{"src upper case", RootSource, "/MAIN.SCSS", ActionRebuild},
		{"src js", RootSource, "/index.js", ActionIgnore},
		{"src component", RootSource, "/App.xht", ActionIgnore},
		{"src no ext", RootSource, "/Makefile", ActionIgnore},
		{"public css", RootPublic, "/index.css", ActionNotifyHot},
		{"public nested css", RootPublic, "/build/app.css", ActionNotifyHot},
		{"public backslash css", RootPublic, `\build\app.css`, ActionNotifyHot},
		{"public scss", RootPublic, "/raw.scss", ActionNotifyReload},
		{"public js", RootPublic, "/index.js", ActionNotifyReload},
		{"public html", RootPublic, "/index.html", ActionNotifyReload},
		{"public map", RootPublic, "/index.css.map", ActionNotifyReload},
		{"unknown root", Root(9), "/a.css", ActionIgnore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.root, tt.path, rules); got != tt.want {
				t.Errorf("Classify(%v, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
			}
		})
	}
}

func TestClassify_PublicNeverBoth(t *testing.T) {
	rules := DefaultRules()
	for _, p := range []string{"/a.css", "/a.js", "/a.html", "/a.png", "/a", "/dir.css/file.js"} {
		got := Classify(RootPublic, p, rules)
		if got != ActionNotifyHot && got != ActionNotifyReload {
			t.Errorf("Classify(public, %q) = %v, want a notification", p, got)
		}
		isCSS := got == ActionNotifyHot
		if wantCSS := len(p) > 4 && p[len(p)-4:] == ".css"; isCSS != wantCSS {
			t.Errorf("Classify(public, %q) = %v", p, got)
		}
	}
}

func TestClassify_CustomRules(t *testing.T) {
	rules := Rules{StyleExtensions: []string{".styl"}, HotExtensions: []string{".css", ".styl"}}
	if got := Classify(RootSource, "/a.styl", rules); got != ActionRebuild {
		t.Errorf("got %v, want rebuild", got)
	}
	if got := Classify(RootSource, "/a.scss", rules); got != ActionIgnore {
		t.Errorf("got %v, want ignore", got)
	}
	if got := Classify(RootPublic, "/a.styl", rules); got != ActionNotifyHot {
		t.Errorf("got %v, want hot", got)
	}
}

func TestRootAndActionString(t *testing.T) {
	roots := map[Root]string{RootServer: "server", RootSource: "src", RootPublic: "public", Root(7): "unknown"}
	for r, want := range roots {
		if got := r.String(); got != want {
			t.Errorf("Root(%d).String() = %q, want %q", r, got, want)
		}
	}
	actions := map[Action]string{
		ActionIgnore:       "ignore",
		ActionRebuild:      "rebuild",
		ActionNotifyHot:    "hot",
		ActionNotifyReload: "reload",
		ActionExit:         "exit",
		Action(42):         "unknown",
	}
	for a, want := range actions {
		if got := a.String(); got != want {
			t.Errorf("Action(%d).String() = %q, want %q", a, got, want)
		}
	}
}
