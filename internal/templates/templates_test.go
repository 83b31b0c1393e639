package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tio-dev/tio/internal/errors"
)

func testData() Data {
	return Data{
		Name:       "site",
		PublicDir:  "public",
		SrcDir:     "src",
		Entry:      "src/index.js",
		ScriptName: "index",
	}
}

func TestGet(t *testing.T) {
	for _, name := range []string{"minimal", "component"} {
		tmpl, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", name, err)
		}
		if tmpl.Name != name {
			t.Errorf("Name = %q, want %q", tmpl.Name, name)
		}
	}

	_, err := Get("nonexistent")
	if !errors.HasCode(err, "E151") {
		t.Errorf("Get(nonexistent) error = %v, want E151", err)
	}
}

func TestList(t *testing.T) {
	if got := strings.Join(List(), ","); got != "component,minimal" {
		t.Errorf("List() = %q", got)
	}
}

func TestCreate_Minimal(t *testing.T) {
	dir := t.TempDir()
	tmpl, _ := Get("minimal")

	written, err := tmpl.Create(dir, testData())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	want := "public/global.css,public/index.html,src/index.js"
	if got := strings.Join(written, ","); got != want {
		t.Errorf("written = %q, want %q", got, want)
	}

	html, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<title>site</title>", `src="/index.js"`, `href="/index.css"`, "</head>"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}

func TestCreate_Component(t *testing.T) {
	dir := t.TempDir()
	data := testData()
	data.PublicDir = "www"
	data.Entry = "src/main.js"
	data.ScriptName = "main"
	tmpl, _ := Get("component")

	if _, err := tmpl.Create(dir, data); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, p := range []string{"www/index.html", "src/main.js", "src/App.xht"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
	app, _ := os.ReadFile(filepath.Join(dir, "src", "App.xht"))
	if !strings.Contains(string(app), "let name = 'site';") {
		t.Errorf("App.xht = %s", app)
	}
}

func TestCreate_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "src", "index.js")
	if err := os.MkdirAll(filepath.Dir(existing), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	tmpl, _ := Get("minimal")
	written, err := tmpl.Create(dir, testData())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, p := range written {
		if p == "src/index.js" {
			t.Error("existing entry was reported as written")
		}
	}
	if data, _ := os.ReadFile(existing); string(data) != "mine" {
		t.Errorf("existing file overwritten: %q", data)
	}
}
