package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/tio-dev/tio/internal/errors"
)

// Data is passed to every template file.
type Data struct {
	// Name is the project name shown in the page title.
	Name string

	// PublicDir is the served directory.
	PublicDir string

	// SrcDir is the source directory.
	SrcDir string

	// Entry is the bundle entry point relative to the project.
	Entry string

	// ScriptName is the bundled entry file name in PublicDir.
	ScriptName string
}

// Template is a set of starter files.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files maps templated relative paths to templated contents.
	Files map[string]string
}

var templates = map[string]*Template{
	"minimal":   minimalTemplate(),
	"component": componentTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New("E151").
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: " + strings.Join(List(), ", "))
	}
	return tmpl, nil
}

// List returns the template names in order.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create writes the template into dir and returns the written paths,
// relative to dir and sorted. Files that already exist are skipped.
func (t *Template) Create(dir string, data Data) ([]string, error) {
	var written []string
	for relTmpl, content := range t.Files {
		relPath, err := render(relTmpl, relTmpl, data)
		if err != nil {
			return nil, err
		}
		body, err := render(relTmpl, content, data)
		if err != nil {
			return nil, err
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if _, err := os.Stat(fullPath); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(fullPath, []byte(body), 0644); err != nil {
			return nil, err
		}
		written = append(written, relPath)
	}
	sort.Strings(written)
	return written, nil
}

func render(name, text string, data Data) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", errors.New("E151").WithDetail("invalid template file " + name).Wrap(err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.New("E151").WithDetail("template file " + name).Wrap(err)
	}
	return buf.String(), nil
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Name}}</title>
  <link rel="stylesheet" href="/global.css">
  <link rel="stylesheet" href="/{{.ScriptName}}.css">
</head>
<body>
  <div id="app"></div>
  <script type="module" src="/{{.ScriptName}}.js"></script>
</body>
</html>
`

const globalCSS = `body {
  margin: 0;
  font-family: system-ui, sans-serif;
}
`

func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "index.html, an entry script and a global stylesheet",
		Files: map[string]string{
			"{{.PublicDir}}/index.html": indexHTML,
			"{{.PublicDir}}/global.css": globalCSS,
			"{{.Entry}}": `const app = document.getElementById('app');
app.textContent = 'Hello from {{.Name}}';
`,
		},
	}
}

func componentTemplate() *Template {
	return &Template{
		Name:        "component",
		Description: "minimal plus a compiled component with scoped styles",
		Files: map[string]string{
			"{{.PublicDir}}/index.html": indexHTML,
			"{{.PublicDir}}/global.css": globalCSS,
			"{{.Entry}}": `import App from './App.xht';

App(document.getElementById('app'));
`,
			"{{.SrcDir}}/App.xht": `<script>
  let name = '{{.Name}}';
</script>

<h1>Hello {name}!</h1>

<style>
  h1 {
    color: #2563eb;
  }
</style>
`,
		},
	}
}
