// Package templates provides starter files for new tio projects.
//
// # Available Templates
//
//   - minimal: index.html, an entry script and a global stylesheet
//   - component: minimal plus a compiled component with scoped styles
//
// # Usage
//
//	tmpl, err := templates.Get("component")
//	if err != nil {
//	    return err
//	}
//	written, err := tmpl.Create(projectDir, templates.Data{Name: "site"})
//
// Paths in a template are relative to the project directory and are laid
// out according to the project configuration (public and source
// directories). Existing files are never overwritten.
package templates
