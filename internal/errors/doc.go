// Package errors provides structured, coded errors for the tio dev server.
//
// Every failure the dev loop can report has a registered code (e.g. "E112")
// mapping to a category, a short message and a longer explanation. Errors
// are built with a small fluent API and rendered either compactly for logs
// or as a coloured block for the terminal.
//
// # Categories
//
//   - config: tio.json / tio.yaml problems
//   - bundle: esbuild context or build pass failures
//   - compile: a single component failed to compile
//   - server: listener failures (HTTP, HTTPS redirect, live reload)
//   - watch: filesystem subscription failures
//   - publish: uploading build output
//   - cli: project initialization
//
// # Usage
//
//	err := errors.New("E112").
//	    WithLocation(absPath, "src/App.xht", 12, 4).
//	    WithDetail(compilerOutput).
//	    Wrap(cause)
//
//	slog.Error("compile failed", "error", errors.Compact(err))
//	errors.Fprint(os.Stderr, err)
package errors
