// Package bundle owns the incremental esbuild session used by the dev server.
//
// It has two parts:
//
//   - LoaderPlugin hands component files (by default .xht and .ma) to the
//     external compiler and exposes each component's extracted stylesheet as
//     a virtual CSS module. The compiled JavaScript gets an extra import of
//     "<file>.malina.css"; a resolve hook moves that import into the private
//     "malinacss" namespace and a load hook serves it from memory.
//   - Context wraps one esbuild build context. Start creates it, runs the
//     first pass and (in dev mode) enables esbuild's own watch mode. Rebuild
//     forces one synchronous pass. Dispose releases it.
//
// Build and compile failures are logged and contained: the dev server keeps
// serving the last output that was written successfully.
package bundle
