// Package watch observes the three watch roots and decides what each change
// means for the dev loop.
//
// # Roots
//
//   - RootServer: server-extension directories (plugins, routes). They are
//     loaded once at process start, so any change exits the process with
//     ExitRestart and leaves the restart to a supervisor.
//   - RootSource: the source directory. Style sources (.scss, .css, .sass,
//     .less) force a bundle rebuild. Everything else is left to esbuild's
//     own watch mode.
//   - RootPublic: the output directory. Plain stylesheets are pushed as hot
//     updates; any other file asks the browser to reload.
//
// Classify is pure and holds the whole decision table. Subscribe turns an
// fsnotify watcher into a channel of Change values and Coordinator acts on
// them.
package watch
