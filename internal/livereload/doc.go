// Package livereload pushes update notifications to the browser.
//
// The Channel listens on its own port (35729 by default) and holds at most
// one browser connection: a new connection takes the slot and the previous
// one is simply forgotten. Notify with no connection is a no-op.
//
// Two wire formats exist and a process uses exactly one of them, chosen by
// liveReload.protocol:
//
//	structured: {"hot": true, "change": "/build/index.css"}
//	compact:    hot | reload
//
// The client script served to the browser is rendered from the same
// settings, so the two ends always agree on the format.
package livereload
