package watch

import (
	"path"
	"strings"
)

// Root identifies a watch root.
type Root int

const (
	// RootServer holds server-extension directories.
	RootServer Root = iota

	// RootSource is the source directory.
	RootSource

	// RootPublic is the public/output directory.
	RootPublic
)

// String returns the string representation of the root.
func (r Root) String() string {
	switch r {
	case RootServer:
		return "server"
	case RootSource:
		return "src"
	case RootPublic:
		return "public"
	default:
		return "unknown"
	}
}

// Action is what the coordinator does for a change.
type Action int

const (
	// ActionIgnore drops the change.
	ActionIgnore Action = iota

	// ActionRebuild forces a bundle rebuild.
	ActionRebuild

	// ActionNotifyHot pushes a stylesheet swap to the browser.
	ActionNotifyHot

	// ActionNotifyReload asks the browser to reload.
	ActionNotifyReload

	// ActionExit terminates the process.
	ActionExit
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionRebuild:
		return "rebuild"
	case ActionNotifyHot:
		return "hot"
	case ActionNotifyReload:
		return "reload"
	case ActionExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Rules are the extension sets Classify works with.
type Rules struct {
	// StyleExtensions are style-language sources that force a rebuild.
	StyleExtensions []string

	// HotExtensions are output files that can be swapped in place.
	HotExtensions []string
}

// DefaultRules returns the default extension sets.
func DefaultRules() Rules {
	return Rules{
		StyleExtensions: []string{".scss", ".css", ".sass", ".less"},
		HotExtensions:   []string{".css"},
	}
}

// Classify decides the action for a change under root.
func Classify(root Root, p string, rules Rules) Action {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(p, `\`, "/")))

	switch root {
	case RootServer:
		return ActionExit
	case RootSource:
		if hasExt(rules.StyleExtensions, ext) {
			return ActionRebuild
		}
		return ActionIgnore
	case RootPublic:
		if hasExt(rules.HotExtensions, ext) {
			return ActionNotifyHot
		}
		return ActionNotifyReload
	default:
		return ActionIgnore
	}
}

func hasExt(exts []string, ext string) bool {
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
