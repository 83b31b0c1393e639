package livereload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tio-dev/tio/internal/config"
)

// Protocol is a notification wire format.
type Protocol string

const (
	// Structured sends {"hot": bool, "change": path} objects.
	Structured Protocol = config.ProtocolStructured

	// Compact sends the bare strings "hot" and "reload".
	Compact Protocol = config.ProtocolCompact
)

const (
	compactHot    = "hot"
	compactReload = "reload"
)

// Notification tells the browser what changed.
type Notification struct {
	// Hot means a stylesheet can be swapped without reloading.
	Hot bool `json:"hot"`

	// Change is the public-root-relative path with a leading "/".
	Change string `json:"change"`
}

// Kind returns "hot" or "reload".
func (n Notification) Kind() string {
	if n.Hot {
		return compactHot
	}
	return compactReload
}

// Encode renders n in the given protocol.
func Encode(p Protocol, n Notification) ([]byte, error) {
	switch p {
	case Structured:
		return json.Marshal(n)
	case Compact:
		return []byte(n.Kind()), nil
	default:
		return nil, fmt.Errorf("unknown live reload protocol %q", p)
	}
}

// Decode parses a frame in the given protocol. The compact format carries
// no path, so Change is always empty for it.
func Decode(p Protocol, data []byte) (Notification, error) {
	switch p {
	case Structured:
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return Notification{}, fmt.Errorf("decode notification: %w", err)
		}
		return n, nil
	case Compact:
		switch strings.TrimSpace(string(data)) {
		case compactHot:
			return Notification{Hot: true}, nil
		case compactReload:
			return Notification{}, nil
		default:
			return Notification{}, fmt.Errorf("unknown compact notification %q", data)
		}
	default:
		return Notification{}, fmt.Errorf("unknown live reload protocol %q", p)
	}
}
