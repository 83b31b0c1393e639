package livereload

import (
	"bytes"
	"net/http"
	"text/template"
	"time"

	"github.com/tio-dev/tio/internal/config"
)

// ScriptOptions configures the client agent.
type ScriptOptions struct {
	// Port is the live reload port the browser connects to.
	Port int

	// Protocol must match the Channel's protocol.
	Protocol Protocol

	// Swap is "targeted" (only the changed stylesheet) or "all".
	Swap string

	// RetryDelay is the wait between reconnect attempts.
	RetryDelay time.Duration
}

// ScriptOptionsFromConfig derives the client settings from the project
// configuration.
func ScriptOptionsFromConfig(cfg *config.Config) ScriptOptions {
	delay, _ := cfg.LiveReload.RetryInterval()
	return ScriptOptions{
		Port:       cfg.LiveReload.Port,
		Protocol:   Protocol(cfg.LiveReload.Protocol),
		Swap:       cfg.LiveReload.Swap,
		RetryDelay: delay,
	}
}

// The agent reconnects after every close and reloads the page once a
// reconnect succeeds. A hot notification swaps stylesheets by inserting a
// cache-busted clone after the original and removing the original only
// when the clone has loaded. A link being replaced is retired: later
// updates target its newest clone, and whichever clone loads removes every
// older link it supersedes.
var clientTemplate = template.Must(template.New("client").Parse(`(function() {
    'use strict';

    var url = (location.protocol === 'https:' ? 'wss://' : 'ws://') + location.hostname + ':{{.Port}}';
    var protocol = {{printf "%q" .Protocol}};
    var swap = {{printf "%q" .Swap}};
    var retryDelay = {{.RetryMillis}};
    var socket = connect(false);

    function connect(reloadOnOpen) {
        var s = new WebSocket(url);
        s.onmessage = receive;
        s.onclose = function() {
            setTimeout(function() {
                socket = connect(true);
            }, retryDelay);
        };
        if (reloadOnOpen) {
            s.onopen = function() {
                location.reload();
            };
        }
        return s;
    }

    function parse(data) {
        if (protocol === 'compact') {
            if (data === 'hot') return { hot: true, change: '' };
            if (data === 'reload') return { hot: false, change: '' };
            return null;
        }
        try {
            return JSON.parse(data);
        } catch (err) {
            return null;
        }
    }

    function receive(e) {
        var update = parse(e.data);
        if (!update) return;
        if (!update.hot) {
            location.reload();
            return;
        }
        if (swap === 'all') {
            stylesheets().forEach(replace);
            return;
        }
        var link = find(update.change);
        if (link) replace(link);
    }

    function stylesheets() {
        return Array.prototype.filter.call(document.querySelectorAll('link[rel="stylesheet"]'), function(l) {
            return !l.tioRetiring;
        });
    }

    function pathOf(href) {
        return String(href).replace(/^[a-z][a-z0-9+.-]*:\/\/[^\/]*/i, '').replace(/[?#].*$/, '');
    }

    function decode(p) {
        try {
            return decodeURI(p);
        } catch (err) {
            return p;
        }
    }

    function find(change) {
        var links = stylesheets();
        for (var i = 0; i < links.length; i++) {
            var p = pathOf(links[i].href);
            if (p === change || decode(p) === change) return links[i];
        }
        return null;
    }

    function replace(link) {
        var next = link.cloneNode();
        next.tioReplaces = link;
        link.tioRetiring = true;
        next.onload = function() {
            for (var old = next.tioReplaces; old; old = old.tioReplaces) {
                if (old.tioRemoved) break;
                old.tioRemoved = true;
                old.remove();
            }
        };
        next.href = pathOf(link.href) + '?' + Math.random().toString(16).slice(-6);
        link.parentNode.insertBefore(next, link.nextSibling);
    }
})();
`))

type scriptData struct {
	Port        int
	Protocol    Protocol
	Swap        string
	RetryMillis int64
}

// ClientScript renders the client agent.
func ClientScript(opts ScriptOptions) (string, error) {
	if opts.Port == 0 {
		opts.Port = config.DefaultLiveReloadPort
	}
	if opts.Protocol == "" {
		opts.Protocol = Structured
	}
	if opts.Swap == "" {
		opts.Swap = config.SwapTargeted
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = config.DefaultRetryDelay
	}

	var buf bytes.Buffer
	err := clientTemplate.Execute(&buf, scriptData{
		Port:        opts.Port,
		Protocol:    opts.Protocol,
		Swap:        opts.Swap,
		RetryMillis: opts.RetryDelay.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ScriptHandler serves the client agent as JavaScript.
func ScriptHandler(opts ScriptOptions) http.Handler {
	script, err := ClientScript(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write([]byte(script))
	})
}
