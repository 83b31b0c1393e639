package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tio-dev/tio/internal/config"
	tioerrors "github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/metrics"
)

const indexHTML = `<!doctype html><html><head><title>app</title></head><body></body></html>`

func newProject(t *testing.T, mode config.Mode) *config.Config {
	t.Helper()
	dir := t.TempDir()
	public := filepath.Join(dir, "public")
	if err := os.MkdirAll(filepath.Join(public, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"index.html":     indexHTML,
		"build/app.css":  "body{}",
		"build/index.js": "console.log(1)",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(public, filepath.FromSlash(name)), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.New()
	cfg.SetDir(dir)
	cfg.Mode = mode
	return cfg
}

func newServer(t *testing.T, cfg *config.Config, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return New(cfg, opts)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestServer_StaticFiles(t *testing.T) {
	s := newServer(t, newProject(t, config.ModeServe), Options{})

	rec := get(t, s.Handler(), "/build/app.css?v=3")
	if rec.Code != 200 || rec.Body.String() != "body{}" {
		t.Fatalf("GET app.css = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("Content-Type = %q, want text/css", ct)
	}

	rec = get(t, s.Handler(), "/build/index.js")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Errorf("Content-Type = %q, want text/javascript", ct)
	}

	if rec := get(t, s.Handler(), "/missing.png"); rec.Code != 404 {
		t.Errorf("GET missing.png = %d, want 404", rec.Code)
	}
}

func TestServer_SPAFallback(t *testing.T) {
	tests := []struct {
		name     string
		mode     config.Mode
		injected bool
	}{
		{"dev injects agent", config.ModeDev, true},
		{"serve leaves index untouched", config.ModeServe, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, newProject(t, tt.mode), Options{})
			for _, target := range []string{"/", "/users/42", "/index.html"} {
				rec := get(t, s.Handler(), target)
				if rec.Code != 200 {
					t.Fatalf("GET %s = %d", target, rec.Code)
				}
				if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
					t.Errorf("GET %s Content-Type = %q", target, ct)
				}
				body := rec.Body.String()
				has := strings.Contains(body, `<script src="/lrscript.js"></script></head>`)
				if has != tt.injected {
					t.Errorf("GET %s injected = %v, want %v:\n%s", target, has, tt.injected, body)
				}
			}
		})
	}
}

func TestServer_FallbackWithoutIndex(t *testing.T) {
	cfg := newProject(t, config.ModeDev)
	os.Remove(cfg.IndexPath())
	s := newServer(t, cfg, Options{})
	if rec := get(t, s.Handler(), "/somewhere"); rec.Code != 404 {
		t.Errorf("GET /somewhere without index = %d, want 404", rec.Code)
	}
}

func TestServer_ScriptOnlyInDev(t *testing.T) {
	dev := newServer(t, newProject(t, config.ModeDev), Options{})
	rec := get(t, dev.Handler(), "/lrscript.js")
	if rec.Code != 200 {
		t.Fatalf("dev GET /lrscript.js = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "WebSocket") {
		t.Error("script body is not the client agent")
	}

	serve := newServer(t, newProject(t, config.ModeServe), Options{})
	if rec := get(t, serve.Handler(), "/lrscript.js"); rec.Code != 404 {
		t.Errorf("serve GET /lrscript.js = %d, want 404", rec.Code)
	}
}

func TestServer_APIMount(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api:" + r.URL.Path))
	})
	s := newServer(t, newProject(t, config.ModeDev), Options{API: api})

	rec := get(t, s.Handler(), "/api/users")
	if rec.Body.String() != "api:/api/users" {
		t.Errorf("GET /api/users = %q", rec.Body.String())
	}

	def := newServer(t, newProject(t, config.ModeDev), Options{})
	if rec := get(t, def.Handler(), "/api/users"); rec.Code != 404 {
		t.Errorf("default API = %d, want 404", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	var notReady error = errors.New("bundle not ready")
	s := newServer(t, newProject(t, config.ModeDev), Options{
		Metrics: metrics.New(),
		Ready:   func() error { return notReady },
	})

	if rec := get(t, s.Handler(), "/__tio/live"); rec.Code != 200 {
		t.Errorf("live = %d, want 200", rec.Code)
	}
	if rec := get(t, s.Handler(), "/__tio/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", rec.Code)
	}
	notReady = nil
	if rec := get(t, s.Handler(), "/__tio/ready"); rec.Code != 200 {
		t.Errorf("ready = %d, want 200", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	m.ObserveNotification("hot")
	s := newServer(t, newProject(t, config.ModeDev), Options{Metrics: m})

	rec := get(t, s.Handler(), "/__tio/metrics")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "tio_notifications_total") {
		t.Errorf("metrics = %d\n%s", rec.Code, rec.Body.String())
	}

	bare := newServer(t, newProject(t, config.ModeDev), Options{})
	if rec := get(t, bare.Handler(), "/__tio/metrics"); rec.Code != 404 {
		t.Errorf("metrics without collectors = %d, want 404", rec.Code)
	}
}

func TestRedirectHandler(t *testing.T) {
	tests := []struct {
		host   string
		target string
		want   string
	}{
		{"example.com", "/a?b=1", "https://example.com:443/a?b=1"},
		{"example.com:8080", "/", "https://example.com:443/"},
		{"localhost", "/users/42", "https://localhost:443/users/42"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.target, nil)
		req.Host = tt.host
		rec := httptest.NewRecorder()
		RedirectHandler().ServeHTTP(rec, req)

		if rec.Code != http.StatusMovedPermanently {
			t.Errorf("%s%s status = %d, want 301", tt.host, tt.target, rec.Code)
		}
		if got := rec.Header().Get("Location"); got != tt.want {
			t.Errorf("Location = %q, want %q", got, tt.want)
		}
	}
}

func TestInjectScript(t *testing.T) {
	got := string(injectScript([]byte("<head></head><head></head>"), "/lr.js"))
	if got != `<head><script src="/lr.js"></script></head><head></head>` {
		t.Errorf("injectScript() = %q", got)
	}
	if got := string(injectScript([]byte("<p>no head</p>"), "/lr.js")); got != "<p>no head</p>" {
		t.Errorf("injectScript() without head = %q", got)
	}
}

func TestMimeType(t *testing.T) {
	tests := map[string]string{
		"/a.css":        "text/css",
		"/a.ico":        "image/x-icon",
		"/a.woff2":      "font/woff2",
		"/users/42":     "",
		"/":             "",
		"/x.unknownext": "",
	}
	for p, want := range tests {
		got := mimeType(p)
		if want == "" && got != "" || want != "" && !strings.HasPrefix(got, want) {
			t.Errorf("mimeType(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestServer_ListenAndServeBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := newProject(t, config.ModeServe)
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	s := newServer(t, cfg, Options{})

	err = s.ListenAndServe(context.Background())
	if !tioerrors.HasCode(err, "E120") {
		t.Fatalf("ListenAndServe() = %v, want E120", err)
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := newServer(t, newProject(t, config.ModeServe), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/build/app.css")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return")
	}
}
