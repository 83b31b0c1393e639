package server

import (
	"bytes"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/valyala/bytebufferpool"
)

const indexMime = "text/html; charset=utf-8"

// extraTypes covers extensions the platform table may not know.
var extraTypes = map[string]string{
	".ico":   "image/x-icon",
	".map":   "application/json",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".wav":   "audio/wav",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".doc":   "application/msword",
	".txt":   "text/plain; charset=utf-8",
}

// mimeType returns the content type for a request path, or "" when the
// path has no known extension.
func mimeType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return ""
	}
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// serveStatic serves a public file or falls back to index.html.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	urlPath := path.Clean("/" + r.URL.Path)
	contentType := mimeType(urlPath)
	from := ""
	if contentType == "" {
		from = urlPath
		urlPath = "/index.html"
		contentType = indexMime
	}

	file := s.cfg.IndexPath()
	if from == "" {
		file = filepath.Join(s.cfg.PublicPath(), filepath.FromSlash(urlPath))
	}

	status := http.StatusOK
	body, err := os.ReadFile(file)
	if err != nil {
		status = http.StatusNotFound
		body = nil
	}

	if status == http.StatusOK && s.dev && strings.HasSuffix(urlPath, "index.html") {
		body = injectScript(body, s.cfg.LiveReload.ScriptPath)
	}

	if from != "" {
		s.logger.Info("request", "status", status, "path", urlPath, "from", from)
	} else {
		s.logger.Info("request", "status", status, "path", urlPath)
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)
}

var headClose = []byte("</head>")

// injectScript inserts the client agent tag before the first </head>.
func injectScript(html []byte, scriptPath string) []byte {
	i := bytes.Index(html, headClose)
	if i < 0 {
		return html
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.Write(html[:i])
	buf.WriteString(`<script src="`)
	buf.WriteString(scriptPath)
	buf.WriteString(`"></script>`)
	buf.Write(html[i:])

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out
}
