package build

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tio-dev/tio/internal/bundle"
	"github.com/tio-dev/tio/internal/compiler"
	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/metrics"
)

// Output is one file written by the build.
type Output struct {
	// Path is the output path relative to the project directory.
	Path string

	// Size is the file size in bytes.
	Size int64

	// GzipSize is the gzipped size in bytes.
	GzipSize int64
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Outputs are the written files, sorted by path.
	Outputs []Output

	// Warnings are bundler warnings.
	Warnings []string
}

// Options configures the builder.
type Options struct {
	// Logger receives build logs. Default: slog.Default().
	Logger *slog.Logger

	// Compiler compiles component files. Default: the configured exec compiler.
	Compiler compiler.Compiler

	// Metrics records the pass. May be nil.
	Metrics *metrics.Metrics

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder handles production builds.
type Builder struct {
	config  *config.Config
	options Options
}

// New creates a new builder. The configuration is copied and switched to
// build mode.
func New(cfg *config.Config, options Options) *Builder {
	c := *cfg
	c.Mode = config.ModeBuild
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Builder{
		config:  &c,
		options: options,
	}
}

// Build performs one minified pass and releases the session.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(b.config.PublicPath(), 0755); err != nil {
		return nil, errors.New("E111").WithDetail(b.config.PublicPath()).Wrap(err)
	}

	b.progress("Bundling " + b.config.Entry + "...")
	session := bundle.New(b.config, bundle.Options{
		Logger:   b.options.Logger,
		Compiler: b.options.Compiler,
		Metrics:  b.options.Metrics,
		Metafile: true,
	})
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	pass := session.LastResult()
	if n := session.Loader().Len(); n > 0 {
		b.progress(fmt.Sprintf("Extracted %d component stylesheets", n))
	}
	session.Dispose()

	if !pass.Success {
		return nil, pass.Error
	}

	b.progress("Measuring output...")
	outputs, err := b.outputs(pass.Metafile)
	if err != nil {
		return nil, err
	}

	return &Result{
		Duration: time.Since(start),
		Outputs:  outputs,
		Warnings: pass.Warnings,
	}, nil
}

type metafile struct {
	Outputs map[string]struct {
		Bytes int64 `json:"bytes"`
	} `json:"outputs"`
}

// outputs lists the files named in esbuild's metafile.
func (b *Builder) outputs(meta string) ([]Output, error) {
	if meta == "" {
		return nil, nil
	}
	var m metafile
	if err := json.Unmarshal([]byte(meta), &m); err != nil {
		return nil, errors.New("E111").WithDetail("invalid metafile").Wrap(err)
	}

	outputs := make([]Output, 0, len(m.Outputs))
	for path, info := range m.Outputs {
		out := Output{Path: filepath.ToSlash(path), Size: info.Bytes}
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(b.config.Dir(), path)
		}
		if size, err := gzipSize(full); err == nil {
			out.GzipSize = size
		}
		outputs = append(outputs, out)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Path < outputs[j].Path })
	return outputs, nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// gzipSize returns the gzipped size of a file.
func gzipSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	counter := &countingWriter{}
	zw, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(zw, f); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return counter.n, nil
}
