package bundle

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tio-dev/tio/internal/compiler"
	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/metrics"
)

const tracerName = "github.com/tio-dev/tio/internal/bundle"

// State is the lifecycle state of a Context.
type State int

const (
	// StateUninitialized means Start has not completed a first pass.
	StateUninitialized State = iota

	// StateReady means the session exists and Rebuild may be called.
	StateReady

	// StateDisposed means the session has been released.
	StateDisposed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Options configures a Context.
type Options struct {
	// Logger receives build output. Default: slog.Default().
	Logger *slog.Logger

	// Compiler compiles component files. Default: an ExecCompiler built
	// from the configuration.
	Compiler compiler.Compiler

	// Metrics records rebuilds and compiles. May be nil.
	Metrics *metrics.Metrics

	// Watch enables esbuild's incremental watch mode after the first pass.
	Watch bool

	// Metafile makes every pass report its inputs and outputs.
	Metafile bool
}

// Result contains the result of one build pass.
type Result struct {
	// Success indicates the pass produced no errors.
	Success bool

	// Skipped indicates the pass was not run because the session is not ready.
	Skipped bool

	// Duration is how long the pass took.
	Duration time.Duration

	// Errors are the bundler error messages.
	Errors []string

	// Warnings are the bundler warning messages.
	Warnings []string

	// Error is the build error, if any.
	Error error

	// Metafile is esbuild's JSON metadata when Options.Metafile is set.
	Metafile string
}

// Context owns one incremental bundling session.
type Context struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	loader  *LoaderPlugin
	tracer  trace.Tracer
	metrics *metrics.Metrics

	mu    sync.Mutex
	state State
	esb   api.BuildContext
	last  Result
}

// New creates a Context. Nothing is built until Start is called.
func New(cfg *config.Config, opts Options) *Context {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Compiler == nil {
		opts.Compiler = compiler.NewExecCompiler(cfg)
	}

	loader := NewLoaderPlugin(opts.Compiler, LoaderOptions{
		Extensions: cfg.Compiler.Extensions,
		Options:    cfg.Compiler.Options,
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
	})

	return &Context{
		cfg:     cfg,
		opts:    opts,
		logger:  opts.Logger,
		loader:  loader,
		tracer:  otel.Tracer(tracerName),
		metrics: opts.Metrics,
	}
}

// Loader returns the loader plugin used by the session.
func (c *Context) Loader() *LoaderPlugin {
	return c.loader
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether Rebuild may be called.
func (c *Context) Ready() bool {
	return c.State() == StateReady
}

// LastResult returns the result of the most recent pass.
func (c *Context) LastResult() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Start creates the session and runs the first pass. When Options.Watch is
// set, esbuild's watch mode is enabled afterwards. A first pass with bundle
// errors still leaves the session Ready; only a failure to create the
// session is returned.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return nil
	}

	esb, ctxErr := api.Context(c.buildOptions())
	if ctxErr != nil {
		c.mu.Unlock()
		err := errors.New("E110").WithDetail(joinMessages(ctxErr.Errors))
		c.logger.Error("bundle context failed", "error", err)
		return err
	}
	c.esb = esb
	c.state = StateReady
	c.mu.Unlock()

	result := c.Rebuild(ctx)
	c.logResult("initial build", result)

	if c.opts.Watch {
		if err := esb.Watch(api.WatchOptions{}); err != nil {
			c.logger.Warn("bundler watch mode unavailable", "error", err)
		}
	}
	return nil
}

// Rebuild forces one synchronous incremental pass. It is safe to call
// repeatedly and concurrently; before Start completes it returns a skipped
// result.
func (c *Context) Rebuild(ctx context.Context) Result {
	c.mu.Lock()
	esb, state := c.esb, c.state
	c.mu.Unlock()

	if state != StateReady {
		c.metrics.ObserveRebuild("skipped", 0)
		return Result{Skipped: true}
	}

	_, span := c.tracer.Start(ctx, "tio.bundle.rebuild",
		trace.WithAttributes(attribute.String("tio.entry", c.cfg.Entry)))
	defer span.End()

	start := time.Now()
	out := esb.Rebuild()
	result := Result{
		Success:  len(out.Errors) == 0,
		Duration: time.Since(start),
		Errors:   messages(out.Errors),
		Warnings: messages(out.Warnings),
		Metafile: out.Metafile,
	}

	if !result.Success {
		result.Error = c.buildError(out.Errors)
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, "build failed")
		c.metrics.ObserveRebuild("error", result.Duration)
	} else {
		c.metrics.ObserveRebuild("ok", result.Duration)
	}
	span.SetAttributes(
		attribute.Int("tio.errors", len(out.Errors)),
		attribute.Int("tio.warnings", len(out.Warnings)),
	)

	c.mu.Lock()
	c.last = result
	c.mu.Unlock()
	return result
}

// Dispose releases the session. Further Rebuild calls are skipped.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDisposed {
		return
	}
	if c.esb != nil {
		c.esb.Dispose()
		c.esb = nil
	}
	c.state = StateDisposed
}

func (c *Context) logResult(what string, r Result) {
	switch {
	case r.Skipped:
		c.logger.Debug(what+" skipped", "state", c.State().String())
	case !r.Success:
		c.logger.Error(what+" failed", "duration", r.Duration, "error", errors.Compact(r.Error))
	default:
		c.logger.Info(what+" complete", "duration", r.Duration, "warnings", len(r.Warnings))
	}
}

// buildError reports every message and points at the first located one.
func (c *Context) buildError(msgs []api.Message) *errors.TioError {
	err := errors.New("E111").WithDetail(joinMessages(msgs))
	for _, msg := range msgs {
		if loc := msg.Location; loc != nil && loc.File != "" {
			path := loc.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(c.cfg.Dir(), path)
			}
			return err.WithLocation(path, loc.File, loc.Line, loc.Column+1)
		}
	}
	return err
}

func (c *Context) buildOptions() api.BuildOptions {
	opts := api.BuildOptions{
		AbsWorkingDir: c.cfg.Dir(),
		EntryPoints:   []string{c.cfg.EntryPath()},
		Outdir:        c.cfg.PublicPath(),
		Bundle:        true,
		Write:         true,
		Format:        format(c.cfg.Build.Format),
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{c.loader.Plugin(), c.watchReporter()},
		Metafile:      c.opts.Metafile,
	}
	if c.cfg.Minify() {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	if c.cfg.Build.Sourcemap {
		opts.Sourcemap = api.SourceMapLinked
	}
	return opts
}

// watchReporter logs passes triggered by esbuild's own watch mode, which
// never go through Rebuild.
func (c *Context) watchReporter() api.Plugin {
	return api.Plugin{
		Name: "tio-reporter",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				for _, msg := range result.Errors {
					c.logger.Warn("bundle error", "error", formatMessage(msg))
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func format(name string) api.Format {
	switch name {
	case "iife":
		return api.FormatIIFE
	case "cjs":
		return api.FormatCommonJS
	default:
		return api.FormatESModule
	}
}

func messages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, formatMessage(msg))
	}
	return out
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return msg.Location.File + ": " + msg.Text
}

func joinMessages(msgs []api.Message) string {
	return strings.Join(messages(msgs), "\n")
}
