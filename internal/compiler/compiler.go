// Package compiler invokes the external component compiler.
//
// The compiler is an opaque executable. For every component file tio starts
// the configured command, writes one JSON request to its stdin and reads one
// JSON response from its stdout:
//
//	request:  {"source": "<file text>", "options": {"path": "...", "name": "...", ...}}
//	response: {"result": "<javascript>", "css": {"result": "<css>" | null | false}}
//
// A non-zero exit status, an "error" field in the response, or a response
// that does not decode is reported as a compile failure.
package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
)

const tracerName = "github.com/tio-dev/tio/internal/compiler"

// Options are passed to the compiler alongside the source text.
type Options struct {
	// Path is the component file path.
	Path string

	// Name is the component name (final path segment without extension).
	Name string

	// Extra are pass-through options from the configuration.
	Extra map[string]any
}

// Result is the output of one compile call.
type Result struct {
	// JS is the compiled JavaScript module.
	JS string

	// CSS is the extracted stylesheet, empty when the component has none.
	CSS string
}

// Compiler compiles one component source file.
type Compiler interface {
	Compile(ctx context.Context, source string, opts Options) (*Result, error)
}

// ExecCompiler runs the compiler as a subprocess per file.
type ExecCompiler struct {
	command string
	args    []string
	dir     string
	timeout time.Duration
	env     []string
	tracer  trace.Tracer
}

// NewExecCompiler creates a compiler from the project configuration.
func NewExecCompiler(cfg *config.Config) *ExecCompiler {
	timeout, _ := cfg.Compiler.TimeoutDuration()
	return &ExecCompiler{
		command: cfg.Compiler.Command,
		args:    cfg.Compiler.Args,
		dir:     cfg.Dir(),
		timeout: timeout,
		env:     append(os.Environ(), "TIO_MODE="+string(cfg.Mode)),
		tracer:  otel.Tracer(tracerName),
	}
}

type request struct {
	Source  string         `json:"source"`
	Options map[string]any `json:"options"`
}

type response struct {
	Result string          `json:"result"`
	CSS    json.RawMessage `json:"css"`
	Error  string          `json:"error,omitempty"`
}

type cssResponse struct {
	Result json.RawMessage `json:"result"`
}

// Compile implements Compiler.
func (c *ExecCompiler) Compile(ctx context.Context, source string, opts Options) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "tio.compile", trace.WithAttributes(
		attribute.String("tio.component.path", opts.Path),
		attribute.String("tio.component.name", opts.Name),
	))
	defer span.End()

	result, err := c.run(ctx, source, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("tio.component.css", result.CSS != ""))
	return result, nil
}

func (c *ExecCompiler) run(ctx context.Context, source string, opts Options) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(request{Source: source, Options: requestOptions(opts)})
	if err != nil {
		return nil, errors.New("E112").Wrap(err)
	}

	cmd := exec.CommandContext(ctx, c.command, c.args...)
	cmd.Dir = c.dir
	cmd.Env = c.env
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.New("E112").
			WithDetail(strings.TrimSpace(stderr.String())).
			Wrap(err)
	}

	return decodeResponse(stdout.Bytes())
}

// requestOptions merges pass-through options under path and name, which
// always win.
func requestOptions(opts Options) map[string]any {
	merged := make(map[string]any, len(opts.Extra)+2)
	for k, v := range opts.Extra {
		merged[k] = v
	}
	merged["path"] = opts.Path
	merged["name"] = opts.Name
	return merged
}

func decodeResponse(data []byte) (*Result, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.New("E112").
			WithDetail("compiler wrote an invalid response").
			Wrap(err)
	}
	if resp.Error != "" {
		return nil, errors.New("E112").WithDetail(resp.Error)
	}

	return &Result{
		JS:  resp.Result,
		CSS: cssText(resp.CSS),
	}, nil
}

// cssText extracts css.result, treating any non-string (null, false, missing)
// as "no stylesheet".
func cssText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var css cssResponse
	if err := json.Unmarshal(raw, &css); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(css.Result, &text); err != nil {
		return ""
	}
	return text
}

// Version asks the compiler for its version string by appending --version
// to the configured arguments. It is bounded by the compile timeout.
func (c *ExecCompiler) Version(ctx context.Context) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.args...), "--version")
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Dir = c.dir
	cmd.Env = c.env
	cmd.WaitDelay = time.Second

	out, err := cmd.Output()
	if err != nil {
		return "", errors.New("E112").WithDetail("could not query compiler version").Wrap(err)
	}
	return strings.TrimSpace(string(out)), nil
}
