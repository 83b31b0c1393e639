package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/tio-dev/tio/internal/compiler"
	"github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/metrics"
)

const (
	// PluginName is the esbuild plugin name.
	PluginName = "tio-loader"

	// CSSNamespace is the private namespace virtual stylesheets resolve into.
	CSSNamespace = "malinacss"

	// CSSMarker is the extension that marks a virtual stylesheet import.
	CSSMarker = ".malina.css"
)

var cssMarkerFilter = regexp.QuoteMeta(CSSMarker) + "$"

// LoaderOptions configures a LoaderPlugin.
type LoaderOptions struct {
	// Extensions are the component extensions handled by the plugin.
	Extensions []string

	// Options are passed through to the compiler on every call.
	Options map[string]any

	// Logger receives compile failures.
	Logger *slog.Logger

	// Metrics records compile results. May be nil.
	Metrics *metrics.Metrics
}

// LoaderPlugin compiles component files and serves their virtual stylesheets.
// esbuild runs load callbacks on several goroutines, so the stylesheet table
// is a concurrent map.
type LoaderPlugin struct {
	compiler   compiler.Compiler
	extensions []string
	options    map[string]any
	logger     *slog.Logger
	metrics    *metrics.Metrics
	styles     cmap.ConcurrentMap[string, string]
}

// NewLoaderPlugin creates a loader plugin around c.
func NewLoaderPlugin(c compiler.Compiler, opts LoaderOptions) *LoaderPlugin {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".xht", ".ma"}
	}
	return &LoaderPlugin{
		compiler:   c,
		extensions: exts,
		options:    opts.Options,
		logger:     logger,
		metrics:    opts.Metrics,
		styles:     cmap.New[string](),
	}
}

// Filter returns the esbuild filter matching the component extensions.
func (p *LoaderPlugin) Filter() string {
	alts := make([]string, 0, len(p.extensions))
	for _, ext := range p.extensions {
		alts = append(alts, regexp.QuoteMeta(strings.TrimPrefix(ext, ".")))
	}
	return `\.(` + strings.Join(alts, "|") + `)$`
}

// Plugin returns the esbuild plugin with its three hooks.
func (p *LoaderPlugin) Plugin() api.Plugin {
	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			p.logVersion()

			build.OnLoad(api.OnLoadOptions{Filter: p.Filter()}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				return p.Load(context.Background(), args.Path)
			})

			build.OnResolve(api.OnResolveOptions{Filter: cssMarkerFilter}, p.ResolveCSS)

			build.OnLoad(api.OnLoadOptions{Filter: cssMarkerFilter, Namespace: CSSNamespace}, p.LoadCSS)
		},
	}
}

// Load compiles one component file. A compile failure is logged and yields
// empty contents so one bad file never stops the build.
func (p *LoaderPlugin) Load(ctx context.Context, file string) (api.OnLoadResult, error) {
	result := api.OnLoadResult{
		Loader:     api.LoaderJS,
		ResolveDir: filepath.Dir(file),
		WatchFiles: []string{file},
	}

	code, err := p.compile(ctx, file)
	if err != nil {
		p.metrics.ObserveCompile(false)
		p.logger.Error("compile failed", "path", file, "error", err)
		empty := ""
		result.Contents = &empty
		result.Warnings = []api.Message{{Text: err.Error()}}
		return result, nil
	}

	p.metrics.ObserveCompile(true)
	result.Contents = &code
	return result, nil
}

func (p *LoaderPlugin) compile(ctx context.Context, file string) (string, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return "", errors.New("E112").WithDetail(file).Wrap(err)
	}

	out, err := p.compiler.Compile(ctx, string(source), compiler.Options{
		Path:  file,
		Name:  ComponentName(file),
		Extra: p.options,
	})
	if err != nil {
		return "", err
	}

	code := out.JS
	cssPath := VirtualCSSPath(file)
	if out.CSS == "" {
		p.styles.Remove(cssPath)
		return code, nil
	}

	p.styles.Set(cssPath, out.CSS)
	code += fmt.Sprintf("\nimport %q;", cssPath)
	return code, nil
}

// ResolveCSS moves a virtual stylesheet import into the private namespace.
// Imports that were never registered fail to resolve.
func (p *LoaderPlugin) ResolveCSS(args api.OnResolveArgs) (api.OnResolveResult, error) {
	if !p.styles.Has(args.Path) {
		return api.OnResolveResult{
			Errors: []api.Message{{Text: errors.New("E113").WithDetail(args.Path).Error()}},
		}, nil
	}
	return api.OnResolveResult{Path: args.Path, Namespace: CSSNamespace}, nil
}

// LoadCSS serves a virtual stylesheet from the table.
func (p *LoaderPlugin) LoadCSS(args api.OnLoadArgs) (api.OnLoadResult, error) {
	css, ok := p.Stylesheet(args.Path)
	if !ok {
		return api.OnLoadResult{
			Errors: []api.Message{{Text: errors.New("E113").WithDetail(args.Path).Error()}},
		}, nil
	}
	return api.OnLoadResult{Contents: &css, Loader: api.LoaderCSS}, nil
}

// Stylesheet returns the registered CSS for a virtual path.
func (p *LoaderPlugin) Stylesheet(virtualPath string) (string, bool) {
	return p.styles.Get(virtualPath)
}

// Len returns the number of registered virtual stylesheets.
func (p *LoaderPlugin) Len() int {
	return p.styles.Count()
}

func (p *LoaderPlugin) logVersion() {
	if show, ok := p.options["displayVersion"].(bool); ok && !show {
		return
	}
	v, ok := p.compiler.(interface {
		Version(context.Context) (string, error)
	})
	if !ok {
		return
	}
	version, err := v.Version(context.Background())
	if err != nil {
		p.logger.Debug("compiler version unavailable", "error", err)
		return
	}
	p.logger.Info("component compiler", "version", version)
}

// ComponentName returns the final path segment without its extension.
func ComponentName(file string) string {
	base := path.Base(strings.ReplaceAll(file, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// VirtualCSSPath derives the virtual stylesheet path of a component file:
// the extension is replaced by the marker and separators become slashes.
func VirtualCSSPath(file string) string {
	p := strings.ReplaceAll(file, `\`, "/")
	return strings.TrimSuffix(p, path.Ext(p)) + CSSMarker
}
