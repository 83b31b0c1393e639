package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tio-dev/tio/internal/errors"
)

const (
	// DefaultPort is the default HTTP port.
	DefaultPort = 3000

	// DefaultHost is the default host to bind to.
	DefaultHost = "localhost"

	// DefaultLiveReloadPort is the well-known live reload port.
	DefaultLiveReloadPort = 35729

	// DefaultScriptPath is where the client update agent is served in dev mode.
	DefaultScriptPath = "/lrscript.js"

	// DefaultRetryDelay is how long the client agent waits between reconnects.
	DefaultRetryDelay = 2 * time.Second
)

// ConfigFileNames lists the accepted configuration files in lookup order.
var ConfigFileNames = []string{"tio.json", "tio.yaml", "tio.yml"}

// Mode selects how the process runs. It is set by the CLI, never by the file.
type Mode string

const (
	// ModeDev serves, builds, watches and pushes live updates.
	ModeDev Mode = "dev"

	// ModeServe only serves the public directory.
	ModeServe Mode = "serve"

	// ModeBuild performs one minified build pass and exits.
	ModeBuild Mode = "build"
)

// Protocol names accepted for liveReload.protocol.
const (
	ProtocolStructured = "structured"
	ProtocolCompact    = "compact"
)

// Swap strategies accepted for liveReload.swap.
const (
	SwapTargeted = "targeted"
	SwapAll      = "all"
)

// Config represents the complete tio configuration.
type Config struct {
	// Host is the host the HTTP server binds to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the HTTP server port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// PublicDir is the static/output directory.
	PublicDir string `json:"publicDir,omitempty" yaml:"publicDir,omitempty"`

	// SrcDir is the source directory watched for style changes.
	SrcDir string `json:"srcDir,omitempty" yaml:"srcDir,omitempty"`

	// Entry is the bundle entry point.
	Entry string `json:"entry,omitempty" yaml:"entry,omitempty"`

	// ServerDirs are server-extension directories (plugins, routes).
	// A change under any of them terminates the process.
	ServerDirs []string `json:"serverDirs,omitempty" yaml:"serverDirs,omitempty"`

	// APIPrefix is the URL prefix handed to the API mount.
	APIPrefix string `json:"apiPrefix,omitempty" yaml:"apiPrefix,omitempty"`

	// HTTPS contains TLS and redirect listener settings.
	HTTPS HTTPSConfig `json:"https,omitempty" yaml:"https,omitempty"`

	// LiveReload contains live update channel settings.
	LiveReload LiveReloadConfig `json:"liveReload,omitempty" yaml:"liveReload,omitempty"`

	// Build contains bundler settings.
	Build BuildConfig `json:"build,omitempty" yaml:"build,omitempty"`

	// Compiler contains component compiler settings.
	Compiler CompilerConfig `json:"compiler,omitempty" yaml:"compiler,omitempty"`

	// Watch contains filesystem watch settings.
	Watch WatchConfig `json:"watch,omitempty" yaml:"watch,omitempty"`

	// Publish contains S3 publish settings.
	Publish PublishConfig `json:"publish,omitempty" yaml:"publish,omitempty"`

	// Mode is the execution mode chosen on the command line.
	Mode Mode `json:"-" yaml:"-"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// dir is the project directory.
	dir string
}

// HTTPSConfig contains TLS settings.
type HTTPSConfig struct {
	// Enabled serves over TLS and starts the redirect listener.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// CertFile is the TLS certificate path.
	CertFile string `json:"certFile,omitempty" yaml:"certFile,omitempty"`

	// KeyFile is the TLS key path.
	KeyFile string `json:"keyFile,omitempty" yaml:"keyFile,omitempty"`

	// HTTPPort is the plain HTTP port that redirects to HTTPS.
	HTTPPort int `json:"httpPort,omitempty" yaml:"httpPort,omitempty"`
}

// LiveReloadConfig contains live update channel settings.
type LiveReloadConfig struct {
	// Port is the dedicated live reload port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Protocol is the notification wire format: "structured" or "compact".
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`

	// Swap is the stylesheet swap strategy: "targeted" or "all".
	Swap string `json:"swap,omitempty" yaml:"swap,omitempty"`

	// ScriptPath is the request path the client agent is served on.
	ScriptPath string `json:"scriptPath,omitempty" yaml:"scriptPath,omitempty"`

	// RetryDelay is the client reconnect delay (e.g. "2s").
	RetryDelay string `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
}

// BuildConfig contains bundler settings.
type BuildConfig struct {
	// Format is the output module format: "esm", "iife" or "cjs".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Minify enables minification. Always on in build mode.
	Minify bool `json:"minify,omitempty" yaml:"minify,omitempty"`

	// Sourcemap enables linked source maps.
	Sourcemap bool `json:"sourcemap,omitempty" yaml:"sourcemap,omitempty"`
}

// CompilerConfig contains component compiler settings.
type CompilerConfig struct {
	// Command is the compiler executable.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Args are passed to Command before any request is written.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Extensions are the component file extensions handed to the compiler.
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`

	// Options are passed through to the compiler on every call.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`

	// Timeout bounds a single compile call (e.g. "30s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// WatchConfig contains filesystem watch settings.
type WatchConfig struct {
	// Ignore contains patterns to skip (same matching rules as .gitignore-less globs).
	Ignore []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`

	// Debounce coalesces repeated events for the same path (e.g. "50ms").
	// Empty disables debouncing.
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
}

// PublishConfig contains S3 publish settings.
type PublishConfig struct {
	// Bucket is the destination bucket.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Region is the bucket region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (S3-compatible stores).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Concurrency is the number of parallel uploads.
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`

	// CacheControl is set on every uploaded object.
	CacheControl string `json:"cacheControl,omitempty" yaml:"cacheControl,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		PublicDir:  "public",
		SrcDir:     "src",
		Entry:      "src/index.js",
		ServerDirs: []string{"plugins", "routes"},
		APIPrefix:  "/api",
		HTTPS: HTTPSConfig{
			HTTPPort: 80,
		},
		LiveReload: LiveReloadConfig{
			Port:       DefaultLiveReloadPort,
			Protocol:   ProtocolStructured,
			Swap:       SwapTargeted,
			ScriptPath: DefaultScriptPath,
			RetryDelay: DefaultRetryDelay.String(),
		},
		Build: BuildConfig{
			Format: "esm",
		},
		Compiler: CompilerConfig{
			Command:    "node",
			Args:       []string{"tio.compiler.js"},
			Extensions: []string{".xht", ".ma"},
			Timeout:    "30s",
		},
		Watch: WatchConfig{
			Ignore: []string{".*"},
		},
		Publish: PublishConfig{
			Concurrency: 8,
		},
		Mode: ModeDev,
	}
	return cfg
}

// Load reads configuration from the specified project directory. A missing
// configuration file is not an error: the defaults are returned.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New("E101").Wrap(err)
	}

	for _, name := range ConfigFileNames {
		path := filepath.Join(abs, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	cfg := New()
	cfg.dir = abs
	return cfg, nil
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path).
				WithSuggestion("Run 'tio init' to create one")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid " + formatName(path))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.configPath = abs
	cfg.dir = filepath.Dir(abs)
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path. The format follows
// the file extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E101").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	c.dir = filepath.Dir(path)
	return nil
}

// Path returns the path where the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project directory.
func (c *Config) Dir() string {
	if c.dir == "" {
		wd, _ := os.Getwd()
		return wd
	}
	return c.dir
}

// SetDir sets the project directory paths are resolved against.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// applyDefaults fills in default values for fields the file left empty.
func (c *Config) applyDefaults() {
	d := New()

	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.PublicDir == "" {
		c.PublicDir = d.PublicDir
	}
	if c.SrcDir == "" {
		c.SrcDir = d.SrcDir
	}
	if c.Entry == "" {
		c.Entry = d.Entry
	}
	if c.ServerDirs == nil {
		c.ServerDirs = d.ServerDirs
	}
	if c.APIPrefix == "" {
		c.APIPrefix = d.APIPrefix
	}
	if c.HTTPS.HTTPPort == 0 {
		c.HTTPS.HTTPPort = d.HTTPS.HTTPPort
	}

	lr := &c.LiveReload
	if lr.Port == 0 {
		lr.Port = d.LiveReload.Port
	}
	if lr.Protocol == "" {
		lr.Protocol = d.LiveReload.Protocol
	}
	if lr.Swap == "" {
		if lr.Protocol == ProtocolCompact {
			lr.Swap = SwapAll
		} else {
			lr.Swap = d.LiveReload.Swap
		}
	}
	if lr.ScriptPath == "" {
		lr.ScriptPath = d.LiveReload.ScriptPath
	}
	if lr.RetryDelay == "" {
		lr.RetryDelay = d.LiveReload.RetryDelay
	}

	if c.Build.Format == "" {
		c.Build.Format = d.Build.Format
	}

	if c.Compiler.Command == "" {
		c.Compiler.Command = d.Compiler.Command
		if c.Compiler.Args == nil {
			c.Compiler.Args = d.Compiler.Args
		}
	}
	if len(c.Compiler.Extensions) == 0 {
		c.Compiler.Extensions = d.Compiler.Extensions
	}
	if c.Compiler.Timeout == "" {
		c.Compiler.Timeout = d.Compiler.Timeout
	}

	if c.Watch.Ignore == nil {
		c.Watch.Ignore = d.Watch.Ignore
	}

	if c.Publish.Concurrency == 0 {
		c.Publish.Concurrency = d.Publish.Concurrency
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"port":            c.Port,
		"liveReload.port": c.LiveReload.Port,
		"https.httpPort":  c.HTTPS.HTTPPort,
	} {
		if port < 0 || port > 65535 {
			return errors.New("E102").
				WithDetail(fmt.Sprintf("%s must be between 0 and 65535, got %d", name, port))
		}
	}

	switch c.LiveReload.Protocol {
	case ProtocolStructured, ProtocolCompact:
	default:
		return errors.New("E102").
			WithDetail(fmt.Sprintf("liveReload.protocol must be %q or %q, got %q",
				ProtocolStructured, ProtocolCompact, c.LiveReload.Protocol))
	}

	switch c.LiveReload.Swap {
	case SwapTargeted:
		if c.LiveReload.Protocol == ProtocolCompact {
			return errors.New("E102").
				WithDetail("liveReload.swap \"targeted\" needs the changed path, which the compact protocol does not carry").
				WithSuggestion(`Use "swap": "all" with the compact protocol`)
		}
	case SwapAll:
	default:
		return errors.New("E102").
			WithDetail(fmt.Sprintf("liveReload.swap must be %q or %q, got %q",
				SwapTargeted, SwapAll, c.LiveReload.Swap))
	}

	if !strings.HasPrefix(c.LiveReload.ScriptPath, "/") {
		return errors.New("E102").
			WithDetail("liveReload.scriptPath must start with /")
	}

	if _, err := c.LiveReload.RetryInterval(); err != nil {
		return errors.New("E102").WithDetail("liveReload.retryDelay: " + err.Error())
	}
	if _, err := c.Watch.DebounceInterval(); err != nil {
		return errors.New("E102").WithDetail("watch.debounce: " + err.Error())
	}
	if _, err := c.Compiler.TimeoutDuration(); err != nil {
		return errors.New("E102").WithDetail("compiler.timeout: " + err.Error())
	}

	if c.Entry == "" {
		return errors.New("E102").WithDetail("entry must not be empty")
	}

	if err := c.validateRoots(); err != nil {
		return err
	}

	switch c.Build.Format {
	case "esm", "iife", "cjs":
	default:
		return errors.New("E102").
			WithDetail(fmt.Sprintf("build.format must be esm, iife or cjs, got %q", c.Build.Format))
	}

	if c.HTTPS.Enabled && (c.HTTPS.CertFile == "" || c.HTTPS.KeyFile == "") {
		return errors.New("E102").
			WithDetail("https.certFile and https.keyFile are required when https.enabled is true")
	}

	return nil
}

// validateRoots rejects watch roots that overlap: every change must
// belong to exactly one of srcDir, publicDir and the server directories.
func (c *Config) validateRoots() error {
	type root struct{ name, value, path string }
	roots := []root{
		{"srcDir", c.SrcDir, c.SrcPath()},
		{"publicDir", c.PublicDir, c.PublicPath()},
	}
	for i, dir := range c.ServerDirs {
		if dir != "" {
			roots = append(roots, root{fmt.Sprintf("serverDirs[%d]", i), dir, c.resolve(dir)})
		}
	}

	for i, a := range roots {
		for _, b := range roots[i+1:] {
			if strings.HasPrefix(a.name, "serverDirs") && strings.HasPrefix(b.name, "serverDirs") {
				continue
			}
			if within(a.path, b.path) || within(b.path, a.path) {
				return errors.New("E102").
					WithDetail(fmt.Sprintf("%s (%s) and %s (%s) overlap; watched directories must be disjoint",
						a.name, a.value, b.name, b.value))
			}
		}
	}
	return nil
}

// within reports whether child is parent or lies below it.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// RetryInterval parses RetryDelay.
func (l LiveReloadConfig) RetryInterval() (time.Duration, error) {
	return parseDuration(l.RetryDelay, DefaultRetryDelay)
}

// DebounceInterval parses Debounce; zero means disabled.
func (w WatchConfig) DebounceInterval() (time.Duration, error) {
	return parseDuration(w.Debounce, 0)
}

// TimeoutDuration parses Timeout; zero means no limit.
func (c CompilerConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(c.Timeout, 0)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// Minify reports whether output should be minified for the current mode.
func (c *Config) Minify() bool {
	return c.Build.Minify || c.Mode == ModeBuild
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// URL returns the URL the app is reachable on.
func (c *Config) URL() string {
	scheme := "http"
	if c.HTTPS.Enabled {
		scheme = "https"
	}
	if (scheme == "https" && c.Port == 443) || (scheme == "http" && c.Port == 80) {
		return scheme + "://" + c.Host
	}
	return scheme + "://" + c.Address()
}

// LiveReloadAddress returns the live reload listen address.
func (c *Config) LiveReloadAddress() string {
	return c.Host + ":" + strconv.Itoa(c.LiveReload.Port)
}

// RedirectAddress returns the plain HTTP redirect listen address.
func (c *Config) RedirectAddress() string {
	return c.Host + ":" + strconv.Itoa(c.HTTPS.HTTPPort)
}

// PublicPath returns the absolute path to the public directory.
func (c *Config) PublicPath() string {
	return c.resolve(c.PublicDir)
}

// SrcPath returns the absolute path to the source directory.
func (c *Config) SrcPath() string {
	return c.resolve(c.SrcDir)
}

// EntryPath returns the absolute path to the bundle entry point.
func (c *Config) EntryPath() string {
	return c.resolve(c.Entry)
}

// ServerDirPaths returns the absolute paths of the server-extension directories.
func (c *Config) ServerDirPaths() []string {
	paths := make([]string, 0, len(c.ServerDirs))
	for _, dir := range c.ServerDirs {
		if dir == "" {
			continue
		}
		paths = append(paths, c.resolve(dir))
	}
	return paths
}

// IndexPath returns the absolute path to the SPA index document.
func (c *Config) IndexPath() string {
	return filepath.Join(c.PublicPath(), "index.html")
}

func (c *Config) resolve(path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func formatName(path string) string {
	if isYAML(path) {
		return "YAML"
	}
	return "JSON"
}
