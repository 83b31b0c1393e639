package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No tio.json or tio.yaml was found in the project directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not one of the accepted values.",
	},

	// ============================================
	// Bundle Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryBundle,
		Message:  "Failed to create build context",
		Detail:   "esbuild rejected the build options. The previous output in the public directory is still served.",
	},
	"E111": {
		Category: CategoryBundle,
		Message:  "Build failed",
		Detail:   "The build pass reported errors. The last successful output is still served.",
	},
	"E112": {
		Category: CategoryCompile,
		Message:  "Component compilation failed",
		Detail:   "The component compiler returned an error. The module was replaced with empty output for this pass.",
	},
	"E113": {
		Category: CategoryBundle,
		Message:  "Virtual stylesheet not registered",
		Detail:   "A component stylesheet was imported but no compiled CSS was registered for it in this build context.",
	},

	// ============================================
	// Server Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryServer,
		Message:  "HTTP listener failed",
		Detail:   "The HTTP server could not bind to its address. Another process may already be using the port.",
	},
	"E121": {
		Category: CategoryServer,
		Message:  "Live reload listener failed",
		Detail:   "The live reload endpoint could not bind to its port.",
	},

	// ============================================
	// Watch Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryWatch,
		Message:  "Failed to watch directory",
		Detail:   "The filesystem watcher could not subscribe to a watch root.",
	},

	// ============================================
	// Publish Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "Uploading the build output did not complete.",
	},
	"E141": {
		Category: CategoryPublish,
		Message:  "Publish target not configured",
		Detail:   "publish.bucket must be set in the configuration file.",
	},

	// ============================================
	// CLI Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryCLI,
		Message:  "Project already initialized",
		Detail:   "A configuration file already exists in this directory.",
	},
	"E151": {
		Category: CategoryCLI,
		Message:  "Unknown project template",
		Detail:   "The requested starter template does not exist.",
	},
}
