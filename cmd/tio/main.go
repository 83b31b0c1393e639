package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┬┐┬┌─┐
   │ ││ │
   ┴ ┴└─┘
`

// globalFlags are shared by every command.
type globalFlags struct {
	verbose bool
	dir     string
}

// exitError carries a process exit code out of a command without an
// error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	errors.Fprint(os.Stderr, err)
	return 1
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "tio",
		Short: "Development server for single-page apps",
		Long: `tio bundles, serves and live-updates a single-page application.

  • Component files compiled by an external compiler
  • Stylesheets swapped in place without a page reload
  • Full reload for everything else
  • One-shot minified builds and S3 publishing`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupStyles(cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "Project directory (default: working directory)")

	cmd.AddCommand(
		devCmd(flags),
		serveCmd(flags),
		buildCmd(flags),
		publishCmd(flags),
		initCmd(flags),
		versionCmd(),
	)

	return cmd
}

// newLogger builds the process logger.
func newLogger(flags *globalFlags) *slog.Logger {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// projectDir returns the absolute project directory.
func projectDir(flags *globalFlags) (string, error) {
	if flags.dir == "" {
		return os.Getwd()
	}
	return absPath(flags.dir)
}

// loadConfig loads and validates the project configuration for mode.
func loadConfig(flags *globalFlags, mode config.Mode) (*config.Config, error) {
	dir, err := projectDir(flags)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
