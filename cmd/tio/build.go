package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tio-dev/tio/internal/build"
	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/metrics"
)

func buildCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Run one minified bundle pass into the public directory and exit.

Examples:
  tio build
  tio build -C ./site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, config.ModeBuild)
			if err != nil {
				return err
			}
			_, err = runBuild(cmd.Context(), flags, cfg)
			return err
		},
	}

	return cmd
}

func runBuild(ctx context.Context, flags *globalFlags, cfg *config.Config) (*build.Result, error) {
	fmt.Fprintln(out, "  Building for production...")
	fmt.Fprintln(out)

	builder := build.New(cfg, build.Options{
		Logger:  newLogger(flags),
		Metrics: metrics.New(),
		OnProgress: func(step string) {
			info(step)
		},
	})

	result, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	for _, o := range result.Outputs {
		rel, err := filepath.Rel(cfg.Dir(), o.Path)
		if err != nil {
			rel = o.Path
		}
		info("%-40s %10s  (gzip %s)", rel, humanize.Bytes(uint64(o.Size)), humanize.Bytes(uint64(o.GzipSize)))
	}
	for _, w := range result.Warnings {
		warn("%s", w)
	}
	fmt.Fprintln(out)
	success("Built in %s", result.Duration.Round(1000000))
	return result, nil
}
