package main

import (
	"github.com/spf13/cobra"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/metrics"
	"github.com/tio-dev/tio/internal/server"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the public directory",
		Long: `Serve the public directory without building or watching.

Unknown paths without a file extension fall back to index.html.

Examples:
  tio serve
  tio serve --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, config.ModeServe)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}

			srv := server.New(cfg, server.Options{
				Logger:  newLogger(flags),
				Metrics: metrics.New(),
			})
			info("serving %s at %s", cfg.PublicDir, cfg.URL())
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from tio.json)")

	return cmd
}
