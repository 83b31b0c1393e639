package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tio-dev/tio/internal/bundle"
	"github.com/tio-dev/tio/internal/compiler"
	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/livereload"
	"github.com/tio-dev/tio/internal/metrics"
	"github.com/tio-dev/tio/internal/server"
	"github.com/tio-dev/tio/internal/watch"
)

func devCmd(flags *globalFlags) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Serve the public directory, bundle the entry point and watch for changes.

Stylesheet changes are pushed to the browser and swapped in place.
Any other change under the public directory reloads the page. A change
under a server directory stops the process with exit code 75 so a
supervisor can restart it.

Examples:
  tio dev
  tio dev --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, config.ModeDev)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			return runDev(cmd.Context(), flags, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from tio.json)")

	return cmd
}

func runDev(ctx context.Context, flags *globalFlags, cfg *config.Config) error {
	logger := newLogger(flags)
	m := metrics.New()

	debounce, err := cfg.Watch.DebounceInterval()
	if err != nil {
		return err
	}

	printBanner()
	if p := cfg.Path(); p != "" {
		info("config %s", p)
	}
	info("dev server at %s", cfg.URL())
	info("live reload on %s", cfg.LiveReloadAddress())
	fmt.Fprintln(out)

	exec := compiler.NewExecCompiler(cfg)
	bctx := bundle.New(cfg, bundle.Options{
		Logger:   logger,
		Compiler: exec,
		Metrics:  m,
		Watch:    true,
	})
	defer bctx.Dispose()

	channel := livereload.NewChannel(livereload.ChannelOptions{
		Protocol: livereload.Protocol(cfg.LiveReload.Protocol),
		Logger:   logger,
		Metrics:  m,
	})

	srv := server.New(cfg, server.Options{
		Logger:  logger,
		Metrics: m,
		Ready: func() error {
			if !bctx.Ready() {
				return fmt.Errorf("bundle %s", bctx.State())
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exitCode := make(chan int, 1)
	coord := watch.NewCoordinator(watch.CoordinatorOptions{
		Rebuilder: bctx,
		Notifier:  channel,
		Debounce:  debounce,
		Logger:    logger,
		Metrics:   m,
		Exit: func(code int) {
			select {
			case exitCode <- code:
			default:
			}
			cancel()
		},
	})

	// The public directory receives build output; it must exist to be watched.
	if err := os.MkdirAll(cfg.PublicPath(), 0755); err != nil {
		return err
	}

	var subs []*watch.Subscription
	for root, dirs := range watch.RootDirs(cfg) {
		sub, err := watch.Subscribe(ctx, root, dirs, cfg.Watch.Ignore, logger)
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return err
		}
		logger.Debug("watching", "root", root.String(), "dirs", sub.Dirs())
		subs = append(subs, sub)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return channel.ListenAndServe(gctx, cfg.LiveReloadAddress())
	})
	g.Go(func() error {
		if err := bctx.Start(gctx); err != nil {
			// Keep serving whatever is already in the public directory.
			logger.Error("bundle failed to start", "error", err)
			return nil
		}
		coord.MarkReady()
		success("watching for changes")
		return nil
	})
	g.Go(func() error {
		return coord.Run(gctx, watch.Merge(gctx, subs...))
	})

	err = g.Wait()

	select {
	case code := <-exitCode:
		return &exitError{code: code}
	default:
	}
	if err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(out)
	info("shut down")
	return nil
}
