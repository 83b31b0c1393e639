package watch

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/tio-dev/tio/internal/bundle"
	"github.com/tio-dev/tio/internal/livereload"
	"github.com/tio-dev/tio/internal/metrics"
)

// ExitRestart is the exit status used when a server-extension directory
// changes. It asks the supervisor to start the process again.
const ExitRestart = 75

// Rebuilder forces a bundle pass.
type Rebuilder interface {
	Rebuild(ctx context.Context) bundle.Result
}

// Notifier delivers notifications to the browser.
type Notifier interface {
	Notify(n livereload.Notification)
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Rules are the extension sets. Default: DefaultRules().
	Rules Rules

	// Rebuilder runs style-triggered rebuilds.
	Rebuilder Rebuilder

	// Notifier receives hot and reload notifications.
	Notifier Notifier

	// Exit terminates the process. Default: os.Exit.
	Exit func(code int)

	// Debounce coalesces repeated events for the same path in Run.
	Debounce time.Duration

	// Logger receives coordinator decisions. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records classified events. May be nil.
	Metrics *metrics.Metrics
}

// Coordinator acts on classified changes.
type Coordinator struct {
	rules     Rules
	rebuilder Rebuilder
	notifier  Notifier
	exit      func(int)
	debounce  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	ready atomic.Bool
}

// NewCoordinator creates a coordinator. It ignores source and public
// changes until MarkReady is called.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	if opts.Rules.StyleExtensions == nil && opts.Rules.HotExtensions == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		rules:     opts.Rules,
		rebuilder: opts.Rebuilder,
		notifier:  opts.Notifier,
		exit:      opts.Exit,
		debounce:  opts.Debounce,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// MarkReady records that the first bundle pass has completed.
func (c *Coordinator) MarkReady() {
	c.ready.Store(true)
}

// Ready reports whether MarkReady has been called.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// Handle classifies one change and performs its action.
func (c *Coordinator) Handle(ctx context.Context, change Change) {
	action := Classify(change.Root, change.Path, c.rules)
	c.metrics.ObserveFSEvent(change.Root.String(), action.String())

	if action == ActionExit {
		c.logger.Info("server extension changed, restarting", "root", change.Root.String(), "path", change.Path)
		c.exit(ExitRestart)
		return
	}
	if action == ActionIgnore {
		c.logger.Debug("change ignored", "root", change.Root.String(), "path", change.Path)
		return
	}
	if !c.Ready() {
		c.logger.Debug("change before first build", "root", change.Root.String(), "path", change.Path)
		return
	}

	switch action {
	case ActionRebuild:
		c.rebuild(ctx, change)
	case ActionNotifyHot, ActionNotifyReload:
		c.notify(change, action == ActionNotifyHot)
	}
}

func (c *Coordinator) rebuild(ctx context.Context, change Change) {
	if c.rebuilder == nil {
		return
	}
	result := c.rebuilder.Rebuild(ctx)
	switch {
	case result.Skipped:
		c.logger.Debug("rebuild skipped", "path", change.Path)
	case !result.Success:
		c.logger.Error("rebuild failed", "path", change.Path, "duration", result.Duration, "error", result.Error)
	default:
		c.logger.Info("rebuilt", "path", change.Path, "duration", result.Duration)
	}
}

// notify sends one notification. Hot comes from the public-side
// classification alone; a style rebuild only produces the public write
// that triggers it.
func (c *Coordinator) notify(change Change, hot bool) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(livereload.Notification{Hot: hot, Change: change.Path})
	if hot {
		c.logger.Debug("hot update", "path", change.Path)
	} else {
		c.logger.Info("live reload", "path", change.Path)
	}
}

// Run handles changes until the channel closes or ctx is done. With a
// debounce interval, repeated events for the same path inside the interval
// collapse into one.
func (c *Coordinator) Run(ctx context.Context, changes <-chan Change) error {
	if c.debounce <= 0 {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case change, ok := <-changes:
				if !ok {
					return nil
				}
				c.Handle(ctx, change)
			}
		}
	}

	pending := make(map[Change]*time.Timer)
	fire := make(chan Change)
	defer func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return c.flush(ctx, pending, fire)
			}
			if timer, exists := pending[change]; exists {
				// A timer that already fired is delivering the change.
				if timer.Stop() {
					timer.Reset(c.debounce)
				}
				continue
			}
			pending[change] = time.AfterFunc(c.debounce, func() {
				select {
				case fire <- change:
				case <-ctx.Done():
				}
			})
		case change := <-fire:
			delete(pending, change)
			c.Handle(ctx, change)
		}
	}
}

// flush handles every debounced change still waiting once the input closes.
func (c *Coordinator) flush(ctx context.Context, pending map[Change]*time.Timer, fire <-chan Change) error {
	for change, timer := range pending {
		if timer.Stop() {
			delete(pending, change)
			c.Handle(ctx, change)
		}
	}
	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-fire:
			delete(pending, change)
			c.Handle(ctx, change)
		}
	}
	return nil
}
