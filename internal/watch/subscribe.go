package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tio-dev/tio/internal/config"
	"github.com/tio-dev/tio/internal/errors"
)

// Change is one filesystem event under a watch root.
type Change struct {
	// Root is the watch root the event came from.
	Root Root

	// Base is the watched directory the path is relative to.
	Base string

	// Path is relative to Base, slash-separated, with a leading "/".
	Path string
}

// Subscription delivers the changes of one watch root.
type Subscription struct {
	// C receives changes until the subscription is closed.
	C <-chan Change

	root    Root
	watcher *fsnotify.Watcher
	ignore  Ignore
	logger  *slog.Logger
	out     chan Change
	bases   []string
	done    chan struct{}
	once    sync.Once
}

// Subscribe watches dirs recursively and yields their changes. Missing
// directories are skipped. Directories created later are added as they
// appear.
func Subscribe(ctx context.Context, root Root, dirs []string, ignore []string, logger *slog.Logger) (*Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.New("E130").WithDetail(root.String()).Wrap(err)
	}

	out := make(chan Change, 64)
	s := &Subscription{
		C:       out,
		root:    root,
		watcher: watcher,
		ignore:  Ignore(ignore),
		logger:  logger,
		out:     out,
		done:    make(chan struct{}),
	}

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			logger.Debug("watch root missing", "root", root.String(), "path", abs)
			continue
		}
		s.bases = append(s.bases, abs)
		if err := s.addTree(abs); err != nil {
			watcher.Close()
			return nil, errors.New("E130").WithDetail(abs).Wrap(err)
		}
	}

	go s.run(ctx)
	return s, nil
}

// Close stops the subscription and closes C.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}

// Dirs returns the directories actually being watched.
func (s *Subscription) Dirs() []string {
	return s.bases
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.out)
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			change, ok := s.change(event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.addTree(event.Name); err != nil {
						s.logger.Warn("failed to watch directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			select {
			case s.out <- change:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", "root", s.root.String(), "error", err)
		}
	}
}

// change maps an absolute event path to a Change, or reports false when
// the path is outside every base or ignored.
func (s *Subscription) change(name string) (Change, bool) {
	for _, base := range s.bases {
		rel, err := filepath.Rel(base, name)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = "/" + filepath.ToSlash(rel)
		if s.ignore.Match(rel) {
			return Change{}, false
		}
		return Change{Root: s.root, Base: base, Path: rel}, true
	}
	return Change{}, false
}

func (s *Subscription) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir {
			if _, ok := s.change(p); !ok {
				return filepath.SkipDir
			}
		}
		return s.watcher.Add(p)
	})
}

// Merge fans several subscriptions into one channel. The channel closes
// once every subscription has closed or ctx is done.
func Merge(ctx context.Context, subs ...*Subscription) <-chan Change {
	out := make(chan Change)
	var wg sync.WaitGroup
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		wg.Add(1)
		go func(c <-chan Change) {
			defer wg.Done()
			for change := range c {
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}(sub.C)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// RootDirs returns the directories of each watch root for a project.
func RootDirs(cfg *config.Config) map[Root][]string {
	return map[Root][]string{
		RootServer: unique(cfg.ServerDirPaths()),
		RootSource: unique([]string{cfg.SrcPath()}),
		RootPublic: unique([]string{cfg.PublicPath()}),
	}
}

func unique(paths []string) []string {
	result := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		result = append(result, clean)
	}
	return result
}
