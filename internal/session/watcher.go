package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 150 * time.Millisecond

// Watcher observes the session database file and calls [Store.Refresh] after it changes,
// so a login or logout in another musiq process reaches this one.
//
// It is a best-effort signal: the store stays authoritative and missed events only delay the update.
type Watcher struct {
	store    *Store
	base     string
	fs       *fsnotify.Watcher
	logger   *log.Logger
	debounce time.Duration
}

// NewWatcher watches the directory containing dbPath. SQLite writes through journal and WAL
// siblings, so any file sharing the database's base name counts.
func NewWatcher(store *Store, dbPath string, logger *log.Logger) (*Watcher, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return nil, fmt.Errorf("%w: cannot watch %q", shared.ErrInvalidArgument, dbPath)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		store:    store,
		base:     filepath.Base(abs),
		fs:       fw,
		logger:   shared.WithLogger(logger, "component", "session-watcher"),
		debounce: defaultDebounce,
	}, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			w.store.Refresh()
		}
	}
}

// Close stops the underlying watcher; Run returns shortly after.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), w.base)
}
