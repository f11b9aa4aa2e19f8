package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/session"
	"github.com/desertthunder/musiq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// screen describes a read-only CLI command as a mountable view.
type screen[T any] struct {
	name   string
	key    string
	fetch  tasks.FetchFunc[T]
	match  func(events.Event, string) bool
	render func(T) error
}

// mount loads s once and renders it. With --watch the view stays mounted until interrupted,
// re-rendering whenever the session changes, including logins made by another musiq process.
func mount[T any](ctx context.Context, r *Runner, cmd *cli.Command, s screen[T]) error {
	watch := cmd.Bool("watch")

	var mu sync.Mutex
	var renderErr error
	view := tasks.NewView(r.bus, tasks.ViewOpts[T]{
		Name:   s.name,
		Fetch:  s.fetch,
		Kinds:  []events.Kind{events.KindSessionChanged, events.KindCollectionChanged},
		Match:  s.match,
		Logger: r.logger,
		OnSettle: func(snap tasks.Snapshot[T]) {
			mu.Lock()
			defer mu.Unlock()
			if watch {
				r.writePlain("\n[%s] %s\n", time.Now().Format("15:04:05"), s.name)
			}
			if snap.Err != nil {
				if watch {
					r.writePlain("✗ %v\n", snap.Err)
				}
				return
			}
			renderErr = errors.Join(renderErr, s.render(snap.Data))
		},
	})

	err := view.Mount(ctx, s.key)
	defer view.Unmount()
	if err != nil && !watch {
		return err
	}

	if !watch {
		mu.Lock()
		defer mu.Unlock()
		return renderErr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	w, err := session.NewWatcher(r.store, r.config.Database.Path, r.logger)
	if err != nil {
		r.logger.Warn("watching without file watcher", "error", err)
	} else {
		defer w.Close()
		go w.Run(ctx)
	}

	r.logger.Info("watching, press ctrl+c to stop", "view", s.name)
	<-ctx.Done()
	return nil
}
