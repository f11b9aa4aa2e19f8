package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musiq/internal/session"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/desertthunder/musiq/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal client.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	start, err := ui.ParseLocation(cmd.String("route"))
	if err != nil {
		return err
	}

	// Logs go to a file while the TUI owns the terminal.
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "./tmp/musiq-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.config.Session.Watch && r.store != nil {
		w, err := session.NewWatcher(r.store, r.config.Database.Path, r.logger)
		if err != nil {
			r.logger.Warn("session watcher disabled", "error", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Service: r.service,
		Library: r.library,
		Store:   r.store,
		Bus:     r.bus,
		Logger:  r.logger,
		Start:   start,
	})
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
