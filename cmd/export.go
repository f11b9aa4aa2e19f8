package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/desertthunder/musiq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// exportOpts merges the export flags over the [export] config section.
func (r *Runner) exportOpts(cmd *cli.Command) (tasks.BulkExportOpts, error) {
	defaults := r.config.Export
	opts := tasks.BulkExportOpts{
		Format:     defaults.Format,
		OutputDir:  defaults.OutputDir,
		NumWorkers: defaults.Workers,
		RateLimit:  defaults.RateLimit,
		HTTPClient: r.httpClient,
	}
	if cmd.IsSet("format") {
		opts.Format = cmd.String("format")
	}
	if cmd.IsSet("dir") {
		opts.OutputDir = cmd.String("dir")
	}
	if cmd.IsSet("workers") {
		opts.NumWorkers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("rate-limit") {
		opts.RateLimit = cmd.Float("rate-limit")
	}
	if opts.Format == "" {
		opts.Format = "json"
	}

	for _, raw := range cmd.StringSlice("id") {
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return opts, fmt.Errorf("%w: --id must be a positive number, got %q", shared.ErrInvalidFlag, part)
			}
			opts.IDs = append(opts.IDs, id)
		}
	}
	return opts, nil
}

// Export writes the user's playlists with their songs to disk and records the run.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	opts, err := r.exportOpts(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("starting export", "format", opts.Format, "ids", len(opts.IDs))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchSongs:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.ExportPlaylist:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.exporter.BulkExport(ctx, progressCh, opts)
	close(progressCh)
	<-drained

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s (ID: %d): %v\n", res.PlaylistName, res.PlaylistID, res.Error)
			}
		}
	}
	return nil
}

// ExportRuns lists recorded export runs, newest first.
func (r *Runner) ExportRuns(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}
	if r.runs == nil {
		return fmt.Errorf("%w: export runs need the database", shared.ErrStorage)
	}

	runs, err := r.runs.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return r.render(cmd, runs, func() error {
		if len(runs) == 0 {
			return r.writePlain("No exports yet\n")
		}
		for _, run := range runs {
			r.writeRun(run)
		}
		return nil
	})
}

func (r *Runner) writeRun(run *models.ExportRun) {
	status := "running"
	if run.Done() {
		status = fmt.Sprintf("%d/%d exported", run.Succeeded, run.Total)
		if run.Failed > 0 {
			status += fmt.Sprintf(", %d failed", run.Failed)
		}
	}
	r.writePlain("• %s  %s  %-8s %s (%s)\n", run.StartedAt.Local().Format("2006-01-02 15:04"), shared.Truncate(run.ID, 8), run.Format, run.OutputDir, status)
}
