package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/formatter"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestName     = "export_manifest.json"
)

// RunRecorder persists export runs. [repositories.ExportRunRepository] satisfies it.
type RunRecorder interface {
	Create(run *models.ExportRun) error
	Update(run *models.ExportRun) error
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string       // json, csv, markdown, text
	OutputDir  string       // Base output directory (default: musiq_export_{epoch})
	IDs        []int64      // Playlists to export; empty exports all of the user's playlists
	NumWorkers int          // Concurrent writers (default: 4, max: 10)
	RateLimit  float64      // Backend requests per second (default: 5)
	HTTPClient *http.Client // Used for cover downloads in markdown exports
}

// Exporter writes the user's playlists and their songs to disk.
type Exporter struct {
	backend services.Collections
	runs    RunRecorder
	logger  *log.Logger
}

// NewExporter creates an Exporter. runs may be nil to skip run bookkeeping.
func NewExporter(backend services.Collections, runs RunRecorder, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{backend: backend, runs: runs, logger: shared.WithLogger(logger, "component", "exporter")}
}

type exportJob struct {
	index  int
	export *models.PlaylistExport
}

type indexedResult struct {
	index int
	formatter.PlaylistExportResult
}

// BulkExport exports playlists concurrently.
//
// Song lists are fetched one at a time under the rate limiter and handed to a pool of
// writers. A playlist that fails to fetch or write is recorded as failed and does not
// stop the others. A manifest summarizing the run is written to the output directory.
func (e *Exporter) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, opts BulkExportOpts) (*formatter.BulkExportResult, error) {
	format, ok := formatter.NormalizeFormat(opts.Format)
	if !ok {
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("musiq_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, maxWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	playlists, err := e.selectPlaylists(ctx, prog, opts.IDs)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	run := models.NewExportRun(format, opts.OutputDir, len(playlists))
	if e.runs != nil {
		if err := e.runs.Create(run); err != nil {
			e.logger.Warn("failed to record export run", "error", err)
		}
	}

	result := &formatter.BulkExportResult{
		RunID:           run.ID,
		TotalPlaylists:  len(playlists),
		OutputDirectory: opts.OutputDir,
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(playlists))
	results := make(chan indexedResult, len(playlists))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(&wg, jobs, results, format, opts)
	}

	go func() {
		defer close(jobs)
		for i, p := range playlists {
			if err := limiter.Wait(ctx); err != nil {
				results <- failed(i, p, err)
				continue
			}

			sendProgress(prog, fetchSongsUpdate(i+1, len(playlists), p))
			songs, err := e.backend.PlaylistSongs(ctx, p.ID)
			if err != nil {
				results <- failed(i, p, fmt.Errorf("failed to fetch songs: %w", err))
				continue
			}
			jobs <- exportJob{index: i, export: &models.PlaylistExport{Playlist: p, Songs: songs}}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexedResult, 0, len(playlists))
	for res := range results {
		collected = append(collected, res)
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(len(collected), len(playlists), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "id", res.PlaylistID, "error", res.Error)
			sendProgress(prog, exportFailedUpdate(len(collected), len(playlists), res.PlaylistName, res.Error))
		}
	}

	slices.SortFunc(collected, func(a, b indexedResult) int { return a.index - b.index })
	result.Results = make([]formatter.PlaylistExportResult, len(collected))
	for i, r := range collected {
		result.Results[i] = r.PlaylistExportResult
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := formatter.WriteBulkExportManifest(*result, format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	if e.runs != nil && run.ID != "" {
		run.Finish(result.SuccessfulExports, result.FailedExports, manifestPath)
		if err := e.runs.Update(run); err != nil {
			e.logger.Warn("failed to finish export run", "id", run.ID, "error", err)
		}
	}
	return result, nil
}

// selectPlaylists resolves ids to playlists in first-seen order, dropping repeats, or lists all
// of them when ids is empty.
func (e *Exporter) selectPlaylists(ctx context.Context, prog chan<- ProgressUpdate, ids []int64) ([]models.Playlist, error) {
	sendProgress(prog, fetchingPlaylistsUpdate())
	all, err := e.backend.MyPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	sendProgress(prog, foundPlaylistsUpdate(all))

	if len(ids) == 0 {
		return all, nil
	}

	byID := make(map[int64]models.Playlist, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	selected := make([]models.Playlist, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

func (e *Exporter) exportWorker(wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- indexedResult, format string, opts BulkExportOpts) {
	defer wg.Done()

	for job := range jobs {
		p := job.export.Playlist
		res := indexedResult{
			index: job.index,
			PlaylistExportResult: formatter.PlaylistExportResult{
				PlaylistID:   p.ID,
				PlaylistName: p.Title,
			},
		}

		files, err := formatter.WriteExport(job.export, format, opts.OutputDir, opts.HTTPClient)
		if err != nil {
			res.Error = err
		} else {
			res.Success = true
			res.Files = files
		}
		results <- res
	}
}

func failed(index int, p models.Playlist, err error) indexedResult {
	return indexedResult{
		index: index,
		PlaylistExportResult: formatter.PlaylistExportResult{
			PlaylistID:   p.ID,
			PlaylistName: p.Title,
			Error:        err,
		},
	}
}
