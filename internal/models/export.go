package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/musiq/internal/shared"
)

// ExportFormats lists the file formats a playlist can be exported to.
var ExportFormats = []string{"json", "csv", "markdown", "text"}

// ExportRun records one bulk export of the user's playlists.
type ExportRun struct {
	ID           string     `json:"id" yaml:"id"`
	Format       string     `json:"format" yaml:"format"`
	OutputDir    string     `json:"output_dir" yaml:"output_dir"`
	Total        int        `json:"total" yaml:"total"`
	Succeeded    int        `json:"succeeded" yaml:"succeeded"`
	Failed       int        `json:"failed" yaml:"failed"`
	ManifestPath string     `json:"manifest_path,omitempty" yaml:"manifest_path,omitempty"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// NewExportRun starts a run now.
func NewExportRun(format, outputDir string, total int) *ExportRun {
	return &ExportRun{
		Format:    format,
		OutputDir: outputDir,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the run as complete with the given counts.
func (r *ExportRun) Finish(succeeded, failed int, manifest string) {
	now := time.Now().UTC()
	r.Succeeded = succeeded
	r.Failed = failed
	r.ManifestPath = manifest
	r.FinishedAt = &now
}

// Done reports whether the run has finished.
func (r *ExportRun) Done() bool { return r.FinishedAt != nil }

func (r *ExportRun) Validate() error {
	if !slices.Contains(ExportFormats, r.Format) {
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, r.Format)
	}
	if r.OutputDir == "" {
		return fmt.Errorf("%w: output directory", shared.ErrMissingArgument)
	}
	if r.Succeeded+r.Failed > r.Total {
		return fmt.Errorf("%w: %d results for %d playlists", shared.ErrInvalidInput, r.Succeeded+r.Failed, r.Total)
	}
	return nil
}
