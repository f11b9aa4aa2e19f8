package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/musiq/internal/formatter"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
)

// memoryRuns is an in-memory RunRecorder.
type memoryRuns struct {
	created []*models.ExportRun
	updated []*models.ExportRun
	fail    error
}

func (m *memoryRuns) Create(run *models.ExportRun) error {
	if m.fail != nil {
		return m.fail
	}
	run.ID = "run-1"
	m.created = append(m.created, run)
	return nil
}

func (m *memoryRuns) Update(run *models.ExportRun) error {
	m.updated = append(m.updated, run)
	return nil
}

func drain(ch chan ProgressUpdate) <-chan []ProgressUpdate {
	done := make(chan []ProgressUpdate, 1)
	go func() {
		var got []ProgressUpdate
		for u := range ch {
			got = append(got, u)
		}
		done <- got
	}()
	return done
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		playlistCount  int
		validateResult func(t *testing.T, result *formatter.BulkExportResult, tempDir string)
	}{
		{
			name:          "single playlist json export",
			format:        "json",
			playlistCount: 1,
			validateResult: func(t *testing.T, result *formatter.BulkExportResult, tempDir string) {
				if len(result.Results[0].Files) != 1 {
					t.Errorf("expected 1 file, got %d", len(result.Results[0].Files))
				}
				if _, err := os.Stat(filepath.Join(tempDir, "playlist_1.json")); os.IsNotExist(err) {
					t.Error("JSON file not created")
				}
			},
		},
		{
			name:          "multiple playlists csv export",
			format:        "csv",
			playlistCount: 3,
			validateResult: func(t *testing.T, result *formatter.BulkExportResult, tempDir string) {
				for _, res := range result.Results {
					if len(res.Files) != 2 {
						t.Errorf("CSV export should create 2 files, got %d", len(res.Files))
					}
				}
			},
		},
		{
			name:          "markdown export",
			format:        "markdown",
			playlistCount: 2,
			validateResult: func(t *testing.T, result *formatter.BulkExportResult, tempDir string) {
				readme := filepath.Join(tempDir, "playlist_2", "README.md")
				if _, err := os.Stat(readme); os.IsNotExist(err) {
					t.Errorf("README not created at %s", readme)
				}
			},
		},
		{
			name:          "txt alias",
			format:        "txt",
			playlistCount: 2,
			validateResult: func(t *testing.T, result *formatter.BulkExportResult, tempDir string) {
				if _, err := os.Stat(filepath.Join(tempDir, "playlist_1_songs.txt")); os.IsNotExist(err) {
					t.Error("text file not created")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			backend := newFakeBackend()
			for i := 0; i < tt.playlistCount; i++ {
				backend.seed("Playlist " + string(rune('A'+i)))
			}

			exporter := NewExporter(backend, nil, shared.NewLogger(io.Discard))
			progressCh := make(chan ProgressUpdate, 100)
			updates := drain(progressCh)

			result, err := exporter.BulkExport(context.Background(), progressCh, BulkExportOpts{
				Format:     tt.format,
				OutputDir:  tempDir,
				NumWorkers: 2,
				RateLimit:  100,
			})
			close(progressCh)

			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.TotalPlaylists != tt.playlistCount {
				t.Errorf("TotalPlaylists = %d, want %d", result.TotalPlaylists, tt.playlistCount)
			}
			if result.SuccessfulExports != tt.playlistCount || result.FailedExports != 0 {
				t.Errorf("got %d succeeded, %d failed", result.SuccessfulExports, result.FailedExports)
			}
			if len(result.Results) != tt.playlistCount {
				t.Fatalf("expected %d results, got %d", tt.playlistCount, len(result.Results))
			}
			for i, res := range result.Results {
				if res.PlaylistID != int64(i+1) {
					t.Errorf("results out of order: %d at %d", res.PlaylistID, i)
				}
			}

			manifestData, err := os.ReadFile(filepath.Join(tempDir, "export_manifest.json"))
			if err != nil {
				t.Fatalf("failed to read manifest: %v", err)
			}
			if result.ManifestPath != filepath.Join(tempDir, "export_manifest.json") {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}

			var manifest formatter.ExportManifest
			if err := json.Unmarshal(manifestData, &manifest); err != nil {
				t.Fatalf("failed to parse manifest: %v", err)
			}
			wantFormat, _ := formatter.NormalizeFormat(tt.format)
			if manifest.Format != wantFormat {
				t.Errorf("manifest format = %s, want %s", manifest.Format, wantFormat)
			}
			if manifest.TotalPlaylists != tt.playlistCount {
				t.Errorf("manifest total = %d, want %d", manifest.TotalPlaylists, tt.playlistCount)
			}

			got := <-updates
			if len(got) == 0 || got[len(got)-1].Phase != WriteManifest {
				t.Errorf("expected manifest update last, got %v", got)
			}

			if tt.validateResult != nil {
				tt.validateResult(t, result, tempDir)
			}
		})
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	tempDir := t.TempDir()
	backend := newFakeBackend()
	backend.seed("Good", "Broken", "Also Good")
	backend.songsErrs[2] = shared.ErrServer

	exporter := NewExporter(backend, nil, shared.NewLogger(io.Discard))
	progressCh := make(chan ProgressUpdate, 100)
	updates := drain(progressCh)

	result, err := exporter.BulkExport(context.Background(), progressCh, BulkExportOpts{Format: "json", OutputDir: tempDir, RateLimit: 100})
	close(progressCh)
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.SuccessfulExports != 2 || result.FailedExports != 1 {
		t.Errorf("got %d succeeded, %d failed", result.SuccessfulExports, result.FailedExports)
	}

	broken := result.Results[1]
	if broken.Success || !errors.Is(broken.Error, shared.ErrServer) {
		t.Errorf("unexpected result for broken playlist: %+v", broken)
	}
	if broken.PlaylistName != "Broken" {
		t.Errorf("expected name Broken, got %s", broken.PlaylistName)
	}

	var sawFailure bool
	for _, u := range <-updates {
		if u.Phase == ExportPlaylist && strings.Contains(u.Message, "✗ Broken") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("expected a failure progress update")
	}
}

func TestBulkExport_Selection(t *testing.T) {
	t.Run("Selected IDs Only", func(t *testing.T) {
		backend := newFakeBackend()
		backend.seed("One", "Two", "Three")

		result, err := NewExporter(backend, nil, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{OutputDir: t.TempDir(), IDs: []int64{3, 1}, RateLimit: 100})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.TotalPlaylists != 2 {
			t.Fatalf("expected 2 playlists, got %d", result.TotalPlaylists)
		}
		if result.Results[0].PlaylistName != "Three" || result.Results[1].PlaylistName != "One" {
			t.Errorf("unexpected selection order: %+v", result.Results)
		}
	})

	t.Run("Repeated IDs Export Once", func(t *testing.T) {
		backend := newFakeBackend()
		backend.seed("One", "Two")

		result, err := NewExporter(backend, nil, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{OutputDir: t.TempDir(), IDs: []int64{2, 2, 1, 2}, NumWorkers: 3, RateLimit: 100})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.TotalPlaylists != 2 || result.SuccessfulExports != 2 {
			t.Fatalf("expected 2 of 2 exported, got %d of %d", result.SuccessfulExports, result.TotalPlaylists)
		}
		if backend.count("PlaylistSongs") != 2 {
			t.Errorf("expected songs fetched once per playlist, got %d", backend.count("PlaylistSongs"))
		}
	})

	t.Run("Unknown ID", func(t *testing.T) {
		backend := newFakeBackend()
		backend.seed("One")

		_, err := NewExporter(backend, nil, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{OutputDir: t.TempDir(), IDs: []int64{9}})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Listing Fails", func(t *testing.T) {
		backend := newFakeBackend()
		backend.listErr = shared.ErrAuthRequired

		_, err := NewExporter(backend, nil, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		_, err := NewExporter(newFakeBackend(), nil, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("No Playlists", func(t *testing.T) {
		result, err := NewExporter(newFakeBackend(), nil, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.TotalPlaylists != 0 || len(result.Results) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})
}

func TestBulkExport_Cancelled(t *testing.T) {
	backend := newFakeBackend()
	backend.seed("One", "Two")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exporter := NewExporter(backend, nil, shared.NewLogger(io.Discard))
	result, err := exporter.BulkExport(ctx, nil, BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 100})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.FailedExports != 2 {
		t.Errorf("expected every playlist to fail, got %+v", result)
	}
	if backend.count("PlaylistSongs") != 0 {
		t.Error("no songs should be fetched after cancellation")
	}
}

func TestBulkExport_RecordsRun(t *testing.T) {
	t.Run("Create And Finish", func(t *testing.T) {
		backend := newFakeBackend()
		backend.seed("One", "Two")
		runs := &memoryRuns{}

		result, err := NewExporter(backend, runs, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{Format: "csv", OutputDir: t.TempDir(), RateLimit: 100})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}

		if result.RunID != "run-1" {
			t.Errorf("expected run id in result, got %q", result.RunID)
		}
		if len(runs.created) != 1 || len(runs.updated) != 1 {
			t.Fatalf("expected one create and one update, got %d/%d", len(runs.created), len(runs.updated))
		}
		run := runs.updated[0]
		if !run.Done() || run.Succeeded != 2 || run.Failed != 0 || run.Format != "csv" {
			t.Errorf("unexpected finished run: %+v", run)
		}
		if run.ManifestPath != result.ManifestPath {
			t.Errorf("manifest path not recorded: %s", run.ManifestPath)
		}
	})

	t.Run("Recorder Failure Does Not Stop Export", func(t *testing.T) {
		backend := newFakeBackend()
		backend.seed("One")
		runs := &memoryRuns{fail: errors.New("db locked")}

		result, err := NewExporter(backend, runs, shared.NewLogger(io.Discard)).
			BulkExport(context.Background(), nil, BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 100})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Errorf("expected export to succeed, got %+v", result)
		}
		if len(runs.updated) != 0 {
			t.Error("an unrecorded run should not be updated")
		}
	})
}
