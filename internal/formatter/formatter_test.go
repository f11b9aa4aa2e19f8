package formatter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
	th "github.com/desertthunder/musiq/internal/testing"
)

func intPtr(n int) *int { return &n }

func testExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          42,
			Title:       "Workout Mix",
			Description: models.StringPtr("Songs for the gym"),
			IsPublic:    true,
			UserID:      1,
		},
		Songs: []models.Song{
			{
				ID:         1,
				Title:      "Song One",
				DurationMS: intPtr(180000),
				IsLiked:    true,
				Artist:     models.ArtistRef{ID: "a1", Name: "Artist One"},
				Album:      &models.AlbumRef{ID: "al1", Title: "Album One"},
			},
			{
				ID:         2,
				Title:      "Song Two",
				DurationMS: intPtr(240000),
				Artist:     models.ArtistRef{ID: "a2", Name: "Artist Two"},
			},
		},
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "json", true},
		{"json", "json", true},
		{"csv", "csv", true},
		{"md", "markdown", true},
		{"txt", "text", true},
		{"text", "text", true},
		{"xml", "xml", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeFormat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeFormat(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExporters(t *testing.T) {
	export := testExport()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(export)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Position,Song ID,Title,Artist,Album,Duration,Added,Liked") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,1,Song One,Artist One,Album One,3:00,,true") {
			t.Errorf("CSV missing first song, got: %s", output)
		}
		if !strings.Contains(output, "2,2,Song Two,Artist Two,,4:00,,false") {
			t.Errorf("CSV missing second song, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(export, "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Workout Mix",
				"**Description**: Songs for the gym",
				"**Songs**: 2",
				"**Length**: 7:00",
				"**Visibility**: Public",
				"## Songs",
				"1. Artist One - Song One (Album One) [3:00] ♥",
				"2. Artist Two - Song Two [4:00]",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q", want)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("Markdown should not reference a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(export, "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Error("Markdown missing cover image")
			}
		})

		t.Run("without description", func(t *testing.T) {
			bare := *export
			bare.Playlist.Description = nil
			data, _ := ExportToMarkdown(&bare, "")
			if strings.Contains(string(data), "**Description**") {
				t.Error("Markdown should omit an absent description")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(export)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"Playlist: Workout Mix",
			"Description: Songs for the gym",
			"Songs: 2",
			"1. Artist One - Song One",
			"2. Artist Two - Song Two",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q", want)
			}
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(export.Playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["title"] != "Workout Mix" || got["id"] != float64(42) {
			t.Errorf("unexpected metadata: %v", got)
		}
		if _, ok := got["songs"]; ok {
			t.Error("metadata should not include songs")
		}
	})

	t.Run("CoverURL", func(t *testing.T) {
		if got := CoverURL(export); got != "" {
			t.Errorf("expected no cover, got %q", got)
		}

		withCover := testExport()
		withCover.Songs[1].Album = &models.AlbumRef{ID: "al2", Title: "Two", CoverURL: models.StringPtr("https://img/2.jpg")}
		if got := CoverURL(withCover); got != "https://img/2.jpg" {
			t.Errorf("expected second song cover, got %q", got)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(nil, ""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpegdata"))
		}))
		defer server.Close()

		data, err := DownloadImage(server.Client(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "jpegdata" {
			t.Errorf("unexpected body %q", data)
		}
	})

	t.Run("BadStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		if _, err := DownloadImage(server.Client(), server.URL); err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})

	t.Run("TransportError", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("dial failed"))}
		if _, err := DownloadImage(client, "http://img/cover.jpg"); err == nil {
			t.Error("expected transport error")
		}
	})
}

func TestWriters(t *testing.T) {
	export := testExport()

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(export, "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			if result.SongsFile != "playlist_42_songs.csv" {
				t.Errorf("Expected songs file 'playlist_42_songs.csv', got '%s'", result.SongsFile)
			}
			if result.MetadataFile != "playlist_42_metadata.json" {
				t.Errorf("Expected metadata file 'playlist_42_metadata.json', got '%s'", result.MetadataFile)
			}

			th.AssertFileExists(t, result.SongsFile)
			th.AssertFileExists(t, result.MetadataFile)

			if !strings.Contains(th.MustReadFile(t, result.SongsFile), "Song One") {
				t.Error("CSV missing song data")
			}
			if !strings.Contains(th.MustReadFile(t, result.MetadataFile), "Workout Mix") {
				t.Error("Metadata JSON missing title")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom")
			result, err := WriteCSVExport(export, base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.SongsFile != base+"_songs.csv" {
				t.Errorf("unexpected songs file %q", result.SongsFile)
			}
			th.AssertFileExists(t, result.SongsFile)
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithDefaultDirectory", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteMarkdownExport(export, "", "", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.Directory != "playlist_42" {
				t.Errorf("unexpected directory %q", result.Directory)
			}
			th.AssertDirExists(t, result.Directory)
			th.AssertFileExists(t, filepath.Join(result.Directory, "README.md"))
			if len(result.Files) != 1 {
				t.Errorf("expected 1 file, got %v", result.Files)
			}
		})

		t.Run("WithCover", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("img"))
			}))
			defer server.Close()

			dir := filepath.Join(t.TempDir(), "md")
			result, err := WriteMarkdownExport(export, dir, server.URL+"/cover.jpg", server.Client())
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			th.AssertFileExists(t, result.CoverImage)
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
				t.Error("README should reference the cover")
			}
		})

		t.Run("CoverFailureIsAWarning", func(t *testing.T) {
			client := &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("offline"))}
			dir := filepath.Join(t.TempDir(), "md")

			result, err := WriteMarkdownExport(export, dir, "http://img/cover.jpg", client)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Warnings) != 1 {
				t.Errorf("expected one warning, got %v", result.Warnings)
			}
			if result.CoverImage != "" {
				t.Error("no cover should be recorded")
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteTextExport(export, "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "playlist_42_songs.txt" {
			t.Errorf("unexpected path %q", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path, err := WriteJSONExport(export, filepath.Join(t.TempDir(), "out.json"))
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}

		var got models.PlaylistExport
		if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Playlist.Title != "Workout Mix" || len(got.Songs) != 2 {
			t.Errorf("unexpected export: %+v", got)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		tests := []struct {
			format string
			files  []string
		}{
			{"json", []string{"playlist_42.json"}},
			{"csv", []string{"playlist_42_songs.csv", "playlist_42_metadata.json"}},
			{"txt", []string{"playlist_42_songs.txt"}},
			{"markdown", []string{filepath.Join("playlist_42", "README.md")}},
		}

		for _, tc := range tests {
			t.Run(tc.format, func(t *testing.T) {
				dir := t.TempDir()
				files, err := WriteExport(export, tc.format, dir, nil)
				if err != nil {
					t.Fatalf("WriteExport failed: %v", err)
				}
				if len(files) != len(tc.files) {
					t.Fatalf("expected %v, got %v", tc.files, files)
				}
				for i, f := range tc.files {
					if files[i] != filepath.Join(dir, f) {
						t.Errorf("expected %s, got %s", filepath.Join(dir, f), files[i])
					}
					th.AssertFileExists(t, files[i])
				}
			})
		}

		t.Run("UnknownFormat", func(t *testing.T) {
			_, err := WriteExport(export, "xml", t.TempDir(), nil)
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("WriteBulkExportManifest", func(t *testing.T) {
		result := BulkExportResult{
			RunID:             "run-1",
			TotalPlaylists:    2,
			SuccessfulExports: 1,
			FailedExports:     1,
			Results: []PlaylistExportResult{
				{PlaylistID: 1, PlaylistName: "Workout Mix", Success: true, Files: []string{"playlist_1.json"}},
				{PlaylistID: 2, PlaylistName: "Chill", Success: false, Error: errors.New("playlist not found")},
			},
		}

		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteBulkExportManifest(result, "json", path); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read manifest: %v", err)
		}

		var m struct {
			RunID             string `json:"run_id"`
			Format            string `json:"format"`
			TotalPlaylists    int    `json:"total_playlists"`
			SuccessfulExports int    `json:"successful_exports"`
			FailedExports     int    `json:"failed_exports"`
			Playlists         []struct {
				ID     int64  `json:"id"`
				Status string `json:"status"`
				Error  string `json:"error"`
			} `json:"playlists"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("invalid manifest JSON: %v", err)
		}

		if m.RunID != "run-1" || m.Format != "json" || m.TotalPlaylists != 2 {
			t.Errorf("unexpected manifest header: %+v", m)
		}
		if m.SuccessfulExports != 1 || m.FailedExports != 1 {
			t.Errorf("unexpected counts: %+v", m)
		}
		if len(m.Playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(m.Playlists))
		}
		if m.Playlists[0].Status != "success" {
			t.Errorf("expected success, got %s", m.Playlists[0].Status)
		}
		if m.Playlists[1].Status != "failed" || m.Playlists[1].Error != "playlist not found" {
			t.Errorf("unexpected failed entry: %+v", m.Playlists[1])
		}
	})
}
