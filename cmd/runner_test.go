package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/session"
	"github.com/desertthunder/musiq/internal/shared"
	th "github.com/desertthunder/musiq/internal/testing"
)

// stubService backs the command tests. Methods it does not override panic through the nil embed.
type stubService struct {
	services.Service

	mu        sync.Mutex
	playlists []models.Playlist
	songs     map[int64][]models.Song
	liked     map[int64]bool
	calls     []string
	loginErr  error
}

func newStubService() *stubService {
	return &stubService{
		playlists: []models.Playlist{
			{ID: 1, Title: "Road Trip", IsPublic: true, Description: models.StringPtr("windows down")},
			{ID: 2, Title: "Focus"},
		},
		songs: map[int64][]models.Song{
			1: {{ID: 10, Title: "Highway Song", Artist: models.ArtistRef{Name: "The Drivers"}}},
			2: {{ID: 20, Title: "Deep Work"}},
		},
		liked: map[int64]bool{},
	}
}

func (s *stubService) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubService) called(call string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (s *stubService) Login(_ context.Context, creds models.Credentials) (*models.UserProfile, error) {
	s.record("login")
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &models.UserProfile{Username: models.StringPtr(creds.Username)}, nil
}

func (s *stubService) Logout() { s.record("logout") }

func (s *stubService) MyPlaylists(context.Context) ([]models.Playlist, error) {
	s.record("playlists")
	return s.playlists, nil
}

func (s *stubService) Playlist(_ context.Context, id int64) (*models.Playlist, error) {
	s.record(fmt.Sprintf("playlist %d", id))
	for _, p := range s.playlists {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: playlist %d", shared.ErrNotFound, id)
}

func (s *stubService) PlaylistSongs(_ context.Context, id int64) ([]models.Song, error) {
	s.record(fmt.Sprintf("songs %d", id))
	return s.songs[id], nil
}

func (s *stubService) CreatePlaylist(_ context.Context, draft models.PlaylistDraft) (*models.Playlist, error) {
	s.record("create " + draft.Title)
	p := models.Playlist{ID: int64(len(s.playlists) + 1), Title: draft.Title, IsPublic: draft.IsPublic}
	s.playlists = append(s.playlists, p)
	return &p, nil
}

func (s *stubService) DeletePlaylist(_ context.Context, id int64) error {
	s.record(fmt.Sprintf("delete %d", id))
	return nil
}

func (s *stubService) RemoveAlbumGroup(_ context.Context, playlistID int64, groupID string) error {
	s.record(fmt.Sprintf("remove album %d %s", playlistID, groupID))
	return nil
}

func (s *stubService) ToggleLike(_ context.Context, songID int64) (bool, error) {
	s.record(fmt.Sprintf("like %d", songID))
	s.liked[songID] = !s.liked[songID]
	return s.liked[songID], nil
}

func (s *stubService) Chart(context.Context) (*models.Chart, error) {
	s.record("chart")
	id := int64(10)
	return &models.Chart{Tracks: []models.ChartEntry{
		{Rank: 1, Title: "Hit", Listeners: "1200", SongID: &id, Artist: models.ChartArtist{Name: "Star"}},
		{Rank: 2, Title: "Runner Up", Listeners: "900", Artist: models.ChartArtist{Name: "Other"}},
	}}, nil
}

type harness struct {
	svc    *stubService
	bus    *events.Bus
	store  *session.Store
	runner *Runner
	out    *bytes.Buffer
}

func newHarness(t *testing.T) harness {
	t.Helper()
	t.Setenv("MUSIQ_DATABASE_PATH", filepath.Join(t.TempDir(), "musiq.db"))

	logger := shared.NewLogger(io.Discard)
	bus := events.NewBus(logger)
	store := session.NewStore(session.NewMemoryStorage(), bus, logger)
	svc := newStubService()
	out := &bytes.Buffer{}

	r := NewRunner(RunnerOpts{Bus: bus, Store: store, Service: svc, Logger: logger, Output: out})
	t.Cleanup(func() { r.Close() })
	return harness{svc: svc, bus: bus, store: store, runner: r, out: out}
}

func (h harness) run(t *testing.T, args ...string) error {
	t.Helper()
	argv := append([]string{"musiq", "--config", filepath.Join(t.TempDir(), "missing.toml")}, args...)
	return newApp(h.runner).Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.service != nil || runner.library != nil {
				t.Error("expected service to stay unset until connect")
			}
		})

		t.Run("with service wires library and exporter", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Service: newStubService(), ConfigPath: "/test/path/config.toml"})
			if runner.library == nil || runner.exporter == nil {
				t.Fatal("expected library and exporter to be built from the service")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if err := runner.connect(); err != nil {
				t.Errorf("connect with an injected service should be a no-op, got %v", err)
			}
			if runner.db != nil {
				t.Error("expected no database to be opened")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); !strings.Contains(result, `"key": "value"`) || !strings.HasSuffix(result, "\n") {
				t.Errorf("expected formatted JSON ending in a newline, got %q", result)
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if expected := `{"key":"value"}` + "\n"; output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &th.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := th.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writeYAML", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeYAML(models.Playlist{ID: 3, Title: "Mix"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "title: Mix") {
			t.Errorf("expected YAML title, got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &th.FWriter{}})
		if err := failing.writeYAML(map[string]int{"a": 1}); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		runner.writePlain("Hello %s\n", "world")
		runner.writePlainln("Section")
		if expected := "Hello world\n\nSection\n"; output.String() != expected {
			t.Errorf("expected %q, got %q", expected, output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &th.FWriter{}})
		if err := failing.writePlain("x"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for _, c := range runner.register() {
			names[c.Name] = true
		}
		for _, want := range []string{"auth", "account", "playlists", "liked", "like", "search", "chart", "artists", "export", "setup", "tui"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("Arguments", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{name: "missing id", args: []string{"playlists", "show"}, want: shared.ErrMissingArgument},
			{name: "non-numeric id", args: []string{"playlists", "show", "abc"}, want: shared.ErrInvalidArgument},
			{name: "zero id", args: []string{"playlists", "delete", "0", "--yes"}, want: shared.ErrInvalidArgument},
			{name: "bad song id", args: []string{"playlists", "add", "1", "x"}, want: shared.ErrInvalidArgument},
			{name: "missing album group", args: []string{"playlists", "remove-album", "1"}, want: shared.ErrMissingArgument},
			{name: "missing query", args: []string{"search"}, want: shared.ErrMissingArgument},
			{name: "unknown output", args: []string{"--output", "xml", "chart"}, want: shared.ErrInvalidFlag},
			{name: "bad export id", args: []string{"export", "--id", "nope"}, want: shared.ErrInvalidFlag},
			{name: "bad route", args: []string{"tui", "--route", "settings"}, want: shared.ErrInvalidArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				err := h.run(t, tt.args...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		t.Run("list prints titles and descriptions", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "playlists", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			out := h.out.String()
			for _, want := range []string{"Found 2 playlists", "Road Trip (ID: 1, Public)", "windows down", "Focus (ID: 2, Private)"} {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in output:\n%s", want, out)
				}
			}
		})

		t.Run("list renders JSON", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "-o", "json", "pl", "list"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.out.String(), `"title": "Road Trip"`) {
				t.Errorf("expected JSON output, got %s", h.out.String())
			}
		})

		t.Run("show prints songs", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "playlists", "show", "1"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			out := h.out.String()
			if !strings.Contains(out, "The Drivers - Highway Song") || !strings.Contains(out, "1 songs") {
				t.Errorf("unexpected output:\n%s", out)
			}
		})

		t.Run("show missing playlist is not found", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "playlists", "show", "99"); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("create rejects a blank title without calling the backend", func(t *testing.T) {
			h := newHarness(t)
			err := h.run(t, "playlists", "create", "   ")

			var fe *models.FieldError
			if !errors.As(err, &fe) || fe.Field != "title" {
				t.Fatalf("expected title field error, got %v", err)
			}
			if len(h.svc.calls) != 0 {
				t.Errorf("expected no backend calls, got %v", h.svc.calls)
			}
		})

		t.Run("create announces the change", func(t *testing.T) {
			h := newHarness(t)
			var changed []events.CollectionChanged
			unsub, err := events.On(h.bus, func(e events.CollectionChanged) { changed = append(changed, e) })
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			defer unsub()

			if err := h.run(t, "playlists", "create", "  Night Drive ", "--private"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !h.svc.called("create Night Drive") {
				t.Errorf("expected trimmed title to be sent, got %v", h.svc.calls)
			}
			if !strings.Contains(h.out.String(), `✓ Created playlist "Night Drive"`) {
				t.Errorf("unexpected output: %s", h.out.String())
			}
			if len(changed) != 1 || changed[0].Collection != events.Playlists {
				t.Errorf("expected one playlists change, got %+v", changed)
			}
		})

		t.Run("delete needs --yes without a terminal", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "playlists", "delete", "1"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Fatalf("expected ErrMissingArgument, got %v", err)
			}
			if h.svc.called("delete 1") {
				t.Error("expected no delete without confirmation")
			}

			if err := h.run(t, "playlists", "delete", "1", "-y"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !h.svc.called("delete 1") {
				t.Error("expected delete to be sent")
			}
		})

		t.Run("update with nothing set is rejected", func(t *testing.T) {
			h := newHarness(t)
			err := h.run(t, "playlists", "update", "1")
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("remove album", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "playlists", "remove-album", "1", "abc123"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !h.svc.called("remove album 1 abc123") {
				t.Error("expected album group removal to be sent")
			}
			if !strings.Contains(h.out.String(), "✓ Removed album abc123 from playlist 1") {
				t.Errorf("unexpected output: %s", h.out.String())
			}
		})
	})

	t.Run("Like", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "like", "10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := h.run(t, "like", "10"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := h.out.String()
		if !strings.Contains(out, "✓ Liked song 10") || !strings.Contains(out, "✓ Unliked song 10") {
			t.Errorf("expected like then unlike, got:\n%s", out)
		}
	})

	t.Run("Chart respects limit", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "chart", "--limit", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := h.out.String()
		if !strings.Contains(out, "Star - Hit [1200 listeners] (song 10)") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if strings.Contains(out, "Runner Up") {
			t.Error("expected chart to be limited to one entry")
		}
	})

	t.Run("Auth", func(t *testing.T) {
		t.Run("status when logged out", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "auth", "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.out.String(), "Not logged in") {
				t.Errorf("unexpected output: %s", h.out.String())
			}
		})

		t.Run("status JSON omits the token", func(t *testing.T) {
			h := newHarness(t)
			if err := h.store.SetSession("secret-token", &models.UserProfile{Username: models.StringPtr("ana")}); err != nil {
				t.Fatalf("SetSession: %v", err)
			}
			if err := h.run(t, "-o", "json", "auth", "status"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			out := h.out.String()
			if strings.Contains(out, "secret-token") || !strings.Contains(out, `"authenticated": true`) {
				t.Errorf("unexpected output: %s", out)
			}
		})

		t.Run("login with flags", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "auth", "login", "-u", "ana", "-p", "hunter22"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.out.String(), "✓ Logged in as ana") {
				t.Errorf("unexpected output: %s", h.out.String())
			}
		})

		t.Run("login keeps the credentials error", func(t *testing.T) {
			h := newHarness(t)
			h.svc.loginErr = shared.ErrInvalidCredentials
			err := h.run(t, "auth", "login", "-u", "ana", "-p", "wrong")
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})

		t.Run("logout twice", func(t *testing.T) {
			h := newHarness(t)
			if err := h.store.SetSession("token", nil); err != nil {
				t.Fatalf("SetSession: %v", err)
			}
			if err := h.run(t, "auth", "logout"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !h.svc.called("logout") {
				t.Error("expected service logout")
			}

			h.store.ClearSession()
			if err := h.run(t, "auth", "logout"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(h.out.String(), "Not logged in") {
				t.Errorf("unexpected output: %s", h.out.String())
			}
		})

		t.Run("signup validates before sending", func(t *testing.T) {
			h := newHarness(t)
			err := h.run(t, "auth", "signup", "-u", "a", "-e", "not-an-email", "-p", "short")

			var fe models.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected field errors, got %v", err)
			}
			for _, field := range []string{"username", "email", "password", "agree_terms"} {
				if fe.For(field) == "" {
					t.Errorf("expected an error for %s", field)
				}
			}
		})
	})

	t.Run("Export", func(t *testing.T) {
		h := newHarness(t)
		dir := filepath.Join(t.TempDir(), "out")
		if err := h.run(t, "export", "--dir", dir, "--format", "json", "--id", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := h.out.String()
		if !strings.Contains(out, "Exported: 1/1 playlists") {
			t.Errorf("unexpected output:\n%s", out)
		}
		th.AssertDirExists(t, dir)
		if !h.svc.called("songs 1") || h.svc.called("songs 2") {
			t.Errorf("expected only playlist 1 to be exported, got %v", h.svc.calls)
		}
	})

	t.Run("Setup", func(t *testing.T) {
		t.Run("database then status then rollback", func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(t, "setup", "database"); err != nil {
				t.Fatalf("setup database: %v", err)
			}
			if err := h.run(t, "setup", "status"); err != nil {
				t.Fatalf("setup status: %v", err)
			}
			out := h.out.String()
			if !strings.Contains(out, "✓ 001") || !strings.Contains(out, "built-in defaults") {
				t.Errorf("unexpected status output:\n%s", out)
			}

			if err := h.run(t, "setup", "rollback"); err != nil {
				t.Fatalf("setup rollback: %v", err)
			}
		})

		t.Run("config writes the base url", func(t *testing.T) {
			h := newHarness(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			argv := []string{"musiq", "--config", path, "setup", "config", "--base-url", "http://localhost:9000"}
			if err := newApp(h.runner).Run(context.Background(), argv); err != nil {
				t.Fatalf("setup config: %v", err)
			}

			config, err := shared.LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if config.API.BaseURL != "http://localhost:9000" {
				t.Errorf("expected base url to be saved, got %s", config.API.BaseURL)
			}
		})

		t.Run("config rejects a relative base url", func(t *testing.T) {
			h := newHarness(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			argv := []string{"musiq", "--config", path, "setup", "config", "--base-url", "localhost"}
			if err := newApp(h.runner).Run(context.Background(), argv); !errors.Is(err, shared.ErrInvalidFlag) {
				t.Fatalf("expected ErrInvalidFlag, got %v", err)
			}
			if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
				t.Error("expected the partial config file to be removed")
			}
		})
	})
}
