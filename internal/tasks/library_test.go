package tasks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/session"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T) (*Library, *fakeBackend, *events.Bus, *eventLog) {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	bus := events.NewBus(logger)
	backend := newFakeBackend()
	return NewLibrary(backend, bus, logger), backend, bus, recordAll(bus)
}

func TestLibraryScenarios(t *testing.T) {
	t.Run("Workout Mix Appears In Sibling Screen", func(t *testing.T) {
		lib, backend, bus, log := newTestLibrary(t)
		backend.seed("Road Trip")

		sidebar := NewView(bus, ViewOpts[[]models.Playlist]{
			Name:   "sidebar",
			Fetch:  func(ctx context.Context, _ string) ([]models.Playlist, error) { return backend.MyPlaylists(ctx) },
			Kinds:  []events.Kind{events.KindCollectionChanged},
			Match:  CollectionMatch(events.Playlists, false),
			Logger: shared.NewLogger(io.Discard),
		})
		require.NoError(t, sidebar.Mount(context.Background(), ""))
		require.Equal(t, []string{"Road Trip"}, titles(sidebar.Snapshot().Data))

		p, err := lib.CreatePlaylist(context.Background(), models.NewPlaylistDraft("Workout Mix", ""))
		require.NoError(t, err)
		assert.Equal(t, "Workout Mix", p.Title)
		assert.Nil(t, p.Description)

		assert.Equal(t, 1, backend.count("CreatePlaylist"))
		assert.Equal(t, 2, backend.count("MyPlaylists"))
		assert.Equal(t, []string{"Road Trip", "Workout Mix"}, titles(sidebar.Snapshot().Data))
		assert.Equal(t, []events.CollectionChanged{{Collection: events.Playlists}}, log.changes())
	})

	t.Run("Empty Title Rejected Locally", func(t *testing.T) {
		lib, backend, _, log := newTestLibrary(t)

		_, err := lib.CreatePlaylist(context.Background(), models.NewPlaylistDraft("   ", "desc"))
		require.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Equal(t, "title is required", models.FieldMessage(err, "title"))
		assert.Equal(t, 0, backend.count("CreatePlaylist"))
		assert.Empty(t, log.changes())
	})

	t.Run("Empty Title Sends No Request", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "title": "x"})
		}))
		t.Cleanup(server.Close)

		logger := shared.NewLogger(io.Discard)
		bus := events.NewBus(logger)
		store := session.NewStore(session.NewMemoryStorage(), bus, logger)
		require.NoError(t, store.SetSession("tok", nil))
		log := recordAll(bus)

		gw := services.NewGateway(services.GatewayOpts{BaseURL: server.URL, Client: server.Client(), Logger: logger}, store)
		lib := NewLibrary(services.NewMusiqService(gw, store), bus, logger)

		_, err := lib.CreatePlaylist(context.Background(), models.NewPlaylistDraft("", ""))
		require.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Zero(t, requests.Load())
		assert.Empty(t, log.changes())
	})
}

func TestLibraryMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("Success Publishes Scoped Change", func(t *testing.T) {
		tests := []struct {
			name string
			run  func(*Library) error
			want events.CollectionChanged
		}{
			{"UpdatePlaylist", func(l *Library) error {
				_, err := l.UpdatePlaylist(ctx, 1, models.PlaylistPatch{Title: models.StringPtr("Renamed")})
				return err
			}, events.CollectionChanged{Collection: events.Playlists, ID: "1"}},
			{"DeletePlaylist", func(l *Library) error {
				return l.DeletePlaylist(ctx, 1)
			}, events.CollectionChanged{Collection: events.Playlists, ID: "1"}},
			{"AddSong", func(l *Library) error {
				return l.AddSong(ctx, 1, 99)
			}, events.CollectionChanged{Collection: events.Playlists, ID: "1"}},
			{"RemoveSong", func(l *Library) error {
				return l.RemoveSong(ctx, 1, 11)
			}, events.CollectionChanged{Collection: events.Playlists, ID: "1"}},
			{"RemoveAlbumGroup", func(l *Library) error {
				return l.RemoveAlbumGroup(ctx, 1, " album-7 ")
			}, events.CollectionChanged{Collection: events.Playlists, ID: "1"}},
			{"ToggleLike", func(l *Library) error {
				_, err := l.ToggleLike(ctx, 11)
				return err
			}, events.CollectionChanged{Collection: events.Likes}},
			{"AddFavoriteArtist", func(l *Library) error {
				return l.AddFavoriteArtist(ctx, "adele")
			}, events.CollectionChanged{Collection: events.Favorites, ID: "adele"}},
			{"RemoveFavoriteArtist", func(l *Library) error {
				return l.RemoveFavoriteArtist(ctx, "adele")
			}, events.CollectionChanged{Collection: events.Favorites, ID: "adele"}},
			{"PostComment", func(l *Library) error {
				_, err := l.PostComment(ctx, "adele", models.CommentDraft{Content: "great"})
				return err
			}, events.CollectionChanged{Collection: events.Comments, ID: "adele"}},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				lib, backend, _, log := newTestLibrary(t)
				backend.seed("One")

				require.NoError(t, tc.run(lib))
				assert.Equal(t, []events.CollectionChanged{tc.want}, log.changes())
			})
		}
	})

	t.Run("Backend Failure Publishes Nothing", func(t *testing.T) {
		lib, backend, _, log := newTestLibrary(t)
		backend.seed("One")
		backend.err = shared.ErrServer

		_, err := lib.CreatePlaylist(ctx, models.NewPlaylistDraft("Workout Mix", ""))
		assert.ErrorIs(t, err, shared.ErrServer)
		assert.ErrorIs(t, lib.DeletePlaylist(ctx, 1), shared.ErrServer)
		assert.ErrorIs(t, lib.AddSong(ctx, 1, 5), shared.ErrServer)
		_, err = lib.ToggleLike(ctx, 5)
		assert.ErrorIs(t, err, shared.ErrServer)

		assert.Empty(t, log.changes())
		playlists, _ := backend.MyPlaylists(ctx)
		assert.Equal(t, []string{"One"}, titles(playlists))
	})

	t.Run("Local Validation", func(t *testing.T) {
		lib, backend, _, log := newTestLibrary(t)

		err := lib.AddSong(ctx, 0, 0)
		require.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.NotEmpty(t, models.FieldMessage(err, "playlist"))
		assert.NotEmpty(t, models.FieldMessage(err, "song"))

		assert.ErrorIs(t, lib.DeletePlaylist(ctx, -1), shared.ErrInvalidInput)
		_, err = lib.ToggleLike(ctx, 0)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.ErrorIs(t, lib.AddFavoriteArtist(ctx, ""), shared.ErrInvalidInput)
		_, err = lib.PostComment(ctx, "adele", models.CommentDraft{Content: "  "})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		_, err = lib.UpdatePlaylist(ctx, 1, models.PlaylistPatch{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.ErrorIs(t, lib.RemoveAlbumGroup(ctx, 1, "  "), shared.ErrInvalidInput)

		assert.Zero(t, backend.count("AddSong")+backend.count("DeletePlaylist")+backend.count("ToggleLike")+backend.count("RemoveAlbumGroup"))
		assert.Empty(t, log.changes())
	})

	t.Run("Works Without Bus", func(t *testing.T) {
		backend := newFakeBackend()
		lib := NewLibrary(backend, nil, shared.NewLogger(io.Discard))

		_, err := lib.CreatePlaylist(ctx, models.NewPlaylistDraft("Solo", ""))
		assert.NoError(t, err)
		assert.Zero(t, lib.RequestCreate("x", ""))

		_, err = lib.ListenForCreateRequests(ctx, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})
}

func TestListenForCreateRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates On Request", func(t *testing.T) {
		lib, backend, _, log := newTestLibrary(t)

		var created *models.Playlist
		unsub, err := lib.ListenForCreateRequests(ctx, func(p *models.Playlist, err error) {
			require.NoError(t, err)
			created = p
		})
		require.NoError(t, err)
		defer unsub()

		assert.Equal(t, 1, lib.RequestCreate("Workout Mix", "cardio"))
		require.NotNil(t, created)
		assert.Equal(t, "Workout Mix", created.Title)
		assert.Equal(t, "cardio", created.Summary())
		assert.Equal(t, 1, backend.count("CreatePlaylist"))
		assert.Equal(t, []events.CollectionChanged{{Collection: events.Playlists}}, log.changes())
	})

	t.Run("Invalid Request Reports Error", func(t *testing.T) {
		lib, backend, _, log := newTestLibrary(t)

		var gotErr error
		unsub, err := lib.ListenForCreateRequests(ctx, func(_ *models.Playlist, err error) { gotErr = err })
		require.NoError(t, err)
		defer unsub()

		lib.RequestCreate("", "")
		assert.ErrorIs(t, gotErr, shared.ErrInvalidInput)
		assert.Zero(t, backend.count("CreatePlaylist"))
		assert.Empty(t, log.changes())
	})

	t.Run("Unsubscribe Stops Listening", func(t *testing.T) {
		lib, backend, _, _ := newTestLibrary(t)

		unsub, err := lib.ListenForCreateRequests(ctx, nil)
		require.NoError(t, err)
		unsub()

		assert.Zero(t, lib.RequestCreate("Workout Mix", ""))
		assert.Zero(t, backend.count("CreatePlaylist"))
	})
}
