package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
)

// fakeBackend is an in-memory LibraryBackend.
type fakeBackend struct {
	mu        sync.Mutex
	nextID    int64
	playlists []models.Playlist
	songs     map[int64][]models.Song
	liked     map[int64]bool
	favorites map[string]bool
	calls     map[string]int

	err       error           // returned by every mutation when set
	listErr   error           // returned by MyPlaylists when set
	songsErrs map[int64]error // returned by PlaylistSongs per playlist
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:    1,
		songs:     make(map[int64][]models.Song),
		liked:     make(map[int64]bool),
		favorites: make(map[string]bool),
		calls:     make(map[string]int),
		songsErrs: make(map[int64]error),
	}
}

func (f *fakeBackend) seed(titles ...string) {
	for _, title := range titles {
		f.playlists = append(f.playlists, models.Playlist{ID: f.nextID, Title: title, IsPublic: true, UserID: 1})
		f.songs[f.nextID] = []models.Song{
			{ID: f.nextID*10 + 1, Title: title + " Song A", Artist: models.ArtistRef{ID: "a", Name: "Artist A"}},
			{ID: f.nextID*10 + 2, Title: title + " Song B", Artist: models.ArtistRef{ID: "b", Name: "Artist B"}},
		}
		f.nextID++
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.err
}

func (f *fakeBackend) MyPlaylists(ctx context.Context) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["MyPlaylists"]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Playlist(nil), f.playlists...), nil
}

func (f *fakeBackend) Playlist(ctx context.Context, id int64) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.playlists {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeBackend) CreatePlaylist(ctx context.Context, draft models.PlaylistDraft) (*models.Playlist, error) {
	if err := f.record("CreatePlaylist"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Playlist{ID: f.nextID, Title: draft.Title, IsPublic: draft.IsPublic, UserID: 1}
	if draft.Description != "" {
		p.Description = models.StringPtr(draft.Description)
	}
	f.nextID++
	f.playlists = append(f.playlists, p)
	return &p, nil
}

func (f *fakeBackend) UpdatePlaylist(ctx context.Context, id int64, patch models.PlaylistPatch) (*models.Playlist, error) {
	if err := f.record("UpdatePlaylist"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.playlists {
		if f.playlists[i].ID == id {
			if patch.Title != nil {
				f.playlists[i].Title = *patch.Title
			}
			p := f.playlists[i]
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeBackend) DeletePlaylist(ctx context.Context, id int64) error {
	if err := f.record("DeletePlaylist"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.playlists {
		if f.playlists[i].ID == id {
			f.playlists = append(f.playlists[:i], f.playlists[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (f *fakeBackend) PlaylistSongs(ctx context.Context, id int64) ([]models.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PlaylistSongs"]++
	if err := f.songsErrs[id]; err != nil {
		return nil, err
	}
	return append([]models.Song(nil), f.songs[id]...), nil
}

func (f *fakeBackend) AddSong(ctx context.Context, playlistID, songID int64) error {
	if err := f.record("AddSong"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.songs[playlistID] = append(f.songs[playlistID], models.Song{ID: songID, Title: fmt.Sprintf("Song %d", songID)})
	return nil
}

func (f *fakeBackend) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	return f.record("RemoveSong")
}

func (f *fakeBackend) RemoveAlbumGroup(ctx context.Context, playlistID int64, groupID string) error {
	return f.record("RemoveAlbumGroup")
}

func (f *fakeBackend) LikedSongs(ctx context.Context) ([]models.Song, error) {
	return nil, f.record("LikedSongs")
}

func (f *fakeBackend) ToggleLike(ctx context.Context, songID int64) (bool, error) {
	if err := f.record("ToggleLike"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liked[songID] = !f.liked[songID]
	return f.liked[songID], nil
}

func (f *fakeBackend) FavoriteArtists(ctx context.Context) ([]models.FavoriteArtist, error) {
	return nil, f.record("FavoriteArtists")
}

func (f *fakeBackend) AddFavoriteArtist(ctx context.Context, artistID string) error {
	return f.record("AddFavoriteArtist")
}

func (f *fakeBackend) RemoveFavoriteArtist(ctx context.Context, artistID string) error {
	return f.record("RemoveFavoriteArtist")
}

func (f *fakeBackend) PostComment(ctx context.Context, artistID string, draft models.CommentDraft) (*models.ArtistComment, error) {
	if err := f.record("PostComment"); err != nil {
		return nil, err
	}
	return &models.ArtistComment{Content: draft.Content}, nil
}

// eventLog records session and collection changes published on a bus.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func recordAll(bus *events.Bus) *eventLog {
	l := &eventLog{}
	for _, k := range []events.Kind{events.KindSessionChanged, events.KindCollectionChanged} {
		bus.Subscribe(k, func(e events.Event) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.events = append(l.events, e)
		})
	}
	return l
}

func (l *eventLog) changes() []events.CollectionChanged {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.CollectionChanged
	for _, e := range l.events {
		if c, ok := e.(events.CollectionChanged); ok {
			out = append(out, c)
		}
	}
	return out
}

func titles(ps []models.Playlist) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}
