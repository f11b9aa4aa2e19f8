package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/shared"
)

// LibraryBackend is what [Library] mutates through.
type LibraryBackend interface {
	services.Collections
	PostComment(ctx context.Context, artistID string, draft models.CommentDraft) (*models.ArtistComment, error)
}

// Library performs every user mutation. Each one validates locally, calls the backend,
// and publishes [events.CollectionChanged] only on success.
type Library struct {
	backend LibraryBackend
	bus     *events.Bus
	logger  *log.Logger
}

// NewLibrary creates a Library. bus may be nil.
func NewLibrary(backend LibraryBackend, bus *events.Bus, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{backend: backend, bus: bus, logger: shared.WithLogger(logger, "component", "library")}
}

func (l *Library) changed(c events.Collection, id string) {
	if l.bus == nil {
		return
	}
	n := l.bus.Publish(events.CollectionChanged{Collection: c, ID: id})
	l.logger.Debug("collection changed", "collection", c, "id", id, "subscribers", n)
}

func playlistKey(id int64) string { return strconv.FormatInt(id, 10) }

func (l *Library) CreatePlaylist(ctx context.Context, draft models.PlaylistDraft) (*models.Playlist, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	p, err := l.backend.CreatePlaylist(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	l.changed(events.Playlists, "")
	return p, nil
}

func (l *Library) UpdatePlaylist(ctx context.Context, id int64, patch models.PlaylistPatch) (*models.Playlist, error) {
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	p, err := l.backend.UpdatePlaylist(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update playlist %d: %w", id, err)
	}
	l.changed(events.Playlists, playlistKey(id))
	return p, nil
}

func (l *Library) DeletePlaylist(ctx context.Context, id int64) error {
	if id <= 0 {
		return &models.FieldError{Field: "playlist", Message: "invalid playlist id"}
	}
	if err := l.backend.DeletePlaylist(ctx, id); err != nil {
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	l.changed(events.Playlists, playlistKey(id))
	return nil
}

func (l *Library) AddSong(ctx context.Context, playlistID, songID int64) error {
	if err := validateIDs(playlistID, songID); err != nil {
		return err
	}
	if err := l.backend.AddSong(ctx, playlistID, songID); err != nil {
		return fmt.Errorf("failed to add song %d: %w", songID, err)
	}
	l.changed(events.Playlists, playlistKey(playlistID))
	return nil
}

func (l *Library) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	if err := validateIDs(playlistID, songID); err != nil {
		return err
	}
	if err := l.backend.RemoveSong(ctx, playlistID, songID); err != nil {
		return fmt.Errorf("failed to remove song %d: %w", songID, err)
	}
	l.changed(events.Playlists, playlistKey(playlistID))
	return nil
}

// RemoveAlbumGroup removes the songs added to a playlist together as one album.
func (l *Library) RemoveAlbumGroup(ctx context.Context, playlistID int64, groupID string) error {
	if playlistID <= 0 {
		return &models.FieldError{Field: "playlist", Message: "invalid playlist id"}
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return &models.FieldError{Field: "album", Message: "album group id is required"}
	}
	if err := l.backend.RemoveAlbumGroup(ctx, playlistID, groupID); err != nil {
		return fmt.Errorf("failed to remove album group %s: %w", groupID, err)
	}
	l.changed(events.Playlists, playlistKey(playlistID))
	return nil
}

// ToggleLike flips the like on a song and reports whether it is now liked.
func (l *Library) ToggleLike(ctx context.Context, songID int64) (bool, error) {
	if songID <= 0 {
		return false, &models.FieldError{Field: "song", Message: "invalid song id"}
	}
	liked, err := l.backend.ToggleLike(ctx, songID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle like on song %d: %w", songID, err)
	}
	l.changed(events.Likes, "")
	return liked, nil
}

func (l *Library) AddFavoriteArtist(ctx context.Context, artistID string) error {
	if artistID == "" {
		return &models.FieldError{Field: "artist", Message: "artist id is required"}
	}
	if err := l.backend.AddFavoriteArtist(ctx, artistID); err != nil {
		return fmt.Errorf("failed to favorite artist %s: %w", artistID, err)
	}
	l.changed(events.Favorites, artistID)
	return nil
}

func (l *Library) RemoveFavoriteArtist(ctx context.Context, artistID string) error {
	if artistID == "" {
		return &models.FieldError{Field: "artist", Message: "artist id is required"}
	}
	if err := l.backend.RemoveFavoriteArtist(ctx, artistID); err != nil {
		return fmt.Errorf("failed to unfavorite artist %s: %w", artistID, err)
	}
	l.changed(events.Favorites, artistID)
	return nil
}

func (l *Library) PostComment(ctx context.Context, artistID string, draft models.CommentDraft) (*models.ArtistComment, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	c, err := l.backend.PostComment(ctx, artistID, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to post comment: %w", err)
	}
	l.changed(events.Comments, artistID)
	return c, nil
}

// RequestCreate asks the create-request listener to create a playlist.
// It returns the number of listeners that received the request.
func (l *Library) RequestCreate(title, description string) int {
	if l.bus == nil {
		return 0
	}
	return l.bus.Publish(events.CollectionCreateRequested{Title: title, Description: description})
}

// ListenForCreateRequests creates a playlist for every [events.CollectionCreateRequested].
// done, when set, receives each outcome.
func (l *Library) ListenForCreateRequests(ctx context.Context, done func(*models.Playlist, error)) (func(), error) {
	if l.bus == nil {
		return nil, fmt.Errorf("%w: library has no bus", shared.ErrInvalidArgument)
	}
	return events.On(l.bus, func(e events.CollectionCreateRequested) {
		p, err := l.CreatePlaylist(ctx, models.NewPlaylistDraft(e.Title, e.Description))
		if err != nil {
			l.logger.Warn("create request failed", "title", e.Title, "error", err)
		} else {
			l.logger.Info("created playlist on request", "id", p.ID, "title", p.Title)
		}
		if done != nil {
			done(p, err)
		}
	})
}

func validateIDs(playlistID, songID int64) error {
	var errs models.FieldErrors
	if playlistID <= 0 {
		errs = append(errs, &models.FieldError{Field: "playlist", Message: "invalid playlist id"})
	}
	if songID <= 0 {
		errs = append(errs, &models.FieldError{Field: "song", Message: "invalid song id"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
