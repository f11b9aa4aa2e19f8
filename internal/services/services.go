package services

import (
	"context"

	"github.com/desertthunder/musiq/internal/models"
)

// Account covers the signed-in user and authentication.
type Account interface {
	Login(ctx context.Context, creds models.Credentials) (*models.UserProfile, error)
	Logout()
	Register(ctx context.Context, reg models.Registration) error
	Me(ctx context.Context) (*models.UserProfile, error)
	UpdateMe(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error)
	ChangePassword(ctx context.Context, change models.PasswordChange) error
}

// Collections covers everything the user owns: playlists, likes and favorite artists.
type Collections interface {
	MyPlaylists(ctx context.Context) ([]models.Playlist, error)
	Playlist(ctx context.Context, id int64) (*models.Playlist, error)
	CreatePlaylist(ctx context.Context, draft models.PlaylistDraft) (*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id int64, patch models.PlaylistPatch) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) error
	PlaylistSongs(ctx context.Context, id int64) ([]models.Song, error)
	AddSong(ctx context.Context, playlistID, songID int64) error
	RemoveSong(ctx context.Context, playlistID, songID int64) error
	RemoveAlbumGroup(ctx context.Context, playlistID int64, groupID string) error

	LikedSongs(ctx context.Context) ([]models.Song, error)
	ToggleLike(ctx context.Context, songID int64) (bool, error)

	FavoriteArtists(ctx context.Context) ([]models.FavoriteArtist, error)
	AddFavoriteArtist(ctx context.Context, artistID string) error
	RemoveFavoriteArtist(ctx context.Context, artistID string) error
}

// Catalog covers read-only browsing plus artist comments.
type Catalog interface {
	Chart(ctx context.Context) (*models.Chart, error)
	Search(ctx context.Context, query string) (*models.SearchResult, error)
	Artist(ctx context.Context, id string) (*models.Artist, error)
	SearchArtists(ctx context.Context, query string) ([]models.Artist, error)
	ArtistComments(ctx context.Context, id string) ([]models.ArtistComment, error)
	PostComment(ctx context.Context, artistID string, draft models.CommentDraft) (*models.ArtistComment, error)
}

// Service is the whole backend as seen by screens.
type Service interface {
	Account
	Collections
	Catalog
}

var _ Service = (*MusiqService)(nil)
