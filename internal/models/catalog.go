package models

import (
	"strconv"
	"strings"
)

// ChartArtist is the artist credit on a chart entry.
type ChartArtist struct {
	Name string  `json:"name" yaml:"name"`
	MBID *string `json:"mbid,omitempty" yaml:"mbid,omitempty"`
	URL  *string `json:"url,omitempty" yaml:"url,omitempty"`
}

// ChartEntry is one ranked track of GET /api/chartPage.
type ChartEntry struct {
	Rank        int         `json:"rank" yaml:"rank"`
	Title       string      `json:"title" yaml:"title"`
	Playcount   string      `json:"playcount" yaml:"playcount"`
	Listeners   string      `json:"listeners" yaml:"listeners"`
	MBID        *string     `json:"mbid,omitempty" yaml:"mbid,omitempty"`
	URL         string      `json:"url" yaml:"url"`
	SongID      *int64      `json:"song_id,omitempty" yaml:"song_id,omitempty"`
	Artist      ChartArtist `json:"artist" yaml:"artist"`
	ImageSmall  *string     `json:"image_small,omitempty" yaml:"image_small,omitempty"`
	ImageSource *string     `json:"image_source,omitempty" yaml:"image_source,omitempty"`
}

// ListenerCount parses the listener count, which the backend sends as a string. Unparseable values are 0.
func (c ChartEntry) ListenerCount() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(c.Listeners), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Chart is the body of GET /api/chartPage.
type Chart struct {
	Tracks     []ChartEntry `json:"tracks" yaml:"tracks"`
	TotalCount int          `json:"total_count" yaml:"total_count"`
	Timestamp  string       `json:"timestamp" yaml:"timestamp"`
}

// SearchTrack is a track hit. SongID is set once the backend has stored the track locally,
// which is what playlists and likes require.
type SearchTrack struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Artists    []string `json:"artists" yaml:"artists"`
	Album      *string  `json:"album,omitempty" yaml:"album,omitempty"`
	DurationMS *int     `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	PreviewURL *string  `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
	Image      *string  `json:"image,omitempty" yaml:"image,omitempty"`
	URL        string   `json:"url" yaml:"url"`
	SongID     *int64   `json:"song_id,omitempty" yaml:"song_id,omitempty"`
}

// ArtistLine joins the artist names for display.
func (t SearchTrack) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// SearchAlbum is an album hit.
type SearchAlbum struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Artists     []string `json:"artists" yaml:"artists"`
	ReleaseDate *string  `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	TotalTracks *int     `json:"total_tracks,omitempty" yaml:"total_tracks,omitempty"`
	Image       *string  `json:"image,omitempty" yaml:"image,omitempty"`
	URL         string   `json:"url" yaml:"url"`
}

// SearchArtist is an artist hit.
type SearchArtist struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Genres    []string `json:"genres,omitempty" yaml:"genres,omitempty"`
	Followers *int     `json:"followers,omitempty" yaml:"followers,omitempty"`
	Image     *string  `json:"image,omitempty" yaml:"image,omitempty"`
	URL       string   `json:"url" yaml:"url"`
}

// SearchResult is the body of POST /api/searchPage.
type SearchResult struct {
	Albums  []SearchAlbum  `json:"albums" yaml:"albums"`
	Tracks  []SearchTrack  `json:"tracks" yaml:"tracks"`
	Artists []SearchArtist `json:"artists" yaml:"artists"`
}

// Empty reports whether the search matched nothing.
func (r SearchResult) Empty() bool {
	return len(r.Albums) == 0 && len(r.Tracks) == 0 && len(r.Artists) == 0
}

// Artist is the artist page returned by GET /artists/{id} and the artist search endpoints.
type Artist struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Genres     []string `json:"genres" yaml:"genres"`
	ImageURL   *string  `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Popularity int      `json:"popularity" yaml:"popularity"`
	Followers  int      `json:"followers" yaml:"followers"`
	IsFavorite bool     `json:"is_favorite" yaml:"is_favorite"`
}

// FavoriteArtist is an entry of GET /users/me/favorite-artists.
type FavoriteArtist struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	ImageURL *string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// ArtistComment is a comment on an artist page.
type ArtistComment struct {
	ID        int64     `json:"id" yaml:"id"`
	ArtistID  string    `json:"artist_id" yaml:"artist_id"`
	UserID    int64     `json:"user_id" yaml:"user_id"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt Timestamp `json:"created_at" yaml:"-"`
	Username  string    `json:"username" yaml:"username"`
}

// MaxCommentLength bounds artist comments.
const MaxCommentLength = 500

// CommentDraft is the body of POST /artists/{id}/comments.
type CommentDraft struct {
	Content string `json:"content"`
}

// Validate rejects blank or overlong comments.
func (c CommentDraft) Validate() error {
	switch {
	case blank(c.Content):
		return &FieldError{Field: "content", Message: "comment is empty"}
	case len([]rune(strings.TrimSpace(c.Content))) > MaxCommentLength:
		return &FieldError{Field: "content", Message: "comment is too long"}
	}
	return nil
}
