package models

import (
	"strings"
	"unicode/utf8"
)

// MaxPlaylistTitle bounds playlist titles.
const MaxPlaylistTitle = 100

// Playlist is a user-owned collection as returned by the playlists endpoints.
type Playlist struct {
	ID          int64      `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description *string    `json:"description" yaml:"description,omitempty"`
	IsPublic    bool       `json:"is_public" yaml:"is_public"`
	UserID      int64      `json:"user_id" yaml:"user_id"`
	CreatedAt   Timestamp  `json:"created_at" yaml:"-"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty" yaml:"-"`
}

// Summary returns the description or "".
func (p Playlist) Summary() string {
	if p.Description == nil {
		return ""
	}
	return strings.TrimSpace(*p.Description)
}

// PlaylistDraft is the body of POST /playlists/.
type PlaylistDraft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsPublic    bool   `json:"is_public"`
}

// NewPlaylistDraft returns a public draft, matching the backend default.
func NewPlaylistDraft(title, description string) PlaylistDraft {
	return PlaylistDraft{Title: title, Description: description, IsPublic: true}
}

// Normalize trims surrounding whitespace from text fields.
func (d PlaylistDraft) Normalize() PlaylistDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

// Validate rejects blank or overlong titles.
func (d PlaylistDraft) Validate() error {
	return validateTitle(d.Title)
}

// PlaylistPatch is the body of PUT /playlists/{id}. Nil fields are left unchanged.
type PlaylistPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// Normalize trims text fields that are set.
func (p PlaylistPatch) Normalize() PlaylistPatch {
	if p.Title != nil {
		p.Title = StringPtr(strings.TrimSpace(*p.Title))
	}
	if p.Description != nil {
		p.Description = StringPtr(strings.TrimSpace(*p.Description))
	}
	return p
}

// Validate rejects empty patches and a blank title when one is given.
func (p PlaylistPatch) Validate() error {
	if p.Title == nil && p.Description == nil && p.IsPublic == nil {
		return &FieldError{Field: "playlist", Message: "nothing to update"}
	}
	if p.Title != nil {
		return validateTitle(*p.Title)
	}
	return nil
}

func validateTitle(title string) error {
	switch {
	case blank(title):
		return &FieldError{Field: "title", Message: "title is required"}
	case utf8.RuneCountInString(strings.TrimSpace(title)) > MaxPlaylistTitle:
		return &FieldError{Field: "title", Message: "title is too long"}
	}
	return nil
}

// ArtistRef is the artist embedded in a song.
type ArtistRef struct {
	ID       ID      `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	ImageURL *string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// AlbumRef is the album embedded in a song.
type AlbumRef struct {
	ID       ID      `json:"id" yaml:"id"`
	Title    string  `json:"title" yaml:"title"`
	CoverURL *string `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
}

// Song is a playlist entry or liked song.
type Song struct {
	ID         int64     `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	DurationMS *int      `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	PreviewURL *string   `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
	AddedAt    Timestamp `json:"added_at" yaml:"-"`
	IsLiked    bool      `json:"is_liked" yaml:"is_liked"`
	Artist     ArtistRef `json:"artist" yaml:"artist"`
	Album      *AlbumRef `json:"album,omitempty" yaml:"album,omitempty"`
}

// Duration returns the length in milliseconds, 0 when unknown.
func (s Song) Duration() int {
	if s.DurationMS == nil {
		return 0
	}
	return *s.DurationMS
}

// AlbumTitle returns the album title or "".
func (s Song) AlbumTitle() string {
	if s.Album == nil {
		return ""
	}
	return s.Album.Title
}

// PlaylistExport is a playlist together with its songs, used for file exports.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist" yaml:"playlist"`
	Songs    []Song   `json:"songs" yaml:"songs"`
}

// TotalDuration sums the known song durations in milliseconds.
func (e PlaylistExport) TotalDuration() int {
	total := 0
	for _, s := range e.Songs {
		total += s.Duration()
	}
	return total
}

// Message is the generic {"message": ...} acknowledgement body.
type Message struct {
	Message string `json:"message"`
}
