package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = songItem{}
	_ list.Item = chartItem{}
	_ list.Item = trackItem{}
	_ list.Item = artistItem{}
	_ list.Item = commentItem{}
	_ list.Item = textItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Title }
func (i playlistItem) Title() string       { return i.playlist.Title }
func (i playlistItem) Description() string {
	desc := shared.VisibilityString(i.playlist.IsPublic)
	if s := i.playlist.Summary(); s != "" {
		desc = fmt.Sprintf("%s • %s", desc, s)
	}
	return desc
}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title }
func (i songItem) Title() string {
	if i.song.IsLiked {
		return "♥ " + i.song.Title
	}
	return i.song.Title
}
func (i songItem) Description() string {
	parts := []string{i.song.Artist.Name}
	if album := i.song.AlbumTitle(); album != "" {
		parts = append(parts, album)
	}
	parts = append(parts, shared.FormatDuration(i.song.Duration()))
	return strings.Join(parts, " • ")
}

// chartItem wraps [models.ChartEntry] to implement [list.Item].
type chartItem struct {
	entry models.ChartEntry
}

func (i chartItem) FilterValue() string { return i.entry.Title }
func (i chartItem) Title() string       { return fmt.Sprintf("%d. %s", i.entry.Rank, i.entry.Title) }
func (i chartItem) Description() string {
	return fmt.Sprintf("%s • %s listeners", i.entry.Artist.Name, strconv.FormatInt(i.entry.ListenerCount(), 10))
}

func (i chartItem) songID() (int64, bool) {
	if i.entry.SongID == nil {
		return 0, false
	}
	return *i.entry.SongID, true
}

// trackItem wraps [models.SearchTrack] to implement [list.Item].
type trackItem struct {
	track models.SearchTrack
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.ArtistLine()
	if i.track.Album != nil && *i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, *i.track.Album)
	}
	return desc
}

func (i trackItem) songID() (int64, bool) {
	if i.track.SongID == nil {
		return 0, false
	}
	return *i.track.SongID, true
}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string {
	parts := []string{fmt.Sprintf("%d followers", i.artist.Followers)}
	if len(i.artist.Genres) > 0 {
		parts = append(parts, strings.Join(i.artist.Genres, ", "))
	}
	if i.artist.IsFavorite {
		parts = append(parts, "★")
	}
	return strings.Join(parts, " • ")
}

// commentItem wraps [models.ArtistComment] to implement [list.Item].
type commentItem struct {
	comment models.ArtistComment
}

func (i commentItem) FilterValue() string { return i.comment.Content }
func (i commentItem) Title() string       { return i.comment.Content }
func (i commentItem) Description() string {
	if i.comment.CreatedAt.IsZero() {
		return i.comment.Username
	}
	return fmt.Sprintf("%s • %s", i.comment.Username, i.comment.CreatedAt.Format("2006-01-02"))
}

// textItem is a non-interactive line, used for section headers and details.
type textItem struct {
	title, desc string
}

func (i textItem) FilterValue() string { return i.title }
func (i textItem) Title() string       { return i.title }
func (i textItem) Description() string { return i.desc }

// songIDOf returns the backend song id behind a selectable item.
func songIDOf(item list.Item) (int64, bool) {
	switch it := item.(type) {
	case songItem:
		return it.song.ID, true
	case chartItem:
		return it.songID()
	case trackItem:
		return it.songID()
	}
	return 0, false
}
