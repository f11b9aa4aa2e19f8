package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/shared"
)

// chartPreview is how many chart entries the home screen shows.
const chartPreview = 10

// page is what a screen renders once its load settles.
type page struct {
	title    string
	items    []list.Item
	empty    string
	playlist *models.Playlist
	artist   *models.Artist
}

// loader fetches the data behind a [Location].
type loader struct {
	service services.Service
	authed  func() bool
}

func (l loader) load(ctx context.Context, loc Location) (page, error) {
	if loc.Route.RequiresAuth() && !l.authed() {
		return page{}, fmt.Errorf("%w: %s", shared.ErrAuthRequired, loc)
	}

	switch loc.Route {
	case RouteHome:
		return l.home(ctx)
	case RouteSearch:
		return l.search(ctx, loc.Key)
	case RouteChart:
		return l.chart(ctx)
	case RouteArtists:
		return l.artists(ctx, loc.Key)
	case RouteArtist:
		return l.artist(ctx, loc.Key)
	case RoutePlaylists:
		return l.playlists(ctx)
	case RoutePlaylist:
		return l.playlist(ctx, loc.PlaylistID())
	case RouteLiked:
		return l.liked(ctx)
	}
	return page{}, fmt.Errorf("%w: route %d", shared.ErrInvalidArgument, loc.Route)
}

func (l loader) home(ctx context.Context) (page, error) {
	p := page{title: "Home", empty: "Nothing to show yet."}
	if l.authed() {
		playlists, err := l.service.MyPlaylists(ctx)
		if err != nil {
			return page{}, err
		}
		p.items = append(p.items, textItem{title: "Your playlists", desc: fmt.Sprintf("%d playlists", len(playlists))})
		for _, pl := range playlists {
			p.items = append(p.items, playlistItem{playlist: pl})
		}
	}

	chart, err := l.service.Chart(ctx)
	if err != nil {
		return page{}, err
	}
	tracks := chart.Tracks
	if len(tracks) > chartPreview {
		tracks = tracks[:chartPreview]
	}
	p.items = append(p.items, textItem{title: "Top tracks", desc: "press 2 for the full chart"})
	for _, e := range tracks {
		p.items = append(p.items, chartItem{entry: e})
	}
	return p, nil
}

func (l loader) search(ctx context.Context, query string) (page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return page{title: "Search", empty: "Press / to search for tracks and artists."}, nil
	}

	res, err := l.service.Search(ctx, query)
	if err != nil {
		return page{}, err
	}
	p := page{title: fmt.Sprintf("Search: %q", query), empty: fmt.Sprintf("No results for %q.", query)}
	for _, t := range res.Tracks {
		p.items = append(p.items, trackItem{track: t})
	}
	for _, a := range res.Artists {
		p.items = append(p.items, artistItem{artist: fromSearchArtist(a)})
	}
	for _, a := range res.Albums {
		p.items = append(p.items, textItem{title: a.Name, desc: "album • " + strings.Join(a.Artists, ", ")})
	}
	return p, nil
}

func fromSearchArtist(a models.SearchArtist) models.Artist {
	out := models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres, ImageURL: a.Image}
	if a.Followers != nil {
		out.Followers = *a.Followers
	}
	return out
}

func (l loader) chart(ctx context.Context) (page, error) {
	chart, err := l.service.Chart(ctx)
	if err != nil {
		return page{}, err
	}
	p := page{title: "Chart", empty: "The chart is empty."}
	for _, e := range chart.Tracks {
		p.items = append(p.items, chartItem{entry: e})
	}
	return p, nil
}

// artists searches when a query is set and otherwise lists the user's favorites.
func (l loader) artists(ctx context.Context, query string) (page, error) {
	query = strings.TrimSpace(query)
	if query != "" {
		found, err := l.service.SearchArtists(ctx, query)
		if err != nil {
			return page{}, err
		}
		p := page{title: fmt.Sprintf("Artists: %q", query), empty: fmt.Sprintf("No artists match %q.", query)}
		for _, a := range found {
			p.items = append(p.items, artistItem{artist: a})
		}
		return p, nil
	}

	if !l.authed() {
		return page{title: "Artists", empty: "Press / to search for an artist."}, nil
	}
	favorites, err := l.service.FavoriteArtists(ctx)
	if err != nil {
		return page{}, err
	}
	p := page{title: "Favorite artists", empty: "No favorite artists yet. Press / to search."}
	for _, f := range favorites {
		p.items = append(p.items, artistItem{artist: models.Artist{ID: f.ID, Name: f.Name, ImageURL: f.ImageURL, IsFavorite: true}})
	}
	return p, nil
}

func (l loader) artist(ctx context.Context, id string) (page, error) {
	a, err := l.service.Artist(ctx, id)
	if err != nil {
		return page{}, err
	}
	comments, err := l.service.ArtistComments(ctx, id)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return page{}, err
	}

	p := page{title: a.Name, artist: a}
	p.items = append(p.items, artistItem{artist: *a})
	p.items = append(p.items, textItem{title: "Popularity", desc: strconv.Itoa(a.Popularity)})
	p.items = append(p.items, textItem{title: "Comments", desc: commentCount(len(comments))})
	for _, c := range comments {
		p.items = append(p.items, commentItem{comment: c})
	}
	return p, nil
}

func commentCount(n int) string {
	if n == 1 {
		return "1 comment"
	}
	return fmt.Sprintf("%d comments", n)
}

func (l loader) playlists(ctx context.Context) (page, error) {
	playlists, err := l.service.MyPlaylists(ctx)
	if err != nil {
		return page{}, err
	}
	p := page{title: "Playlists", empty: "No playlists yet. Press n to create one."}
	for _, pl := range playlists {
		p.items = append(p.items, playlistItem{playlist: pl})
	}
	return p, nil
}

func (l loader) playlist(ctx context.Context, id int64) (page, error) {
	pl, err := l.service.Playlist(ctx, id)
	if err != nil {
		return page{}, err
	}
	songs, err := l.service.PlaylistSongs(ctx, id)
	if err != nil {
		return page{}, err
	}
	export := models.PlaylistExport{Playlist: *pl, Songs: songs}
	p := page{
		title:    fmt.Sprintf("%s (%d songs, %s)", pl.Title, len(songs), shared.FormatDuration(export.TotalDuration())),
		empty:    "This playlist has no songs. Add some from the chart or search.",
		playlist: pl,
	}
	for _, s := range songs {
		p.items = append(p.items, songItem{song: s})
	}
	return p, nil
}

func (l loader) liked(ctx context.Context) (page, error) {
	songs, err := l.service.LikedSongs(ctx)
	if err != nil {
		return page{}, err
	}
	p := page{title: "Liked songs", empty: "No liked songs yet."}
	for _, s := range songs {
		p.items = append(p.items, songItem{song: s})
	}
	return p, nil
}

// resolvePlaylist finds one of the user's playlists by id or case-insensitive title.
func resolvePlaylist(ctx context.Context, svc services.Collections, ref string) (*models.Playlist, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &models.FieldError{Field: "playlist", Message: "playlist is required"}
	}
	playlists, err := svc.MyPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	id, _ := strconv.ParseInt(ref, 10, 64)
	for i := range playlists {
		if playlists[i].ID == id || strings.EqualFold(playlists[i].Title, ref) {
			return &playlists[i], nil
		}
	}
	return nil, &models.FieldError{Field: "playlist", Message: fmt.Sprintf("no playlist matches %q", ref)}
}
