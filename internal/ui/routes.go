package ui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/shared"
)

// Route is a top-level screen.
type Route int

const (
	RouteHome Route = iota
	RouteSearch
	RouteChart
	RouteArtists
	RouteArtist
	RoutePlaylists
	RoutePlaylist
	RouteLiked
)

func (r Route) String() string {
	switch r {
	case RouteHome:
		return "home"
	case RouteSearch:
		return "search"
	case RouteChart:
		return "chart"
	case RouteArtists:
		return "artists"
	case RouteArtist:
		return "artist"
	case RoutePlaylists:
		return "playlists"
	case RoutePlaylist:
		return "playlist"
	case RouteLiked:
		return "liked-songs"
	default:
		return ""
	}
}

// RequiresAuth reports whether the route shows the user's own data.
func (r Route) RequiresAuth() bool {
	return r == RoutePlaylists || r == RoutePlaylist || r == RouteLiked
}

// Location is a route plus its key: a search query, artist id or playlist id.
type Location struct {
	Route Route
	Key   string
}

func (l Location) String() string {
	switch l.Route {
	case RouteSearch:
		return "search?q=" + url.QueryEscape(l.Key)
	case RouteArtist:
		return "artists/" + l.Key
	case RoutePlaylist:
		return "playlists/" + l.Key
	default:
		return l.Route.String()
	}
}

// PlaylistID returns the key of a playlist location as an id.
func (l Location) PlaylistID() int64 {
	id, _ := strconv.ParseInt(l.Key, 10, 64)
	return id
}

// ParseLocation reads the path form produced by [Location.String].
func ParseLocation(s string) (Location, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return Location{Route: RouteHome}, nil
	}

	if rest, ok := strings.CutPrefix(s, "search"); ok {
		q := ""
		if query, ok := strings.CutPrefix(rest, "?"); ok {
			values, err := url.ParseQuery(query)
			if err != nil {
				return Location{}, fmt.Errorf("%w: %q: %v", shared.ErrInvalidArgument, s, err)
			}
			q = values.Get("q")
		}
		return Location{Route: RouteSearch, Key: q}, nil
	}

	head, id, hasID := strings.Cut(s, "/")
	switch head {
	case "home":
		return Location{Route: RouteHome}, nil
	case "chart":
		return Location{Route: RouteChart}, nil
	case "liked-songs", "liked":
		return Location{Route: RouteLiked}, nil
	case "artists":
		if hasID && id != "" {
			return Location{Route: RouteArtist, Key: id}, nil
		}
		return Location{Route: RouteArtists}, nil
	case "playlists":
		if !hasID || id == "" {
			return Location{Route: RoutePlaylists}, nil
		}
		if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
			return Location{}, fmt.Errorf("%w: playlist id %q", shared.ErrInvalidArgument, id)
		}
		return Location{Route: RoutePlaylist, Key: id}, nil
	}
	return Location{}, fmt.Errorf("%w: unknown route %q", shared.ErrInvalidArgument, s)
}

// stale reports whether e makes the data shown at l out of date.
func (l Location) stale(e events.Event) bool {
	switch ev := e.(type) {
	case events.SessionChanged:
		return true
	case events.CollectionChanged:
		switch l.Route {
		case RouteHome, RoutePlaylists:
			return ev.Affects(events.Playlists, "")
		case RoutePlaylist:
			return ev.Affects(events.Playlists, l.Key) || ev.Affects(events.Likes, "")
		case RouteLiked:
			return ev.Affects(events.Likes, "")
		case RouteArtist:
			return ev.Affects(events.Comments, l.Key) || ev.Affects(events.Favorites, l.Key)
		}
	}
	return false
}
