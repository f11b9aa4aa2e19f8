package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/tasks"
	"github.com/urfave/cli/v3"
)

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func songRef(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf(" (song %d)", *id)
}

// Search queries tracks, albums and artists.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	var result *models.SearchResult
	if err := r.wait(ctx, "Searching...", func(ctx context.Context) error {
		result, err = r.service.Search(ctx, query)
		return err
	}); err != nil {
		return err
	}

	n := int(cmd.Int("limit"))
	result.Tracks = limit(result.Tracks, n)
	result.Albums = limit(result.Albums, n)
	result.Artists = limit(result.Artists, n)

	return r.render(cmd, result, func() error {
		if result.Empty() {
			return r.writePlain("No results for %q\n", query)
		}
		if len(result.Tracks) > 0 {
			r.writePlainln("Tracks")
			for _, t := range result.Tracks {
				r.writePlain("• %s - %s%s\n", t.ArtistLine(), t.Name, songRef(t.SongID))
			}
		}
		if len(result.Artists) > 0 {
			r.writePlainln("Artists")
			for _, a := range result.Artists {
				r.writePlain("• %s (ID: %s)\n", a.Name, a.ID)
			}
		}
		if len(result.Albums) > 0 {
			r.writePlainln("Albums")
			for _, a := range result.Albums {
				r.writePlain("• %s - %s\n", strings.Join(a.Artists, ", "), a.Name)
			}
		}
		return nil
	})
}

// Chart prints the top tracks.
func (r *Runner) Chart(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	chart, err := r.service.Chart(ctx)
	if err != nil {
		return err
	}
	chart.Tracks = limit(chart.Tracks, int(cmd.Int("limit")))

	return r.render(cmd, chart, func() error {
		r.writePlainHeader("Top Tracks")
		for _, e := range chart.Tracks {
			r.writePlain("%3d. %s - %s [%d listeners]%s\n", e.Rank, e.Artist.Name, e.Title, e.ListenerCount(), songRef(e.SongID))
		}
		return nil
	})
}

// ArtistsSearch searches artists by name.
func (r *Runner) ArtistsSearch(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	artists, err := r.service.SearchArtists(ctx, query)
	if err != nil {
		return err
	}
	return r.render(cmd, artists, func() error {
		if len(artists) == 0 {
			return r.writePlain("No artists match %q\n", query)
		}
		for _, a := range artists {
			r.writeArtistLine(a)
		}
		return nil
	})
}

func (r *Runner) writeArtistLine(a models.Artist) {
	star := ""
	if a.IsFavorite {
		star = " ★"
	}
	r.writePlain("• %s (ID: %s, %d followers)%s\n", a.Name, a.ID, a.Followers, star)
	if len(a.Genres) > 0 {
		r.writePlain("  %s\n", strings.Join(a.Genres, ", "))
	}
}

// ArtistShow prints an artist page.
func (r *Runner) ArtistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	artist, err := r.service.Artist(ctx, id)
	if err != nil {
		return err
	}
	return r.render(cmd, artist, func() error {
		r.writePlainHeader(artist.Name)
		r.writePlain("ID: %s\n", artist.ID)
		if len(artist.Genres) > 0 {
			r.writePlain("Genres: %s\n", strings.Join(artist.Genres, ", "))
		}
		r.writePlain("Followers: %d\nPopularity: %d/100\n", artist.Followers, artist.Popularity)
		if artist.IsFavorite {
			r.writePlain("★ In your favorites\n")
		}
		return nil
	})
}

// ArtistComments lists the comments on an artist.
func (r *Runner) ArtistComments(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	comments, err := r.service.ArtistComments(ctx, id)
	if err != nil {
		return err
	}
	return r.render(cmd, comments, func() error {
		if len(comments) == 0 {
			return r.writePlain("No comments yet\n")
		}
		for _, c := range comments {
			r.writePlain("%s (%s)\n  %s\n", c.Username, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
		}
		return nil
	})
}

// ArtistComment posts a comment.
func (r *Runner) ArtistComment(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	draft := models.CommentDraft{Content: strings.TrimSpace(cmd.StringArg("text"))}
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	if _, err := r.library.PostComment(ctx, id, draft); err != nil {
		return err
	}
	return r.writePlain("✓ Comment posted on artist %s\n", id)
}

// ArtistFavorite adds an artist to the favorites, or removes it with --remove.
func (r *Runner) ArtistFavorite(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	if cmd.Bool("remove") {
		if err := r.library.RemoveFavoriteArtist(ctx, id); err != nil {
			return err
		}
		return r.writePlain("✓ Removed artist %s from favorites\n", id)
	}
	if err := r.library.AddFavoriteArtist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Added artist %s to favorites\n", id)
}

// ArtistFavorites lists favorite artists.
func (r *Runner) ArtistFavorites(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	return mount(ctx, r, cmd, screen[[]models.FavoriteArtist]{
		name: "favorites",
		fetch: func(ctx context.Context, _ string) ([]models.FavoriteArtist, error) {
			return r.service.FavoriteArtists(ctx)
		},
		match: tasks.CollectionMatch(events.Favorites, false),
		render: func(artists []models.FavoriteArtist) error {
			return r.render(cmd, artists, func() error {
				if len(artists) == 0 {
					return r.writePlain("No favorite artists yet\n")
				}
				for _, a := range artists {
					r.writePlain("★ %s (ID: %s)\n", a.Name, a.ID)
				}
				return nil
			})
		},
	})
}
