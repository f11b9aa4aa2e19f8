package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/desertthunder/musiq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList lists the user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	return mount(ctx, r, cmd, screen[[]models.Playlist]{
		name: "playlists",
		fetch: func(ctx context.Context, _ string) ([]models.Playlist, error) {
			return r.service.MyPlaylists(ctx)
		},
		match: tasks.CollectionMatch(events.Playlists, false),
		render: func(playlists []models.Playlist) error {
			return r.render(cmd, playlists, func() error { return r.writePlaylists(playlists) })
		},
	})
}

func (r *Runner) writePlaylists(playlists []models.Playlist) error {
	if len(playlists) == 0 {
		return r.writePlain("No playlists yet. Create one with 'musiq playlists create <title>'\n")
	}
	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for _, p := range playlists {
		r.writePlain("• %s (ID: %d, %s)\n", p.Title, p.ID, shared.VisibilityString(p.IsPublic))
		if s := p.Summary(); s != "" {
			r.writePlain("  %s\n", shared.Truncate(s, 80))
		}
	}
	return nil
}

// PlaylistsShow prints a playlist and its songs.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	return mount(ctx, r, cmd, screen[*models.PlaylistExport]{
		name: "playlist",
		key:  strconv.FormatInt(id, 10),
		fetch: func(ctx context.Context, _ string) (*models.PlaylistExport, error) {
			p, err := r.service.Playlist(ctx, id)
			if err != nil {
				return nil, err
			}
			songs, err := r.service.PlaylistSongs(ctx, id)
			if err != nil {
				return nil, err
			}
			return &models.PlaylistExport{Playlist: *p, Songs: songs}, nil
		},
		match: func(e events.Event, key string) bool {
			return tasks.CollectionMatch(events.Playlists, true)(e, key) || tasks.CollectionMatch(events.Likes, false)(e, key)
		},
		render: func(export *models.PlaylistExport) error {
			return r.render(cmd, export, func() error { return r.writePlaylist(export) })
		},
	})
}

func (r *Runner) writePlaylist(export *models.PlaylistExport) error {
	p := export.Playlist
	r.writePlainHeader(p.Title)
	if s := p.Summary(); s != "" {
		r.writePlain("%s\n", s)
	}
	r.writePlain("ID: %d • %s • %d songs • %s\n\n", p.ID, shared.VisibilityString(p.IsPublic), len(export.Songs), shared.FormatDuration(export.TotalDuration()))
	return r.writeSongs(export.Songs)
}

func (r *Runner) writeSongs(songs []models.Song) error {
	if len(songs) == 0 {
		return r.writePlain("No songs\n")
	}
	for i, s := range songs {
		liked := ""
		if s.IsLiked {
			liked = " ♥"
		}
		line := fmt.Sprintf("%3d. %s - %s", i+1, s.Artist.Name, s.Title)
		if album := s.AlbumTitle(); album != "" {
			line += " (" + album + ")"
		}
		r.writePlain("%s [%s] (song %d)%s\n", line, shared.FormatDuration(s.Duration()), s.ID, liked)
	}
	return nil
}

// PlaylistsCreate creates a playlist. The title is validated before anything is sent.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	draft := models.NewPlaylistDraft(cmd.StringArg("title"), cmd.String("description"))
	draft.IsPublic = !cmd.Bool("private")
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	p, err := r.library.CreatePlaylist(ctx, draft)
	if err != nil {
		return err
	}
	r.logger.Info("playlist created", "id", p.ID)
	return r.writePlain("✓ Created playlist %q (ID: %d)\n", p.Title, p.ID)
}

// PlaylistsUpdate applies the flags that were set.
func (r *Runner) PlaylistsUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd, "id")
	if err != nil {
		return err
	}
	if cmd.Bool("public") && cmd.Bool("private") {
		return fmt.Errorf("%w: --public and --private are exclusive", shared.ErrInvalidFlag)
	}

	var patch models.PlaylistPatch
	if cmd.IsSet("title") {
		patch.Title = models.StringPtr(cmd.String("title"))
	}
	if cmd.IsSet("description") {
		patch.Description = models.StringPtr(cmd.String("description"))
	}
	switch {
	case cmd.Bool("public"):
		public := true
		patch.IsPublic = &public
	case cmd.Bool("private"):
		public := false
		patch.IsPublic = &public
	}
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	p, err := r.library.UpdatePlaylist(ctx, id, patch)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Updated playlist %q (%s)\n", p.Title, shared.VisibilityString(p.IsPublic))
}

// PlaylistsDelete deletes a playlist after confirmation.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		if !r.interactive {
			return fmt.Errorf("%w: pass --yes to delete without a prompt", shared.ErrMissingArgument)
		}
		confirmed := false
		if err := r.prompt(huh.NewConfirm().Title(fmt.Sprintf("Delete playlist %d?", id)).Value(&confirmed)); err != nil {
			return err
		}
		if !confirmed {
			return r.writePlain("Cancelled\n")
		}
	}

	if err := r.library.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted playlist %d\n", id)
}

func (r *Runner) songArgs(cmd *cli.Command) (int64, int64, error) {
	playlistID, err := parseID(cmd, "playlist")
	if err != nil {
		return 0, 0, err
	}
	songID, err := parseID(cmd, "song")
	if err != nil {
		return 0, 0, err
	}
	return playlistID, songID, nil
}

// PlaylistsAdd adds a song to a playlist.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID, songID, err := r.songArgs(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	if err := r.library.AddSong(ctx, playlistID, songID); err != nil {
		return err
	}
	return r.writePlain("✓ Added song %d to playlist %d\n", songID, playlistID)
}

// PlaylistsRemove removes a song from a playlist.
func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID, songID, err := r.songArgs(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	if err := r.library.RemoveSong(ctx, playlistID, songID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed song %d from playlist %d\n", songID, playlistID)
}

// PlaylistsRemoveAlbum removes every song that was added to a playlist as part of one album.
func (r *Runner) PlaylistsRemoveAlbum(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := parseID(cmd, "playlist")
	if err != nil {
		return err
	}
	groupID, err := requireArg(cmd, "group")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	if err := r.library.RemoveAlbumGroup(ctx, playlistID, groupID); err != nil {
		return err
	}
	return r.writePlain("✓ Removed album %s from playlist %d\n", groupID, playlistID)
}

// Liked lists the user's liked songs.
func (r *Runner) Liked(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	return mount(ctx, r, cmd, screen[[]models.Song]{
		name: "liked-songs",
		fetch: func(ctx context.Context, _ string) ([]models.Song, error) {
			return r.service.LikedSongs(ctx)
		},
		match: tasks.CollectionMatch(events.Likes, false),
		render: func(songs []models.Song) error {
			return r.render(cmd, songs, func() error {
				r.writePlain("%d liked songs\n\n", len(songs))
				return r.writeSongs(songs)
			})
		},
	})
}

// Like toggles the like on a song and reports the new state.
func (r *Runner) Like(ctx context.Context, cmd *cli.Command) error {
	songID, err := parseID(cmd, "song")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	liked, err := r.library.ToggleLike(ctx, songID)
	if err != nil {
		return err
	}
	if liked {
		return r.writePlain("✓ Liked song %d\n", songID)
	}
	return r.writePlain("✓ Unliked song %d\n", songID)
}
