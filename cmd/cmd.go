// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func watchFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Keep running and re-render when the session changes (login/logout in another terminal)",
	}
}

// authCommand handles logging in and out of the backend
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, log out, sign up and check the session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with username and password (prompts for anything missing)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored and for whom",
				Action: r.AuthStatus,
			},
			{
				Name:  "signup",
				Usage: "Create an account (does not log in)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username, at least 2 characters"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
					&cli.StringFlag{Name: "nickname", Usage: "Display name (defaults to the username)"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password, at least 8 characters"},
					&cli.BoolFlag{Name: "agree", Usage: "Accept the terms of service"},
				},
				Action: r.AuthSignup,
			},
		},
	}
}

// accountCommand handles the signed-in user's profile
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Show and edit your profile",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Fetch your profile from the backend",
				Action: r.AccountShow,
			},
			{
				Name:  "update",
				Usage: "Change username, email or nickname",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "New username"},
					&cli.StringFlag{Name: "email", Usage: "New email address"},
					&cli.StringFlag{Name: "nickname", Usage: "New display name"},
				},
				Action: r.AccountUpdate,
			},
			{
				Name:  "password",
				Usage: "Change your password (prompts when flags are missing)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "current", Usage: "Current password"},
					&cli.StringFlag{Name: "new", Usage: "New password, at least 8 characters"},
				},
				Action: r.AccountPassword,
			},
		},
	}
}

// playlistsCommand handles the user's playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List, inspect and edit your playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  []cli.Flag{watchFlag()},
				Action: r.PlaylistsList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its songs",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{watchFlag()},
				Action:    r.PlaylistsShow,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
					&cli.BoolFlag{Name: "private", Usage: "Create the playlist as private"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:      "update",
				Usage:     "Change a playlist's title, description or visibility",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
					&cli.BoolFlag{Name: "public", Usage: "Make the playlist public"},
					&cli.BoolFlag{Name: "private", Usage: "Make the playlist private"},
				},
				Action: r.PlaylistsUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
				},
				Action: r.PlaylistsDelete,
			},
			{
				Name:      "add",
				Usage:     "Add a song to a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}, &cli.StringArg{Name: "song"}},
				Action:    r.PlaylistsAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove a song from a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}, &cli.StringArg{Name: "song"}},
				Action:    r.PlaylistsRemove,
			},
			{
				Name:      "remove-album",
				Usage:     "Remove all songs added to a playlist as one album",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist"}, &cli.StringArg{Name: "group"}},
				Action:    r.PlaylistsRemoveAlbum,
			},
		},
	}
}

func likedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "liked",
		Usage:  "List your liked songs",
		Flags:  []cli.Flag{watchFlag()},
		Action: r.Liked,
	}
}

func likeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "like",
		Usage:     "Like or unlike a song",
		Arguments: []cli.Argument{&cli.StringArg{Name: "song"}},
		Action:    r.Like,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search tracks, albums and artists",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum results per section", Value: 10},
		},
		Action: r.Search,
	}
}

func chartCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "Show the top tracks chart",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of tracks", Value: 50},
		},
		Action: r.Chart,
	}
}

// artistsCommand handles artist pages, comments and favorites
func artistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artists",
		Usage: "Browse artists, comments and favorites",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search artists by name",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Action:    r.ArtistsSearch,
			},
			{
				Name:      "show",
				Usage:     "Show an artist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.ArtistShow,
			},
			{
				Name:      "comments",
				Usage:     "List comments on an artist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.ArtistComments,
			},
			{
				Name:      "comment",
				Usage:     "Post a comment on an artist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "text"}},
				Action:    r.ArtistComment,
			},
			{
				Name:      "favorite",
				Usage:     "Add an artist to your favorites",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "remove", Usage: "Remove the artist from your favorites instead"},
				},
				Action: r.ArtistFavorite,
			},
			{
				Name:   "favorites",
				Usage:  "List your favorite artists",
				Flags:  []cli.Flag{watchFlag()},
				Action: r.ArtistFavorites,
			},
		},
	}
}

// exportCommand handles bulk playlist exports
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export your playlists with their songs to disk",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or text (default from config)"},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default musiq_export_{epoch})"},
			&cli.StringSliceFlag{Name: "id", Usage: "Playlist id to export; repeat for several (default: all)"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent writers (default from config)"},
			&cli.FloatFlag{Name: "rate-limit", Usage: "Backend requests per second (default from config)"},
		},
		Action: r.Export,
		Commands: []*cli.Command{
			{
				Name:  "runs",
				Usage: "List previous export runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs", Value: 20},
				},
				Action: r.ExportRuns,
			},
		},
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "base-url", Usage: "Backend base URL to store in the new file"},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show configuration and migration status",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// tuiCommand launches the interactive terminal client
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "route", Usage: "Screen to open, e.g. chart, playlists/3, search?q=jazz", Value: "home"},
		},
		Action: r.TUI,
	}
}
