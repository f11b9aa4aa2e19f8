// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// Screens are addressed by [Location]: home, search?q=, chart, artists, artists/{id},
// playlists, playlists/{id} and liked-songs. The number keys jump between the top-level
// routes, enter opens the highlighted playlist or artist and esc goes back. Login, signup and
// account are modal forms; search, new playlist, add-to-playlist and comment are one-line prompts.
//
// The [Model] holds a single tasks.Resource keyed by the location string. Every load begins a
// ticket in Update and settles from a tea.Cmd, so a response for a route the user already left is
// dropped. Bus events reach the event loop through a buffered inbox drained by a waiting command,
// the same way a progress channel would: session-changed refreshes the header and any stale
// screen, collection-changed reloads the screen when it shows the changed collection.
//
// Mutations run through tasks.Library, which publishes the collection-changed event that makes
// sibling screens reload. The status line reports each outcome with a ✓ or the error.
package ui
