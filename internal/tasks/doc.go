// Package tasks holds the screen-side logic shared by the CLI and the TUI.
//
// # Resources and Views
//
// A [Resource] moves through idle -> loading -> success | error. Every load begins with a
// [Ticket]; only the newest ticket may settle, so when two loads overlap the last one begun
// wins and the other result is dropped. There is no cache: each load is a fresh request.
//
// A [View] binds a Resource to a fetch function and the bus events that make its data stale:
//
//  1. [View.Mount] subscribes and loads the route key (a playlist id, a search query, "")
//  2. a matching event triggers [View.Refresh]
//  3. [View.Unmount] unsubscribes and detaches, so anything still in flight is discarded
//
// # Mutations
//
// [Library] is the only place mutations happen. Each validates locally, calls the backend,
// and on success publishes events.CollectionChanged. A failed mutation publishes nothing.
// [Library.ListenForCreateRequests] lets one screen create a playlist on behalf of another.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes every playlist (or a selection) with its songs to disk using a
// rate-limited fetcher and a pool of writers, reports [ProgressUpdate] values on a non-blocking
// channel, and writes a manifest. Runs are recorded through an optional [RunRecorder].
package tasks
