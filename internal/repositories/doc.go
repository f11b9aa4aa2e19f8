// Package repositories implements SQLite persistence for the client's local state.
//
// The backend owns all music data, so only two things are kept on disk:
//   - [KVRepository] : string key-value pairs; backs the session token and cached profile
//   - [ExportRunRepository] : history of bulk playlist exports
//
// Both expect a database prepared with [shared.RunMigrations].
package repositories
