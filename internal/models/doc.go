// Package models defines the data exchanged with the music backend and the local forms that precede it.
//
// The backend owns every entity. The client only needs to decode responses, fill request bodies,
// and reject obviously bad input before a request is made:
//   - [UserProfile] : the signed-in account. Every field is optional; see [UserProfile.DisplayName].
//   - [Playlist], [PlaylistDraft], [PlaylistPatch] : user collections and their create/update bodies
//   - [Song] : a playlist entry or liked song with nested [ArtistRef] and [AlbumRef]
//   - [Chart], [SearchResult], [Artist], [ArtistComment] : read-only catalog views
//   - [Registration], [ProfileUpdate], [PasswordChange] : account forms
//
// Local validation failures are reported as [FieldError] values which match [shared.ErrInvalidInput].
package models
