// Package services talks to the music backend.
//
// # Gateway
//
// [Gateway] is the single HTTP path to the backend. It attaches the session's bearer token when
// one exists, sends JSON (or a form for [url.Values] bodies), and turns every non-2xx response into
// an [APIError]. The error always matches [shared.ErrRequestFailed] and also one status class:
//   - 401 : [shared.ErrAuthRequired]; the session is cleared before the error is returned
//   - 400, 422 : [shared.ErrValidation]
//   - 404 : [shared.ErrNotFound]
//   - 5xx : [shared.ErrServer]
//
// Transport failures match [shared.ErrNetwork], and [shared.ErrTimeout] when a deadline expired.
// Requests are never retried. Each one runs in an OpenTelemetry client span.
//
// # Service
//
// [MusiqService] implements [Service] with one method per backend endpoint. [MusiqService.Login]
// uses the OAuth2 password grant against /users/login and stores the session only after the
// profile has been fetched.
package services
