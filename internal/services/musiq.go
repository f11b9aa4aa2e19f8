package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
	"golang.org/x/oauth2"
)

// SessionWriter is the session as seen by login: read the token and replace or drop the session.
type SessionWriter interface {
	TokenStore
	SetSession(token string, profile *models.UserProfile) error
}

// MusiqService implements [Service] over a [Gateway].
type MusiqService struct {
	gw      *Gateway
	session SessionWriter
}

// NewMusiqService wraps gw. The session must be the same store the gateway reads tokens from.
func NewMusiqService(gw *Gateway, session SessionWriter) *MusiqService {
	return &MusiqService{gw: gw, session: session}
}

// Gateway returns the underlying gateway.
func (s *MusiqService) Gateway() *Gateway { return s.gw }

// Login exchanges credentials for a token with the OAuth2 password grant, fetches the profile
// and stores both. Nothing is stored when either step fails.
func (s *MusiqService) Login(ctx context.Context, creds models.Credentials) (*models.UserProfile, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.gw.BaseURL() + "/users/login",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.gw.HTTPClient())

	tok, err := conf.PasswordCredentialsToken(ctx, strings.TrimSpace(creds.Username), creds.Password)
	if err != nil {
		return nil, loginError(err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response had no access token", shared.ErrRequestFailed)
	}

	profile, err := s.fetchProfile(ctx, tok)
	if err != nil {
		return nil, err
	}

	if err := s.session.SetSession(tok.AccessToken, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// fetchProfile reads /users/me with a token that is not stored yet.
func (s *MusiqService) fetchProfile(ctx context.Context, tok *oauth2.Token) (*models.UserProfile, error) {
	var profile models.UserProfile
	pending := s.gw.withTokens(staticToken(tok.AccessToken))
	if err := pending.Get(ctx, "/users/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func loginError(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		status := rErr.Response.StatusCode
		msg, fields := parseDetail(rErr.Body)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			if msg == "" {
				msg = "incorrect username or password"
			}
			return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, msg)
		}
		return &APIError{
			Status:  status,
			Method:  http.MethodPost,
			Path:    "/users/login",
			Message: msg,
			Fields:  fields,
			Kind:    statusKind(status),
		}
	}
	return transportError(http.MethodPost, "/users/login", err)
}

// Logout drops the local session. The backend keeps no server-side session to revoke.
func (s *MusiqService) Logout() {
	s.session.ClearSession()
}

// Register creates an account. It does not sign in.
func (s *MusiqService) Register(ctx context.Context, reg models.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return s.gw.Post(ctx, "/users/register", reg, nil)
}

func (s *MusiqService) Me(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.gw.Get(ctx, "/users/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateMe sends the changed profile fields and refreshes the cached profile.
func (s *MusiqService) UpdateMe(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := s.gw.Put(ctx, "/users/me", update, &profile); err != nil {
		return nil, err
	}

	if token, ok := s.session.Token(); ok {
		if err := s.session.SetSession(token, &profile); err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

func (s *MusiqService) ChangePassword(ctx context.Context, change models.PasswordChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	return s.gw.Put(ctx, "/users/me/password", change, nil)
}

func (s *MusiqService) MyPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var out []models.Playlist
	if err := s.gw.Get(ctx, "/playlists/my-playlists", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MusiqService) Playlist(ctx context.Context, id int64) (*models.Playlist, error) {
	var out models.Playlist
	if err := s.gw.Get(ctx, playlistPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MusiqService) CreatePlaylist(ctx context.Context, draft models.PlaylistDraft) (*models.Playlist, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var out models.Playlist
	if err := s.gw.Post(ctx, "/playlists/", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MusiqService) UpdatePlaylist(ctx context.Context, id int64, patch models.PlaylistPatch) (*models.Playlist, error) {
	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var out models.Playlist
	if err := s.gw.Put(ctx, playlistPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MusiqService) DeletePlaylist(ctx context.Context, id int64) error {
	return s.gw.Delete(ctx, playlistPath(id), nil)
}

func (s *MusiqService) PlaylistSongs(ctx context.Context, id int64) ([]models.Song, error) {
	var out []models.Song
	if err := s.gw.Get(ctx, playlistPath(id)+"/songs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MusiqService) AddSong(ctx context.Context, playlistID, songID int64) error {
	body := map[string]int64{"song_id": songID}
	return s.gw.Post(ctx, playlistPath(playlistID)+"/songs", body, nil)
}

func (s *MusiqService) RemoveSong(ctx context.Context, playlistID, songID int64) error {
	return s.gw.Delete(ctx, playlistPath(playlistID)+"/songs/"+strconv.FormatInt(songID, 10), nil)
}

// RemoveAlbumGroup removes every song that was added to the playlist as part of one album.
func (s *MusiqService) RemoveAlbumGroup(ctx context.Context, playlistID int64, groupID string) error {
	if strings.TrimSpace(groupID) == "" {
		return fmt.Errorf("%w: album group id", shared.ErrMissingArgument)
	}
	return s.gw.Delete(ctx, playlistPath(playlistID)+"/album-group/"+url.PathEscape(groupID), nil)
}

func (s *MusiqService) LikedSongs(ctx context.Context) ([]models.Song, error) {
	var out []models.Song
	if err := s.gw.Get(ctx, "/playlists/liked-songs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleLike flips the like on a song and reports whether it is now liked.
func (s *MusiqService) ToggleLike(ctx context.Context, songID int64) (bool, error) {
	var msg models.Message
	if err := s.gw.Post(ctx, "/playlists/like-song/"+strconv.FormatInt(songID, 10), nil, &msg); err != nil {
		return false, err
	}
	return !strings.Contains(strings.ToLower(msg.Message), "unliked"), nil
}

func (s *MusiqService) FavoriteArtists(ctx context.Context) ([]models.FavoriteArtist, error) {
	var out []models.FavoriteArtist
	if err := s.gw.Get(ctx, "/users/me/favorite-artists", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MusiqService) AddFavoriteArtist(ctx context.Context, artistID string) error {
	if strings.TrimSpace(artistID) == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	return s.gw.Post(ctx, "/users/me/favorite-artists", map[string]string{"artist_id": artistID}, nil)
}

func (s *MusiqService) RemoveFavoriteArtist(ctx context.Context, artistID string) error {
	if strings.TrimSpace(artistID) == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	return s.gw.Delete(ctx, "/users/me/favorite-artists/"+url.PathEscape(artistID), nil)
}

func (s *MusiqService) Chart(ctx context.Context) (*models.Chart, error) {
	var out models.Chart
	if err := s.gw.Get(ctx, "/api/chartPage", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search queries tracks, albums and artists. A blank query returns an empty result without a request.
func (s *MusiqService) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &models.SearchResult{}, nil
	}

	var out models.SearchResult
	path := "/api/searchPage?" + url.Values{"query": {query}}.Encode()
	if err := s.gw.Post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MusiqService) Artist(ctx context.Context, id string) (*models.Artist, error) {
	var out models.Artist
	if err := s.gw.Get(ctx, artistPath(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MusiqService) SearchArtists(ctx context.Context, query string) ([]models.Artist, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	// Guests use the public endpoint, which never marks favorites.
	path := "/artists/search/"
	if _, ok := s.session.Token(); !ok {
		path = "/artists/public-search/"
	}

	var out []models.Artist
	if err := s.gw.Get(ctx, path+url.PathEscape(query), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MusiqService) ArtistComments(ctx context.Context, id string) ([]models.ArtistComment, error) {
	var out []models.ArtistComment
	if err := s.gw.Get(ctx, artistPath(id)+"/comments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MusiqService) PostComment(ctx context.Context, artistID string, draft models.CommentDraft) (*models.ArtistComment, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.Content = strings.TrimSpace(draft.Content)

	var out models.ArtistComment
	if err := s.gw.Post(ctx, artistPath(artistID)+"/comments", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func playlistPath(id int64) string {
	return "/playlists/" + strconv.FormatInt(id, 10)
}

func artistPath(id string) string {
	return "/artists/" + url.PathEscape(id)
}

type staticToken string

func (t staticToken) Token() (string, bool) { return string(t), t != "" }

func (staticToken) ClearSession() {}
