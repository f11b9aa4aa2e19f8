// Package session holds the client's authentication state: one bearer token and the cached profile
// of the user it belongs to.
//
// The [Store] is the only writer of that state. Every change goes through [Store.SetSession] or
// [Store.ClearSession], both of which persist first and then publish [events.SessionChanged] so that
// mounted screens can re-render. A missing token always means logged out, whatever else is stored.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/shared"
)

// Canonical storage keys. Nothing else in the client reads or writes session data.
const (
	TokenKey   = "auth.token"
	ProfileKey = "auth.profile"
)

// Storage is a durable string key-value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes keys; missing keys are not an error.
	Delete(keys ...string) error
}

// Session is a point-in-time view of the store.
type Session struct {
	Token         string              `json:"-" yaml:"-"`
	Profile       *models.UserProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
	Authenticated bool                `json:"authenticated" yaml:"authenticated"`
}

// Store reads and writes the session through a [Storage] and announces changes on an [events.Bus].
type Store struct {
	storage Storage
	bus     *events.Bus
	logger  *log.Logger

	mu        sync.Mutex
	lastToken string
}

// NewStore creates a Store. The bus may be nil, in which case changes are persisted but not announced.
func NewStore(storage Storage, bus *events.Bus, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := &Store{
		storage: storage,
		bus:     bus,
		logger:  shared.WithLogger(logger, "component", "session"),
	}
	s.lastToken, _ = s.Token()
	return s
}

// Token returns the stored bearer token. Storage failures are logged and reported as absent.
func (s *Store) Token() (string, bool) {
	v, ok, err := s.storage.Get(TokenKey)
	if err != nil {
		s.logger.Warn("failed to read token", "error", err)
		return "", false
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// Profile returns the cached profile. It is absent whenever the token is absent,
// and when the stored value cannot be decoded.
func (s *Store) Profile() (*models.UserProfile, bool) {
	if !s.IsAuthenticated() {
		return nil, false
	}

	raw, ok, err := s.storage.Get(ProfileKey)
	if err != nil {
		s.logger.Warn("failed to read profile", "error", err)
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var p models.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("discarding malformed profile", "error", err)
		return nil, false
	}
	return &p, true
}

// Current returns the token, profile and authentication flag together.
func (s *Store) Current() Session {
	token, ok := s.Token()
	if !ok {
		return Session{}
	}
	profile, _ := s.Profile()
	return Session{Token: token, Profile: profile, Authenticated: true}
}

// SetSession persists token and profile, then publishes SessionChanged{Authenticated: true}.
// A nil profile removes any previously cached one. When the token cannot be written the
// previous profile is put back, so a stored profile always belongs to the stored token.
func (s *Store) SetSession(token string, profile *models.UserProfile) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	prev, hadPrev, err := s.storage.Get(ProfileKey)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	if err := s.writeProfile(profile); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.storage.Set(TokenKey, token); err != nil {
		s.restoreProfile(prev, hadPrev)
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	s.lastToken = token
	s.mu.Unlock()

	s.logger.Info("session started", "user", profile.DisplayName())
	s.publish(true)
	return nil
}

// UpdateProfile replaces the cached profile of the current session and publishes SessionChanged.
func (s *Store) UpdateProfile(profile *models.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: nil profile", shared.ErrInvalidInput)
	}
	if !s.IsAuthenticated() {
		return shared.ErrNotAuthenticated
	}

	s.mu.Lock()
	err := s.writeProfile(profile)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(true)
	return nil
}

// ClearSession removes token and profile and publishes SessionChanged{Authenticated: false}.
// Calling it when already logged out is harmless and still publishes.
func (s *Store) ClearSession() {
	s.mu.Lock()
	if err := s.storage.Delete(TokenKey, ProfileKey); err != nil {
		s.logger.Error("failed to clear session", "error", err)
	}
	had := s.lastToken != ""
	s.lastToken = ""
	s.mu.Unlock()

	if had {
		s.logger.Info("session cleared")
	}
	s.publish(false)
}

// Refresh re-reads the token from storage and publishes SessionChanged when it differs from the
// last token this store wrote or observed. Used to pick up changes made by other processes.
func (s *Store) Refresh() bool {
	token, _ := s.Token()

	s.mu.Lock()
	changed := token != s.lastToken
	s.lastToken = token
	s.mu.Unlock()

	if changed {
		s.logger.Debug("session changed externally", "authenticated", token != "")
		s.publish(token != "")
	}
	return changed
}

func (s *Store) writeProfile(profile *models.UserProfile) error {
	if profile == nil {
		if err := s.storage.Delete(ProfileKey); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		return nil
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.storage.Set(ProfileKey, string(data)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorage, err)
	}
	return nil
}

// restoreProfile puts back the profile that was stored before a failed SetSession.
func (s *Store) restoreProfile(raw string, ok bool) {
	var err error
	if ok {
		err = s.storage.Set(ProfileKey, raw)
	} else {
		err = s.storage.Delete(ProfileKey)
	}
	if err != nil {
		s.logger.Error("failed to restore profile", "error", err)
	}
}

func (s *Store) publish(authenticated bool) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.SessionChanged{Authenticated: authenticated})
}

// MemoryStorage is an in-process [Storage], used in tests and when no database is configured.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	if key == "" {
		return errors.New("empty key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
