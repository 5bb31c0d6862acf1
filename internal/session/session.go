package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// ErrExpired is returned when establishing a session with an expired token.
var ErrExpired = errors.New("session token has expired")

// Store persists the session blob. LoadSession returns nil, nil when nothing is stored.
type Store interface {
	LoadSession() ([]byte, error)
	SaveSession(blob []byte) error
	DeleteSession() error
}

// Option configures a Session.
type Option func(*Session)

// WithStore persists the session across runs.
func WithStore(st Store) Option {
	return func(s *Session) { s.store = st }
}

// WithSealer encrypts the persisted blob.
func WithSealer(sl *Sealer) Option {
	return func(s *Session) { s.sealer = sl }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// Session is the signed-in state shared by the API client and the workflow.
// Nothing is loaded implicitly: call Hydrate to restore a persisted session.
type Session struct {
	store  Store
	sealer *Sealer
	now    func() time.Time
	log    *slog.Logger

	mu        sync.RWMutex
	token     string
	user      models.User
	expiresAt time.Time
}

type persisted struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// New creates an empty session.
func New(opts ...Option) *Session {
	s := &Session{now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores the persisted session. An expired one is discarded.
func (s *Session) Hydrate() error {
	if s.store == nil {
		return nil
	}
	blob, err := s.store.LoadSession()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if blob == nil {
		return nil
	}
	if s.sealer != nil {
		if blob, err = s.sealer.Open(blob); err != nil {
			s.log.Warn("discarding unreadable session", "err", err)
			return s.Clear()
		}
	}

	var p persisted
	if err := json.Unmarshal(blob, &p); err != nil {
		s.log.Warn("discarding corrupt session", "err", err)
		return s.Clear()
	}
	if s.expired(p.ExpiresAt) {
		s.log.Info("stored session expired", "user_email", p.User.Email)
		return s.Clear()
	}

	s.mu.Lock()
	s.token, s.user, s.expiresAt = p.Token, p.User, p.ExpiresAt
	s.mu.Unlock()
	s.log.Debug("session restored", "user_email", p.User.Email, "role", p.User.Role)
	return nil
}

// Establish signs in with a token issued by the auth endpoint and persists it.
func (s *Session) Establish(token string, user models.User) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}
	if s.expired(claims.ExpiresAt) {
		return ErrExpired
	}
	if user.Role == "" {
		user.Role = claims.Role
	}
	if user.ID == "" {
		user.ID = claims.UserID
	}
	if user.Email == "" {
		user.Email = claims.Email
	}

	s.mu.Lock()
	s.token, s.user, s.expiresAt = token, user, claims.ExpiresAt
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	blob, err := json.Marshal(persisted{Token: token, User: user, ExpiresAt: claims.ExpiresAt})
	if err != nil {
		return err
	}
	if s.sealer != nil {
		if blob, err = s.sealer.Seal(blob); err != nil {
			return err
		}
	}
	if err := s.store.SaveSession(blob); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear forgets the session in memory and in the store.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token, s.user, s.expiresAt = "", models.User{}, time.Time{}
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.DeleteSession(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Token returns the bearer token, or "" when signed out or expired.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.expired(s.expiresAt) {
		return ""
	}
	return s.token
}

// Authenticated reports whether a usable token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// User returns the signed-in user.
func (s *Session) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Role returns the signed-in role, "" when signed out.
func (s *Session) Role() models.Role {
	if !s.Authenticated() {
		return ""
	}
	return s.User().Role
}

// ExpiresAt is the token expiry, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) expired(at time.Time) bool {
	return !at.IsZero() && !s.now().Before(at)
}
