// Package session persists the bearer token and identity strings the screens
// read before talking to the backend.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/ride-booking-client/pkg/common"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

// ErrLoginRequired is returned when an operation needs a stored token.
var ErrLoginRequired = common.NewUnauthenticatedError("Please log in to continue.")

// Session is the persisted identity.
type Session struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	DriverID string `json:"driverId,omitempty"`
}

// HasToken reports whether a token is present.
func (s Session) HasToken() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Expired reports whether a JWT-shaped token carries an exp claim in the
// past. Opaque tokens never expire client-side; the signature is not checked.
func (s Session) Expired(now time.Time) bool {
	if strings.Count(s.Token, ".") != 2 {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

// Provider hands out the current session.
type Provider interface {
	Current() Session
}

// Static is a fixed Provider.
type Static Session

// Current implements Provider.
func (s Static) Current() Session { return Session(s) }

// Store keeps the session in a JSON file.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// DefaultPath returns <user config dir>/ride-booking/session.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	return filepath.Join(dir, "ride-booking", "session.json"), nil
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the session. A missing file yields an empty session.
func (s *Store) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Save writes the session with owner-only permissions.
func (s *Store) Save(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Current implements Provider. Unreadable sessions and expired tokens yield
// a session without a token.
func (s *Store) Current() Session {
	sess, err := s.Load()
	if err != nil {
		logger.Warn("session unreadable", zap.String("path", s.path), zap.Error(err))
		return Session{}
	}
	if sess.HasToken() && sess.Expired(s.now()) {
		logger.Info("session token expired", zap.String("path", s.path))
		sess.Token = ""
	}
	return sess
}
