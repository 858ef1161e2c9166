/*
Package session persists the signed-in user's identity on disk.

The session is written at registration, read at startup, and removed at logout.
It is the only source of "who am I" for the rest of the client. Changes made by
this process or by another one sharing the file are observable through Watch.
*/
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"duochat/internal/app/user"
	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
)

// Session is the authenticated identity of the local user.
type Session struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`

	// Token is the optional bearer token issued at registration.
	Token string `json:"token,omitempty"`
}

// Label returns the name to greet the user with.
func (s Session) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// User converts the session to the participant it represents.
func (s Session) User() user.User {
	return user.User{ID: s.UID, Name: s.Label(), Email: s.Email, Online: true}
}

// Store reads and writes the session file.
type Store struct {
	path string

	// now is the clock used for token expiry checks.
	now func() time.Time

	// mu protects watchers.
	mu       sync.Mutex
	watchers map[chan struct{}]struct{}
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{
		path:     filepath.Clean(path),
		now:      time.Now,
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored session.
// It fails with ErrNotSignedIn when no session exists and with ErrSessionExpired
// when the stored token is past its expiry.
func (s *Store) Load() (*Session, error) {
	sess, err := s.read()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errs.NewError(errs.ErrNotSignedIn)
	}

	if sess.Token != "" && jwt.Expired(sess.Token, s.now()) {
		return nil, errs.NewError(errs.ErrSessionExpired)
	}

	return sess, nil
}

// read returns the session on disk, or nil when there is none.
func (s *Store) read() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if sess.UID == "" {
		return nil, nil
	}

	return &sess, nil
}

// Save writes sess atomically and notifies watchers.
func (s *Store) Save(sess Session) error {
	if sess.UID == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	raw, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}

	s.notify()
	return nil
}

// Clear removes the stored session and notifies watchers.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}

	s.notify()
	return nil
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) addWatcher() chan struct{} {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	return ch
}

func (s *Store) removeWatcher(ch chan struct{}) {
	s.mu.Lock()
	delete(s.watchers, ch)
	s.mu.Unlock()
}
