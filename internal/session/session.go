// Package session holds the authentication state shared by every view.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"worktracker/internal/api"
	"worktracker/internal/models"
)

// Backend performs the two token exchanges. *api.Client satisfies it.
type Backend interface {
	Login(ctx context.Context, creds models.Credentials) (*models.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type EventType int

const (
	LoggedIn EventType = iota
	Refreshed
	Expired
	LoggedOut
)

func (t EventType) String() string {
	switch t {
	case LoggedIn:
		return "logged-in"
	case Refreshed:
		return "refreshed"
	case Expired:
		return "expired"
	case LoggedOut:
		return "logged-out"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Op is an authenticated operation run under the given access token.
type Op func(ctx context.Context, token string) error

type Session struct {
	backend Backend

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	userID       string

	refreshMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []func(EventType)
}

func New(backend Backend) *Session {
	return &Session{backend: backend}
}

// OnEvent registers fn. Listeners are called in registration order.
func (s *Session) OnEvent(fn func(EventType)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Session) emit(ev EventType) {
	s.listenersMu.Lock()
	ls := append([]func(EventType){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range ls {
		fn(ev)
	}
}

// Authenticate logs in. Prior state is kept on any failure, including a
// response missing one of the three session fields.
func (s *Session) Authenticate(ctx context.Context, creds models.Credentials) error {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return api.ErrMissingCredentials
	}

	tokens, err := s.backend.Login(ctx, creds)
	if err != nil {
		return err
	}
	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.UserID == "" {
		return fmt.Errorf("%w: incomplete login response", api.ErrInvalidCredentials)
	}

	s.mu.Lock()
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.userID = tokens.UserID
	s.mu.Unlock()

	log.Printf("[session] authenticated employee %s", tokens.UserID)
	s.emit(LoggedIn)
	return nil
}

// EnsureAuthenticated reports whether an access token is held. It does not
// check server-side expiry.
func (s *Session) EnsureAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

// Refresh swaps the refresh token for a new access token. On failure the
// session is cleared and the caller has to authenticate again.
func (s *Session) Refresh(ctx context.Context) bool {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		s.expire(errors.New("no refresh token"))
		return false
	}

	access, err := s.backend.Refresh(ctx, refreshToken)
	if err != nil {
		s.expire(err)
		return false
	}

	s.mu.Lock()
	// A logout racing the refresh wins.
	if s.refreshToken != refreshToken {
		s.mu.Unlock()
		return false
	}
	s.accessToken = access
	s.mu.Unlock()

	s.emit(Refreshed)
	return true
}

func (s *Session) expire(cause error) {
	s.clear()
	log.Printf("[session] token refresh failed, session expired: %v", cause)
	s.emit(Expired)
}

// Logout clears all tokens. Calling it twice is harmless.
func (s *Session) Logout() {
	s.clear()
	s.emit(LoggedOut)
}

func (s *Session) clear() {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.userID = ""
	s.mu.Unlock()
}

// CallWithRetry runs op under the current token. An unauthorized failure
// triggers one refresh and, if it succeeds, exactly one more run of op.
// Anything else, including a failed refresh, returns op's original error.
func (s *Session) CallWithRetry(ctx context.Context, op Op) error {
	token := s.AccessToken()
	if token == "" {
		return api.ErrNotAuthenticated
	}

	err := op(ctx, token)
	if !errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	if !s.Refresh(ctx) {
		return err
	}
	return op(ctx, s.AccessToken())
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Snapshot() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionState{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		UserID:       s.userID,
	}
}
