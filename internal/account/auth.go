// Package account is the facade over the external auth, object-storage and
// document-store backend: sign-in, sign-out, auth-state subscription, and the
// personal gallery.
package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/apperr"
)

// Session is one signed-in identity. It lives for a single login and is
// destroyed on sign-out.
type Session struct {
	ID          string
	UserID      string
	DisplayName string
	Email       string
	Locale      string
	CreatedAt   time.Time
}

// AuthEvent notifies subscribers of an auth-state change. Session is nil when
// the session ended.
type AuthEvent struct {
	SessionID string
	Session   *Session
}

// AuthService verifies external identity tokens, mints studio session tokens
// and broadcasts auth-state changes to subscribers.
type AuthService struct {
	verifier TokenVerifier
	secret   []byte
	tokenTTL time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	sessions    map[string]*Session
	subscribers map[int]func(AuthEvent)
	nextSub     int
}

func NewAuthService(verifier TokenVerifier, secret string, logger zerolog.Logger) *AuthService {
	return &AuthService{
		verifier:    verifier,
		secret:      []byte(secret),
		tokenTTL:    24 * time.Hour,
		logger:      logger,
		sessions:    make(map[string]*Session),
		subscribers: make(map[int]func(AuthEvent)),
	}
}

type sessionClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SignIn verifies an external ID token, creates a Session and returns it
// together with a signed bearer token for subsequent requests.
func (s *AuthService) SignIn(ctx context.Context, idToken string) (*Session, string, error) {
	if idToken == "" {
		return nil, "", fmt.Errorf("%w: id token is required", apperr.ErrInvalidInput)
	}
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	name := identity.Name
	if name == "" {
		name = identity.Email
	}
	session := &Session{
		ID:          uuid.NewString(),
		UserID:      identity.Subject,
		DisplayName: name,
		Email:       identity.Email,
		Locale:      identity.Locale,
		CreatedAt:   time.Now(),
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Name: session.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.UserID,
			Issuer:    "studio",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	s.logger.Info().Str("user_id", session.UserID).Msg("account: session created")
	notify(subs, AuthEvent{SessionID: session.ID, Session: session})
	return session, token, nil
}

// SignOut destroys a session and notifies subscribers. Unknown sessions are a
// no-op.
func (s *AuthService) SignOut(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	if !ok {
		return
	}
	s.logger.Info().Str("user_id", session.UserID).Msg("account: session ended")
	notify(subs, AuthEvent{SessionID: sessionID, Session: nil})
}

// Lookup resolves a live session by id.
func (s *AuthService) Lookup(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// VerifySessionToken validates a bearer token and resolves its session. A
// token for a signed-out session is rejected even when the signature is
// still valid.
func (s *AuthService) VerifySessionToken(token string) (*Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidCredentials, err)
	}
	session, ok := s.Lookup(claims.ID)
	if !ok {
		return nil, fmt.Errorf("%w: session is no longer active", apperr.ErrInvalidCredentials)
	}
	return session, nil
}

// SubscribeAuthState registers a listener for auth-state changes. The current
// state (every live session) is delivered at subscribe time, then every
// change after. The returned func unsubscribes.
func (s *AuthService) SubscribeAuthState(fn func(AuthEvent)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	current := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		current = append(current, session)
	}
	s.mu.Unlock()

	for _, session := range current {
		fn(AuthEvent{SessionID: session.ID, Session: session})
	}

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// snapshotSubscribers must be called with the mutex held.
func (s *AuthService) snapshotSubscribers() []func(AuthEvent) {
	subs := make([]func(AuthEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(AuthEvent), event AuthEvent) {
	for _, fn := range subs {
		fn(event)
	}
}
