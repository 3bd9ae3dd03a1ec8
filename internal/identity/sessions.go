package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for expired, revoked or malformed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrNoSession is returned by Current when the context carries no signed-in user.
	ErrNoSession = errors.New("not signed in")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("identity sessions closed")
)

// UserStore is what sessions need from persistence; *Store implements it.
type UserStore interface {
	RoleSource
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	SaveRefreshToken(ctx context.Context, userID, tokenID string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, tokenID string) (bool, error)
}

// Session is a signed-in user as seen by the API.
type Session struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   RoleResult `json:"role"`
	Tokens *TokenPair `json:"tokens,omitempty"`
}

// EventKind names a session change.
type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	Refreshed EventKind = "refreshed"
	SignedOut EventKind = "signed_out"
)

// Event is delivered to subscribers after a session change.
type Event struct {
	Kind   EventKind
	UserID string
	Email  string
	At     time.Time
}

// Sessions is the authentication context of the service: it signs users in and out,
// rotates refresh tokens and tells subscribers about every change.
type Sessions struct {
	store UserStore
	roles *RoleChecker
	cfg   TokenConfig

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
	closed bool
}

// NewSessions creates the session context.
func NewSessions(store UserStore, roles *RoleChecker, cfg TokenConfig) *Sessions {
	return &Sessions{store: store, roles: roles, cfg: cfg, subs: make(map[int]func(Event))}
}

// Subscribe registers fn for session changes and returns its unsubscribe func.
func (s *Sessions) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close drops all subscribers; later calls fail with ErrClosed.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = map[int]func(Event){}
}

func (s *Sessions) publish(kind EventKind, userID, email string) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	evt := Event{Kind: kind, UserID: userID, Email: email, At: time.Now()}
	for _, fn := range subs {
		fn(evt)
	}
}

func (s *Sessions) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SignIn checks credentials and issues a token pair. The role is resolved once here so
// the console knows whether to show the admin area.
func (s *Sessions) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if u == nil || !checkPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	sess, err := s.issue(ctx, u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	s.publish(SignedIn, u.ID, u.Email)
	return sess, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair issued.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	active, err := s.store.RevokeRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !active {
		return nil, ErrInvalidToken
	}
	sess, err := s.issue(ctx, claims.Subject, claims.Email)
	if err != nil {
		return nil, err
	}
	s.publish(Refreshed, claims.Subject, claims.Email)
	return sess, nil
}

// SignOut revokes the refresh token and forgets the cached role.
func (s *Sessions) SignOut(ctx context.Context, refreshToken string) error {
	if s.isClosed() {
		return ErrClosed
	}
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	if _, err := s.store.RevokeRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.roles.Forget(ctx, claims.Subject)
	s.publish(SignedOut, claims.Subject, claims.Email)
	return nil
}

// Current returns the session of the user authenticated on ctx by the bearer middleware.
func (s *Sessions) Current(ctx context.Context) (*Session, error) {
	claims, ok := ClaimsFrom(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return &Session{UserID: claims.Subject, Email: claims.Email, Role: s.roles.Check(ctx, claims.Subject)}, nil
}

func (s *Sessions) issue(ctx context.Context, userID, email string) (*Session, error) {
	tokens, err := Issue(userID, email, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.store.SaveRefreshToken(ctx, userID, tokens.refreshID, tokens.RefreshExp); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &Session{UserID: userID, Email: email, Role: s.roles.Check(ctx, userID), Tokens: &tokens}, nil
}

func (s *Sessions) parseRefresh(token string) (Claims, error) {
	claims, err := Parse(token, s.cfg.SigningKey, s.cfg.Issuer)
	if err != nil || claims.Kind != kindRefresh || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
