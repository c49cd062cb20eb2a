package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/models"
)

// ErrNoSession is returned by Login when the backend accepted the
// credentials but "who am I" still reports no user.
var ErrNoSession = errors.New("login did not establish a session")

// Authenticator is the backend surface the store drives. *client.AuthService
// implements it.
type Authenticator interface {
	SignUp(ctx context.Context, in models.SignUpInput) (*models.User, error)
	Login(ctx context.Context, in models.LoginInput) (*client.TokenResponse, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
}

var _ Authenticator = (*client.AuthService)(nil)

// Transition is delivered to subscribers after every applied event.
type Transition struct {
	From  State
	To    State
	Event EventKind
}

// Store is the single writer of one session's State. Operations are
// serialized; readers get snapshots.
type Store struct {
	auth Authenticator

	mu    sync.Mutex // serializes operations end to end
	smu   sync.RWMutex
	state State
	subs  []func(Transition)
}

// NewStore creates a store starting from initial. Pass Bootstrapping() for a
// new visitor or a persisted state to resume one.
func NewStore(a Authenticator, initial State) *Store {
	return &Store{auth: a, state: initial}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.smu.RLock()
	defer s.smu.RUnlock()
	return s.state
}

// OnChange registers fn to be called after each transition. fn runs on the
// caller's goroutine while the store is locked and must not call back into
// the store.
func (s *Store) OnChange(fn func(Transition)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) apply(e Event) {
	s.smu.Lock()
	from := s.state
	s.state = Reduce(from, e)
	to := s.state
	s.smu.Unlock()

	for _, fn := range s.subs {
		fn(Transition{From: from, To: to, Event: e.Kind})
	}
}

// Bootstrap asks the backend who the visitor is. Any failure ends anonymous;
// the error is returned for logging only.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.auth.Me(ctx)
	if err != nil {
		s.apply(Bootstrapped(nil))
		return fmt.Errorf("bootstrap session: %w", err)
	}
	s.apply(Bootstrapped(u))
	return nil
}

// Login signs in and re-reads the identity. On any failure the state is left
// unchanged and the error is returned for display.
func (s *Store) Login(ctx context.Context, in models.LoginInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.auth.Login(ctx, in); err != nil {
		return err
	}
	u, err := s.auth.Me(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNoSession
	}
	s.apply(LoggedIn(u))
	return nil
}

// SignUp creates the account and logs in with the same credentials.
func (s *Store) SignUp(ctx context.Context, in models.SignUpInput) error {
	if _, err := s.auth.SignUp(ctx, in); err != nil {
		return err
	}
	return s.Login(ctx, models.LoginInput{Email: in.Email, Password: in.Password})
}

// Logout ends the session. The state becomes anonymous whatever the backend
// answers; a backend error is returned but needs no handling.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.auth.Logout(ctx)
	s.apply(LoggedOut())
	return err
}

// RefreshUser re-reads the identity after flows that change it server side
// (email verification, password reset, account deletion). A failed request
// leaves the state unchanged.
func (s *Store) RefreshUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.auth.Me(ctx)
	if err != nil {
		return fmt.Errorf("refresh user: %w", err)
	}
	s.apply(Refreshed(u))
	return nil
}
