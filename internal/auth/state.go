// Package auth holds the per-visitor session state machine.
//
// A visitor starts bootstrapping, becomes authenticated or anonymous once the
// backend has answered "who am I", and moves between the two on login, logout
// and refresh. Transitions are computed by Reduce; Store applies them.
package auth

import "github.com/good-yellow-bee/toolme/internal/models"

// Phase names a state of the machine.
type Phase string

const (
	PhaseBootstrapping Phase = "bootstrapping"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

// State is a snapshot of the session. The zero value is anonymous.
type State struct {
	UserID          string `json:"user_id,omitempty"`
	Email           string `json:"email,omitempty"`
	IsAuthenticated bool   `json:"is_authenticated"`
	Loading         bool   `json:"loading"`
}

// Bootstrapping is the state of a session the backend has not been asked
// about yet.
func Bootstrapping() State {
	return State{Loading: true}
}

// Phase derives the phase from the flags.
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseBootstrapping
	case s.IsAuthenticated:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}

// User returns the identity, or nil when not authenticated.
func (s State) User() *models.User {
	if !s.IsAuthenticated {
		return nil
	}
	return &models.User{ID: s.UserID, Email: s.Email}
}

// EventKind identifies a transition trigger.
type EventKind string

const (
	EventBootstrapped EventKind = "bootstrapped"
	EventLoggedIn     EventKind = "logged_in"
	EventLoggedOut    EventKind = "logged_out"
	EventRefreshed    EventKind = "refreshed"
)

// Event is an input to Reduce. User is the backend's answer to "who am I";
// nil means no session.
type Event struct {
	Kind EventKind
	User *models.User
}

func Bootstrapped(u *models.User) Event { return Event{Kind: EventBootstrapped, User: u} }
func LoggedIn(u *models.User) Event     { return Event{Kind: EventLoggedIn, User: u} }
func LoggedOut() Event                  { return Event{Kind: EventLoggedOut} }
func Refreshed(u *models.User) Event    { return Event{Kind: EventRefreshed, User: u} }

// Reduce returns the state that follows s on e. Unknown events leave s as is.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case EventBootstrapped, EventLoggedIn, EventRefreshed:
		return identity(e.User)
	case EventLoggedOut:
		return State{}
	}
	return s
}

func identity(u *models.User) State {
	if u == nil {
		return State{}
	}
	return State{UserID: u.ID, Email: u.Email, IsAuthenticated: true}
}
