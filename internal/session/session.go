// Package session holds the per-user conversation state machine.
package session

import (
	"errors"

	"github.com/phantomlink/phantom-link/internal/persona"
	"github.com/phantomlink/phantom-link/internal/types"
)

// State is a conversation session's lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateLocalitySet
	StateActiveDefault
	StateActiveUpgraded
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocalitySet:
		return "locality_set"
	case StateActiveDefault:
		return "active_default"
	case StateActiveUpgraded:
		return "active_upgraded"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

var (
	// ErrLocalityNotSet is returned when a chat turn arrives before the
	// session knows its city and state.
	ErrLocalityNotSet = errors.New("location not set")

	// ErrLocalityImmutable is returned when a caller tries to change an
	// already-set locality.
	ErrLocalityImmutable = errors.New("locality already set")

	// ErrSessionEnded is returned for operations on an ended session.
	ErrSessionEnded = errors.New("session ended")
)

// Session is the session-scoped conversation state. Messages[0] is always the
// current system prompt once the session is active; it is the only message
// ever mutated in place.
type Session struct {
	ID              string
	UserID          uint
	Locality        types.Locality
	Messages        []types.Message
	SentimentScore  int
	PersonaUpgraded bool
	GhostName       string
	SelectedGhostID uint
	UpgradeAttempts int

	state State
}

// New returns a session in the uninitialized state.
func New(id string) *Session {
	return &Session{
		ID:        id,
		GhostName: persona.UnknownGhostName,
	}
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	return s.state
}

// SetLocality records the session's city and state. The locality is set once
// and immutable afterward.
func (s *Session) SetLocality(city, state string) error {
	if s.state == StateEnded {
		return ErrSessionEnded
	}
	if city == "" || state == "" {
		return ErrLocalityNotSet
	}
	if s.Locality.IsSet() {
		if s.Locality.City == city && s.Locality.State == state {
			return nil
		}
		return ErrLocalityImmutable
	}
	s.Locality = types.Locality{City: city, State: state}
	if s.state == StateUninitialized {
		s.state = StateLocalitySet
	}
	return nil
}

// SelectGhost binds a persisted ghost chosen before the session starts.
// Binding after activation has no effect on the running conversation.
func (s *Session) SelectGhost(ghostID uint) {
	if s.state == StateUninitialized || s.state == StateLocalitySet {
		s.SelectedGhostID = ghostID
	}
}

// Active reports whether the first chat turn already initialized the prompt.
func (s *Session) Active() bool {
	return s.state == StateActiveDefault || s.state == StateActiveUpgraded
}

// ActivateDefault installs the generic ghost prompt on the first chat turn.
func (s *Session) ActivateDefault(systemPrompt string) error {
	if s.state != StateLocalitySet {
		return ErrLocalityNotSet
	}
	s.Messages = []types.Message{{Role: types.RoleSystem, Content: systemPrompt}}
	s.SentimentScore = 0
	s.PersonaUpgraded = false
	s.GhostName = persona.UnknownGhostName
	s.state = StateActiveDefault
	return nil
}

// ActivateSelected seeds the session from a persisted ghost. Sentiment-driven
// upgrades are bypassed for the remainder of the session.
func (s *Session) ActivateSelected(ghost *types.Ghost) error {
	if s.state != StateLocalitySet {
		return ErrLocalityNotSet
	}
	s.Messages = []types.Message{{Role: types.RoleSystem, Content: ghost.Prompt}}
	s.SentimentScore = 0
	s.PersonaUpgraded = false
	s.GhostName = ghost.Name
	s.state = StateActiveUpgraded
	return nil
}

// UpgradeEligible reports whether this turn should attempt a persona upgrade.
func (s *Session) UpgradeEligible() bool {
	return s.state == StateActiveDefault &&
		!s.PersonaUpgraded &&
		s.SelectedGhostID == 0 &&
		s.SentimentScore >= 3
}

// ApplyUpgrade replaces the system prompt in place and binds the ghost's
// name. Fires at most once; the rest of the history is untouched.
func (s *Session) ApplyUpgrade(systemPrompt, ghostName string) {
	if s.state != StateActiveDefault || s.PersonaUpgraded {
		return
	}
	s.Messages[0].Content = systemPrompt
	s.GhostName = ghostName
	s.PersonaUpgraded = true
	s.state = StateActiveUpgraded
}

// AppendUser appends a user turn to the history.
func (s *Session) AppendUser(content string) {
	s.Messages = append(s.Messages, types.Message{Role: types.RoleUser, Content: content})
}

// AppendAssistant appends a ghost reply to the history.
func (s *Session) AppendAssistant(content string) {
	s.Messages = append(s.Messages, types.Message{Role: types.RoleAssistant, Content: content})
}

// Reset discards the conversation but keeps the locality and user identity,
// returning the session to the locality-set state.
func (s *Session) Reset() {
	s.Messages = nil
	s.SentimentScore = 0
	s.PersonaUpgraded = false
	s.GhostName = persona.UnknownGhostName
	s.SelectedGhostID = 0
	s.UpgradeAttempts = 0
	if s.Locality.IsSet() {
		s.state = StateLocalitySet
	} else {
		s.state = StateUninitialized
	}
}

// End marks the session ended. Callers archive before ending.
func (s *Session) End() {
	s.state = StateEnded
}
