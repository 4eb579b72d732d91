// Package chat orchestrates a single conversation turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phantomlink/phantom-link/internal/persona"
	"github.com/phantomlink/phantom-link/internal/sentiment"
	"github.com/phantomlink/phantom-link/internal/session"
	"github.com/phantomlink/phantom-link/internal/types"
)

var (
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("message is required")

	// ErrRateLimited is returned when the completion collaborator refuses
	// the call for rate limiting. Turn state is retained for retry.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// InvalidRequestError carries the completion collaborator's own description
// of a rejected request.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// Completer produces a reply for an ordered message history.
type Completer interface {
	Complete(ctx context.Context, messages []types.Message) (string, error)
}

// BiographyLookup resolves a notable person for a locality. A nil person with
// a nil error means no person exists for that locality.
type BiographyLookup interface {
	Lookup(ctx context.Context, city, state string) (*types.NotablePerson, error)
}

// GhostSource fetches persisted ghosts selected by the user.
type GhostSource interface {
	GetByID(ctx context.Context, id uint) (*types.Ghost, error)
}

// Processor runs the per-turn algorithm against a session.
type Processor struct {
	scorer    *sentiment.Scorer
	builder   *persona.Builder
	completer Completer
	bios      BiographyLookup
	ghosts    GhostSource
	logger    *slog.Logger
}

// NewProcessor returns a Processor.
func NewProcessor(scorer *sentiment.Scorer, builder *persona.Builder, completer Completer, bios BiographyLookup, ghosts GhostSource, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		scorer:    scorer,
		builder:   builder,
		completer: completer,
		bios:      bios,
		ghosts:    ghosts,
		logger:    logger,
	}
}

// HandleTurn applies one user turn to the session and returns the ghost's
// reply with the current accumulated sentiment. On completion failure the
// user message stays appended so a retried turn does not duplicate it.
func (p *Processor) HandleTurn(ctx context.Context, s *session.Session, userMessage string) (string, int, error) {
	if userMessage == "" {
		return "", s.SentimentScore, ErrEmptyMessage
	}
	if !s.Locality.IsSet() {
		return "", s.SentimentScore, session.ErrLocalityNotSet
	}

	if !s.Active() {
		if err := p.activate(ctx, s); err != nil {
			return "", s.SentimentScore, err
		}
	}

	if s.SelectedGhostID == 0 {
		s.SentimentScore += p.scorer.Score(userMessage)
		if s.UpgradeEligible() {
			p.attemptUpgrade(ctx, s)
		}
	}

	s.AppendUser(userMessage)

	reply, err := p.completer.Complete(ctx, s.Messages)
	if err != nil {
		return "", s.SentimentScore, err
	}

	s.AppendAssistant(reply)
	return reply, s.SentimentScore, nil
}

// activate installs the initial system prompt on the first chat turn.
func (p *Processor) activate(ctx context.Context, s *session.Session) error {
	if s.SelectedGhostID != 0 {
		ghost, err := p.ghosts.GetByID(ctx, s.SelectedGhostID)
		if err != nil {
			// Keep the binding so a retried turn can still activate the
			// selected ghost.
			return fmt.Errorf("failed to load selected ghost %d: %w", s.SelectedGhostID, err)
		}
		if ghost != nil {
			return s.ActivateSelected(ghost)
		}
		// Stale binding only: the ghost row is gone, so the session runs
		// the sentiment-driven path instead.
		p.logger.Warn("selected ghost no longer exists, falling back to default persona",
			"ghost_id", s.SelectedGhostID)
		s.SelectedGhostID = 0
	}

	prompt, err := p.builder.DefaultPrompt(s.Locality.City, s.Locality.State)
	if err != nil {
		return fmt.Errorf("failed to build default prompt: %w", err)
	}
	return s.ActivateDefault(prompt)
}

// attemptUpgrade tries the one-time persona upgrade. A missing person or a
// lookup failure leaves the session untouched; the attempt repeats on every
// later qualifying turn.
func (p *Processor) attemptUpgrade(ctx context.Context, s *session.Session) {
	s.UpgradeAttempts++

	person, err := p.bios.Lookup(ctx, s.Locality.City, s.Locality.State)
	if err != nil {
		p.logger.Warn("biography lookup failed",
			"city", s.Locality.City, "state", s.Locality.State,
			"attempts", s.UpgradeAttempts, "error", err)
		return
	}
	if person == nil {
		p.logger.Info("no notable person for locality",
			"city", s.Locality.City, "state", s.Locality.State,
			"attempts", s.UpgradeAttempts)
		return
	}

	prompt, err := p.builder.UpgradedPrompt(person, s.SentimentScore)
	if err != nil {
		p.logger.Error("failed to build upgraded prompt", "person", person.Name, "error", err)
		return
	}

	s.ApplyUpgrade(prompt, person.Name)
	p.logger.Info("persona upgraded", "session_id", s.ID, "ghost", person.Name)
}
