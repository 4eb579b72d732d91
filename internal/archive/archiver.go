// Package archive finalizes conversation sessions into durable records.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phantomlink/phantom-link/internal/persona"
	"github.com/phantomlink/phantom-link/internal/session"
	"github.com/phantomlink/phantom-link/internal/types"
)

// UnknownLocation is stored when a session never learned its locality.
const UnknownLocation = "Unknown Location"

// DefaultPortrait is stored when no portrait can be resolved for a ghost.
const DefaultPortrait = "/pics/ghost_portrait.png"

// ErrNothingToArchive is returned for sessions without a single
// user/assistant message.
var ErrNothingToArchive = errors.New("no conversation to archive")

// GhostWriter persists ghost personas. CreateIfAbsent leaves existing rows
// with the same name untouched.
type GhostWriter interface {
	CreateIfAbsent(ctx context.Context, ghost *types.Ghost) error
}

// ConversationWriter persists finalized conversation records.
type ConversationWriter interface {
	Create(ctx context.Context, conversation *types.Conversation) error
}

// TxRunner runs both writes in one transaction; any failure rolls back both.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ghosts GhostWriter, conversations ConversationWriter) error) error
}

// PortraitLookup resolves a portrait image for a ghost name. An empty URL
// with a nil error means no portrait exists.
type PortraitLookup interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// Archiver turns an ended session into durable records.
type Archiver struct {
	store     TxRunner
	portraits PortraitLookup
	nowFunc   func() time.Time
	logger    *slog.Logger
}

// NewArchiver returns an Archiver.
func NewArchiver(store TxRunner, portraits PortraitLookup, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		store:     store,
		portraits: portraits,
		nowFunc:   func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Finalize persists the session as a Conversation and, when a named persona
// concluded the conversation, a Ghost. Both writes share one transaction.
// The session itself is left untouched so a failed archive can be retried.
func (a *Archiver) Finalize(ctx context.Context, s *session.Session, ownerUserID uint) (*types.Conversation, error) {
	chatLog := renderChatLog(s.Messages)
	if chatLog == "" {
		return nil, ErrNothingToArchive
	}

	location := UnknownLocation
	if s.Locality.IsSet() {
		location = fmt.Sprintf("%s, %s", s.Locality.City, s.Locality.State)
	}

	conversation := &types.Conversation{
		UserID:    ownerUserID,
		GhostName: s.GhostName,
		ChatLog:   chatLog,
		Location:  location,
		Timestamp: a.nowFunc(),
	}

	var ghost *types.Ghost
	if s.GhostName != persona.UnknownGhostName {
		ghost = &types.Ghost{
			Name:     s.GhostName,
			Prompt:   s.Messages[0].Content,
			City:     s.Locality.City,
			State:    s.Locality.State,
			ImageURL: a.resolvePortrait(ctx, s.GhostName),
		}
	}

	err := a.store.InTx(ctx, func(ghosts GhostWriter, conversations ConversationWriter) error {
		if err := conversations.Create(ctx, conversation); err != nil {
			return err
		}
		if ghost != nil {
			if err := ghosts.CreateIfAbsent(ctx, ghost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive conversation: %w", err)
	}
	return conversation, nil
}

// resolvePortrait looks up a portrait, falling back to the default image on
// failure or absence. Lookup failures are logged, never surfaced.
func (a *Archiver) resolvePortrait(ctx context.Context, name string) string {
	if a.portraits == nil {
		return DefaultPortrait
	}
	imageURL, err := a.portraits.Lookup(ctx, name)
	if err != nil {
		a.logger.Warn("portrait lookup failed", "name", name, "error", err)
		return DefaultPortrait
	}
	if imageURL == "" {
		return DefaultPortrait
	}
	return imageURL
}

// renderChatLog filters the history to user/assistant turns and renders the
// stored transcript.
func renderChatLog(messages []types.Message) string {
	var lines []string
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleUser:
			lines = append(lines, "User: "+msg.Content)
		case types.RoleAssistant:
			lines = append(lines, "Ghost: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n\n")
}
