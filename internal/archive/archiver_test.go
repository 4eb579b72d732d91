package archive

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/phantomlink/phantom-link/internal/session"
	"github.com/phantomlink/phantom-link/internal/types"
)

type fakeStore struct {
	conversations []*types.Conversation
	ghostNames    map[string]*types.Ghost
	failCreate    error
	txCalls       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{ghostNames: make(map[string]*types.Ghost)}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ghosts GhostWriter, conversations ConversationWriter) error) error {
	s.txCalls++
	staged := &txWriters{store: s}
	if err := fn(staged, staged); err != nil {
		// Rollback: nothing staged is kept.
		return err
	}
	s.conversations = append(s.conversations, staged.conversations...)
	for _, g := range staged.ghosts {
		if _, exists := s.ghostNames[g.Name]; !exists {
			s.ghostNames[g.Name] = g
		}
	}
	return nil
}

type txWriters struct {
	store         *fakeStore
	conversations []*types.Conversation
	ghosts        []*types.Ghost
}

func (w *txWriters) Create(_ context.Context, conversation *types.Conversation) error {
	if w.store.failCreate != nil {
		return w.store.failCreate
	}
	w.conversations = append(w.conversations, conversation)
	return nil
}

func (w *txWriters) CreateIfAbsent(_ context.Context, ghost *types.Ghost) error {
	w.ghosts = append(w.ghosts, ghost)
	return nil
}

type fakePortraits struct {
	url   string
	err   error
	calls int
}

func (p *fakePortraits) Lookup(context.Context, string) (string, error) {
	p.calls++
	return p.url, p.err
}

func upgradedSession(t *testing.T) *session.Session {
	t.Helper()
	s := session.New("s1")
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateDefault("default prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s.AppendUser("who are you")
	s.SentimentScore = 3
	s.ApplyUpgrade("upgraded prompt", "Paul Revere")
	s.AppendAssistant("I rode at midnight.")
	return s
}

func TestFinalizeRejectsEmptySession(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, &fakePortraits{}, slog.New(slog.DiscardHandler))

	s := session.New("s1")
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateDefault("prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := archiver.Finalize(context.Background(), s, 1); !errors.Is(err, ErrNothingToArchive) {
		t.Fatalf("err = %v, want ErrNothingToArchive", err)
	}
	if store.txCalls != 0 {
		t.Fatal("no transaction should run for an empty session")
	}
}

func TestFinalizeRendersChatLogAndLocation(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, &fakePortraits{url: "https://img/revere.jpg"}, slog.New(slog.DiscardHandler))

	conv, err := archiver.Finalize(context.Background(), upgradedSession(t), 42)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := "User: who are you\n\nGhost: I rode at midnight."
	if conv.ChatLog != want {
		t.Fatalf("chat log = %q, want %q", conv.ChatLog, want)
	}
	if conv.Location != "Boston, Massachusetts" {
		t.Fatalf("location = %q", conv.Location)
	}
	if conv.UserID != 42 || conv.GhostName != "Paul Revere" {
		t.Fatalf("record = %#v", conv)
	}
	if conv.Timestamp.IsZero() || conv.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp = %v, want non-zero UTC", conv.Timestamp)
	}
}

func TestFinalizeUnknownGhostPersistsNoGhost(t *testing.T) {
	store := newFakeStore()
	portraits := &fakePortraits{}
	archiver := NewArchiver(store, portraits, slog.New(slog.DiscardHandler))

	s := session.New("s1")
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateDefault("default prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s.AppendUser("hello")
	s.AppendAssistant("...")

	if _, err := archiver.Finalize(context.Background(), s, 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(store.conversations))
	}
	if len(store.ghostNames) != 0 {
		t.Fatalf("ghosts = %d, want 0 for the unknown-ghost sentinel", len(store.ghostNames))
	}
	if portraits.calls != 0 {
		t.Fatal("no portrait lookup should run without a named ghost")
	}
}

func TestFinalizeStoresGhostWithSystemPromptAndPortrait(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, &fakePortraits{url: "https://img/revere.jpg"}, slog.New(slog.DiscardHandler))

	if _, err := archiver.Finalize(context.Background(), upgradedSession(t), 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ghost := store.ghostNames["Paul Revere"]
	if ghost == nil {
		t.Fatal("ghost not persisted")
	}
	if ghost.Prompt != "upgraded prompt" {
		t.Fatalf("ghost prompt = %q, want the current system prompt", ghost.Prompt)
	}
	if ghost.City != "Boston" || ghost.State != "Massachusetts" {
		t.Fatalf("ghost locality = %q/%q", ghost.City, ghost.State)
	}
	if ghost.ImageURL != "https://img/revere.jpg" {
		t.Fatalf("ghost image = %q", ghost.ImageURL)
	}
}

func TestFinalizePortraitFailureFallsBackToDefault(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, &fakePortraits{err: errors.New("boom")}, slog.New(slog.DiscardHandler))

	if _, err := archiver.Finalize(context.Background(), upgradedSession(t), 1); err != nil {
		t.Fatalf("portrait failure must not fail the archive, got %v", err)
	}
	if got := store.ghostNames["Paul Revere"].ImageURL; got != DefaultPortrait {
		t.Fatalf("image = %q, want default portrait", got)
	}
}

func TestFinalizeTwiceDoesNotDuplicateGhost(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, &fakePortraits{}, slog.New(slog.DiscardHandler))

	if _, err := archiver.Finalize(context.Background(), upgradedSession(t), 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := archiver.Finalize(context.Background(), upgradedSession(t), 1); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(store.conversations) != 2 {
		t.Fatalf("conversations = %d, want 2", len(store.conversations))
	}
	if len(store.ghostNames) != 1 {
		t.Fatalf("ghosts = %d, want 1", len(store.ghostNames))
	}
}

func TestFinalizeRollsBackOnPersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.failCreate = errors.New("disk full")
	archiver := NewArchiver(store, &fakePortraits{}, slog.New(slog.DiscardHandler))

	s := upgradedSession(t)
	if _, err := archiver.Finalize(context.Background(), s, 1); err == nil {
		t.Fatal("expected persistence failure to surface")
	}
	if len(store.conversations) != 0 || len(store.ghostNames) != 0 {
		t.Fatal("failed transaction must not persist partial records")
	}
	// Session state stays intact for a retry.
	if len(s.Messages) == 0 || s.State() == session.StateEnded {
		t.Fatal("session must be left untouched on failure")
	}
}

func TestFinalizeUnknownLocalitySentinel(t *testing.T) {
	store := newFakeStore()
	archiver := NewArchiver(store, &fakePortraits{}, slog.New(slog.DiscardHandler))

	s := session.New("s1")
	s.AppendUser("whisper")
	s.AppendAssistant("...")

	conv, err := archiver.Finalize(context.Background(), s, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if conv.Location != UnknownLocation {
		t.Fatalf("location = %q, want sentinel", conv.Location)
	}
}
