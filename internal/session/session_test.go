package session

import (
	"errors"
	"testing"
	"time"

	"github.com/phantomlink/phantom-link/internal/persona"
	"github.com/phantomlink/phantom-link/internal/types"
)

func TestLifecycleTransitions(t *testing.T) {
	s := New("s1")
	if s.State() != StateUninitialized {
		t.Fatalf("new session state = %v, want uninitialized", s.State())
	}

	if err := s.ActivateDefault("prompt"); !errors.Is(err, ErrLocalityNotSet) {
		t.Fatalf("activation before locality = %v, want ErrLocalityNotSet", err)
	}

	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.State() != StateLocalitySet {
		t.Fatalf("state = %v, want locality_set", s.State())
	}

	if err := s.ActivateDefault("prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.State() != StateActiveDefault {
		t.Fatalf("state = %v, want active_default", s.State())
	}
	if s.GhostName != persona.UnknownGhostName {
		t.Fatalf("ghost name = %q, want sentinel", s.GhostName)
	}
	if len(s.Messages) != 1 || s.Messages[0].Role != types.RoleSystem {
		t.Fatalf("messages[0] must be the system prompt, got %#v", s.Messages)
	}
}

func TestSetLocalityRejectsIncompleteAndChanges(t *testing.T) {
	s := New("s1")
	if err := s.SetLocality("Boston", ""); !errors.Is(err, ErrLocalityNotSet) {
		t.Fatalf("missing state = %v, want ErrLocalityNotSet", err)
	}
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("re-setting the same locality should be a no-op, got %v", err)
	}
	if err := s.SetLocality("Salem", "Massachusetts"); !errors.Is(err, ErrLocalityImmutable) {
		t.Fatalf("changing locality = %v, want ErrLocalityImmutable", err)
	}
}

func TestUpgradeFiresAtMostOnce(t *testing.T) {
	s := New("s1")
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateDefault("default prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	s.SentimentScore = 3
	if !s.UpgradeEligible() {
		t.Fatal("score 3 in active_default must be upgrade-eligible")
	}

	s.AppendUser("hello")
	s.ApplyUpgrade("upgraded prompt", "Paul Revere")
	if s.State() != StateActiveUpgraded || !s.PersonaUpgraded {
		t.Fatalf("upgrade did not transition: state=%v upgraded=%v", s.State(), s.PersonaUpgraded)
	}
	if s.Messages[0].Content != "upgraded prompt" {
		t.Fatalf("messages[0] = %q, want replaced prompt", s.Messages[0].Content)
	}
	if len(s.Messages) != 2 || s.Messages[1].Content != "hello" {
		t.Fatalf("history disturbed by upgrade: %#v", s.Messages)
	}

	s.SentimentScore = 10
	if s.UpgradeEligible() {
		t.Fatal("upgraded session must never be eligible again")
	}
	s.ApplyUpgrade("another prompt", "Someone Else")
	if s.Messages[0].Content != "upgraded prompt" || s.GhostName != "Paul Revere" {
		t.Fatal("second upgrade must be a no-op")
	}
}

func TestSelectedGhostBypassesUpgrades(t *testing.T) {
	s := New("s1")
	s.SelectGhost(7)
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateSelected(&types.Ghost{ID: 7, Name: "Paul Revere", Prompt: "stored prompt"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.State() != StateActiveUpgraded {
		t.Fatalf("state = %v, want active_upgraded", s.State())
	}
	if s.GhostName != "Paul Revere" || s.Messages[0].Content != "stored prompt" {
		t.Fatalf("selected ghost not seeded: name=%q messages=%#v", s.GhostName, s.Messages)
	}
	s.SentimentScore = 5
	if s.UpgradeEligible() {
		t.Fatal("selected-ghost session must never attempt an upgrade")
	}
}

func TestMessageCountAfterTurns(t *testing.T) {
	s := New("s1")
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateDefault("prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	const turns = 4
	for i := 0; i < turns; i++ {
		s.AppendUser("hi")
		s.AppendAssistant("...")
	}
	if got, want := len(s.Messages), 1+2*turns; got != want {
		t.Fatalf("len(messages) = %d, want %d", got, want)
	}
	if s.Messages[0].Role != types.RoleSystem {
		t.Fatal("messages[0] must remain the system prompt")
	}
}

func TestResetRetainsLocality(t *testing.T) {
	s := New("s1")
	s.UserID = 42
	if err := s.SetLocality("Boston", "Massachusetts"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.ActivateDefault("prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s.AppendUser("hi")
	s.SentimentScore = 2
	s.SelectedGhostID = 3

	s.Reset()
	if s.State() != StateLocalitySet {
		t.Fatalf("state after reset = %v, want locality_set", s.State())
	}
	if !s.Locality.IsSet() || s.Locality.City != "Boston" {
		t.Fatalf("reset must retain locality, got %#v", s.Locality)
	}
	if s.UserID != 42 {
		t.Fatal("reset must retain the user identity")
	}
	if len(s.Messages) != 0 || s.SentimentScore != 0 || s.SelectedGhostID != 0 || s.GhostName != persona.UnknownGhostName {
		t.Fatalf("reset left conversation state behind: %#v", s)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore()
	s := store.Create()
	if s.ID == "" {
		t.Fatal("created session must have an id")
	}
	if got := store.Get(s.ID); got != s {
		t.Fatal("Get must return the created session")
	}
	if got := store.GetOrCreate(s.ID); got != s {
		t.Fatal("GetOrCreate must return the existing session")
	}
	fresh := store.GetOrCreate("missing")
	if fresh == nil || fresh.ID == "missing" {
		t.Fatal("unknown id must yield a fresh session with its own id")
	}
	store.Delete(s.ID)
	if store.Get(s.ID) != nil {
		t.Fatal("deleted session must be gone")
	}
	if s.State() != StateEnded {
		t.Fatalf("deleted session state = %v, want ended", s.State())
	}
}

func TestStoreSweepDestroysIdleSessions(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	idle := store.Create()
	active := store.Create()

	now = now.Add(DefaultIdleTTL + time.Minute)
	store.Get(active.ID)

	if removed := store.Sweep(DefaultIdleTTL); removed != 1 {
		t.Fatalf("swept %d sessions, want 1", removed)
	}
	if store.Get(idle.ID) != nil {
		t.Fatal("idle session must be destroyed")
	}
	if idle.State() != StateEnded {
		t.Fatalf("idle session state = %v, want ended", idle.State())
	}
	if store.Get(active.ID) != active {
		t.Fatal("recently touched session must survive the sweep")
	}
	if store.Len() != 1 {
		t.Fatalf("store holds %d sessions, want 1", store.Len())
	}
}
