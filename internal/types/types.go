// Package types holds the domain types shared across packages.
package types

import "time"

// Message roles as sent to the completion model.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation's ordered history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Locality is the (city, state) pair a ghost is tied to.
type Locality struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// IsSet reports whether both parts of the locality are known.
func (l Locality) IsSet() bool {
	return l.City != "" && l.State != ""
}

// NotablePerson is a historical figure resolved for a locality.
type NotablePerson struct {
	Name       string   `json:"name"`
	BirthYear  int      `json:"birth_year"`
	DeathYear  int      `json:"death_year"`
	Occupation string   `json:"occupation"`
	Paragraphs []string `json:"paragraphs"`
}

// Ghost is a persisted persona, keyed by unique name. Rows are written once
// and never updated.
type Ghost struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	City     string `json:"city"`
	State    string `json:"state"`
	ImageURL string `json:"image_url"`
}

// Conversation is an append-only record of a finished session.
type Conversation struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	GhostName string    `json:"ghost_name"`
	ChatLog   string    `json:"chat_log"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// User is a registered account.
type User struct {
	ID               uint   `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	PasswordHash     string `json:"-"`
	ConfirmationCode string `json:"-"`
	IsEmailVerified  bool   `json:"is_email_verified"`
	ResetToken       string `json:"-"`
}
