// Package handler exposes the session surface over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/phantomlink/phantom-link/internal/auth"
	"github.com/phantomlink/phantom-link/internal/session"
	"github.com/phantomlink/phantom-link/internal/types"
)

const (
	sessionCookieName = "phantomlink_session"
	selectedGhostsKey = "selectedGhostId"

	// The cookie expires together with the server-side session.
	sessionCookieMaxAge = int(session.DefaultIdleTTL / time.Second)
)

// TurnProcessor runs one chat turn against a session.
type TurnProcessor interface {
	HandleTurn(ctx context.Context, s *session.Session, userMessage string) (string, int, error)
}

// Finalizer archives an ended session.
type Finalizer interface {
	Finalize(ctx context.Context, s *session.Session, ownerUserID uint) (*types.Conversation, error)
}

// ReverseGeocoder converts coordinates to a locality.
type ReverseGeocoder interface {
	ReverseLocality(lat, lng float64) (types.Locality, error)
}

// ConversationLister reads a user's archived conversations.
type ConversationLister interface {
	ListByUser(ctx context.Context, userID uint) ([]types.Conversation, error)
}

// GhostLister reads the ghosts recorded for a locality.
type GhostLister interface {
	ListByLocality(ctx context.Context, city, state string) ([]types.Ghost, error)
}

// Handler wires the session surface to its collaborators.
type Handler struct {
	sessions      *session.Store
	processor     TurnProcessor
	archiver      Finalizer
	geocoder      ReverseGeocoder
	accounts      *auth.Service
	conversations ConversationLister
	ghosts        GhostLister
	origins       []string
	logger        *slog.Logger
}

// New returns a Handler.
func New(
	sessions *session.Store,
	processor TurnProcessor,
	archiver Finalizer,
	geocoder ReverseGeocoder,
	accounts *auth.Service,
	conversations ConversationLister,
	ghosts GhostLister,
	origins []string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:      sessions,
		processor:     processor,
		archiver:      archiver,
		geocoder:      geocoder,
		accounts:      accounts,
		conversations: conversations,
		ghosts:        ghosts,
		origins:       origins,
		logger:        logger,
	}
}

// Router builds the HTTP routes with CORS for the UI origins.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/location", h.handlePostLocation).Methods(http.MethodPost)
	r.HandleFunc("/location", h.handleGetLocation).Methods(http.MethodGet)
	r.HandleFunc("/chat", h.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/end-conversation", h.handleEndConversation).Methods(http.MethodPost)
	r.HandleFunc("/reset-session", h.handleResetSession).Methods(http.MethodPost)
	r.HandleFunc("/conversations", h.handleConversations).Methods(http.MethodGet)
	r.HandleFunc("/ghosts", h.handleGhosts).Methods(http.MethodGet)

	r.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/send-confirmation-email", h.handleSendConfirmation).Methods(http.MethodPost)
	r.HandleFunc("/verify-email", h.handleVerifyEmail).Methods(http.MethodPost)
	r.HandleFunc("/forgot-password", h.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/reset-password", h.handleResetPassword).Methods(http.MethodPost)

	cors := handlers.CORS(
		handlers.AllowedOrigins(h.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)
	return cors(r)
}

// sessionFor returns the request's conversation session, creating one and
// setting the cookie when the request carries none.
func (h *Handler) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		id = cookie.Value
	}
	s := h.sessions.GetOrCreate(id)
	if s.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    s.ID,
			Path:     "/",
			MaxAge:   sessionCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, format string, args ...any) {
	h.writeJSON(w, status, map[string]string{"message": fmt.Sprintf(format, args...)})
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}
