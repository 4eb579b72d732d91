package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/phantomlink/phantom-link/internal/archive"
	"github.com/phantomlink/phantom-link/internal/chat"
	"github.com/phantomlink/phantom-link/internal/session"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)

	// The UI records an explicitly chosen ghost in a cookie before the
	// conversation starts.
	if cookie, err := r.Cookie(selectedGhostsKey); err == nil && cookie.Value != "" {
		if id, err := strconv.ParseUint(cookie.Value, 10, 32); err == nil {
			s.SelectGhost(uint(id))
		}
	}

	var req chatRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, sentimentScore, err := h.processor.HandleTurn(r.Context(), s, req.Message)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"reply":     reply,
		"sentiment": sentimentScore,
	})
}

func (h *Handler) writeChatError(w http.ResponseWriter, err error) {
	var invalid *chat.InvalidRequestError
	switch {
	case errors.Is(err, session.ErrLocalityNotSet):
		h.writeError(w, http.StatusBadRequest, "Location not set. Please share your location first.")
	case errors.Is(err, chat.ErrEmptyMessage):
		h.writeError(w, http.StatusBadRequest, "Message is required.")
	case errors.Is(err, chat.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	case errors.As(err, &invalid):
		h.writeError(w, http.StatusBadRequest, invalid.Message)
	default:
		h.logger.Error("chat turn failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "An internal error occurred.")
	}
}

func (h *Handler) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s.UserID == 0 {
		h.writeError(w, http.StatusUnauthorized, "User not logged in")
		return
	}

	_, err := h.archiver.Finalize(r.Context(), s, s.UserID)
	if err != nil {
		if errors.Is(err, archive.ErrNothingToArchive) {
			h.writeError(w, http.StatusBadRequest, "No conversation to save. Start a chat first!")
			return
		}
		// Session state is intact; the caller may retry.
		h.logger.Error("failed to archive conversation", "session_id", s.ID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while saving the conversation.")
		return
	}

	s.Reset()
	clearCookie(w, selectedGhostsKey)
	h.writeMessage(w, http.StatusOK, "Conversation saved successfully.")
}

func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	s.Reset()
	clearCookie(w, selectedGhostsKey)
	h.writeMessage(w, http.StatusOK, "Session reset successful, starting new ghost conversation.")
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *Handler) handlePostLocation(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)

	var req locationRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		h.writeError(w, http.StatusBadRequest, "Latitude and longitude are required.")
		return
	}

	locality, err := h.geocoder.ReverseLocality(*req.Latitude, *req.Longitude)
	if err != nil {
		h.logger.Warn("reverse geocoding failed", "error", err)
		h.writeError(w, http.StatusBadRequest, "Could not determine a location from the coordinates provided.")
		return
	}

	if err := s.SetLocality(locality.City, locality.State); err != nil {
		if errors.Is(err, session.ErrLocalityImmutable) {
			h.writeError(w, http.StatusBadRequest, "Location is already set for this session. Reset the session to change it.")
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeMessage(w, http.StatusOK, "Location received successfully. city=%s, state=%s", locality.City, locality.State)
}

func (h *Handler) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if !s.Locality.IsSet() {
		h.writeError(w, http.StatusBadRequest, "Location not shared yet.")
		return
	}
	h.writeJSON(w, http.StatusOK, s.Locality)
}

func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s.UserID == 0 {
		h.writeError(w, http.StatusUnauthorized, "User not logged in")
		return
	}

	conversations, err := h.conversations.ListByUser(r.Context(), s.UserID)
	if err != nil {
		h.logger.Error("failed to list conversations", "user_id", s.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (h *Handler) handleGhosts(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	state := r.URL.Query().Get("state")
	if city == "" || state == "" {
		h.writeError(w, http.StatusBadRequest, "City and state are required parameters.")
		return
	}

	ghosts, err := h.ghosts.ListByLocality(r.Context(), city, state)
	if err != nil {
		h.logger.Error("failed to list ghosts", "city", city, "state", state, "error", err)
		h.writeError(w, http.StatusInternalServerError, "An error occurred while fetching ghosts.")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ghosts": ghosts})
}
