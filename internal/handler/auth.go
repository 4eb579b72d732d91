package handler

import (
	"errors"
	"net/http"

	"github.com/phantomlink/phantom-link/internal/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields),
			errors.Is(err, auth.ErrPasswordTooShort),
			errors.Is(err, auth.ErrUsernameTaken),
			errors.Is(err, auth.ErrEmailRegistered):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("registration failed", "username", req.Username, "error", err)
			h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Registration successful. Please check your email for a confirmation code.",
		"username": user.Username,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)

	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailNotVerified):
			h.writeJSON(w, http.StatusForbidden, map[string]any{
				"error":             "Please verify your email before logging in.",
				"is_email_verified": false,
				"email":             user.Email,
			})
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, err.Error())
		default:
			h.logger.Error("login failed", "username", req.Username, "error", err)
			h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}

	s.UserID = user.ID
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Login successful",
		"username": user.Username,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	h.sessions.Delete(s.ID)
	clearCookie(w, sessionCookieName)
	clearCookie(w, selectedGhostsKey)
	h.writeMessage(w, http.StatusOK, "Logout successful")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	s := h.sessionFor(w, r)
	if s.UserID == 0 {
		h.writeError(w, http.StatusUnauthorized, "User not logged in")
		return
	}

	user, err := h.accounts.CurrentUser(r.Context(), s.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.UserID = 0
			h.writeError(w, http.StatusUnauthorized, "User not logged in")
			return
		}
		h.logger.Error("failed to load user", "user_id", s.UserID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"username": user.Username,
		"email":    user.Email,
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleSendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}

	if err := h.accounts.SendConfirmation(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to send confirmation email", "error", err)
		h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	h.writeMessage(w, http.StatusOK, "Confirmation email sent.")
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decode(r, &req); err != nil || req.Email == "" || req.Code == "" {
		h.writeError(w, http.StatusBadRequest, "Email and confirmation code are required.")
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, auth.ErrInvalidCode):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("email verification failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}
	h.writeMessage(w, http.StatusOK, "Email verified successfully. You can now log in.")
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}

	if err := h.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to start password reset", "error", err)
		h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	h.writeMessage(w, http.StatusOK, "Password reset email sent.")
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil || req.Token == "" || req.NewPassword == "" {
		h.writeError(w, http.StatusBadRequest, "Token and new password are required.")
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidResetToken):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrPasswordTooShort):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("password reset failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}
		return
	}
	h.writeMessage(w, http.StatusOK, "Password has been reset successfully.")
}
