// Package auth manages user accounts and credentials.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/phantomlink/phantom-link/internal/types"
)

const minPasswordLength = 8

var (
	// ErrMissingFields is returned when required registration fields are
	// absent.
	ErrMissingFields = errors.New("all fields are required")

	// ErrPasswordTooShort is returned for passwords under the minimum.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")

	// ErrUsernameTaken is returned for a duplicate username.
	ErrUsernameTaken = errors.New("the username is already taken")

	// ErrEmailRegistered is returned for a duplicate email.
	ErrEmailRegistered = errors.New("the email is already registered")

	// ErrInvalidCredentials is returned for a bad username/password pair.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrEmailNotVerified is returned when a login precedes verification.
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCode is returned for a wrong confirmation code.
	ErrInvalidCode = errors.New("invalid confirmation code")

	// ErrInvalidResetToken is returned for an unknown reset token.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// UserRepo defines the account persistence the service needs.
type UserRepo interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id uint) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetByResetToken(ctx context.Context, token string) (*types.User, error)
	SetConfirmationCode(ctx context.Context, id uint, code string) error
	MarkEmailVerified(ctx context.Context, id uint) error
	SetResetToken(ctx context.Context, id uint, token string) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
}

// Mailer delivers account mail. A nil Mailer disables delivery.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service implements registration, login, and account recovery.
type Service struct {
	users     UserRepo
	mailer    Mailer
	uiBaseURL string
	logger    *slog.Logger
}

// NewService returns an auth Service.
func NewService(users UserRepo, mailer Mailer, uiBaseURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		mailer:    mailer,
		uiBaseURL: uiBaseURL,
		logger:    logger,
	}
}

// Register creates an unverified account and mails its confirmation code.
func (s *Service) Register(ctx context.Context, username, email, password string) (*types.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := confirmationCode()
	if err != nil {
		return nil, err
	}

	user := &types.User{
		Username:         username,
		Email:            email,
		PasswordHash:     string(hash),
		ConfirmationCode: code,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.deliver(ctx, email, "Phantom-Link Confirmation Code",
		fmt.Sprintf("Your Phantom-Link confirmation code is: %s", code))
	return user, nil
}

// Login verifies credentials and requires a verified email. An unverified
// account gets a fresh confirmation code mailed alongside the error.
func (s *Service) Login(ctx context.Context, username, password string) (*types.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		if err := s.refreshConfirmation(ctx, user); err != nil {
			s.logger.Warn("failed to resend confirmation code", "email", user.Email, "error", err)
		}
		return user, ErrEmailNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CurrentUser loads the account behind a session's user id.
func (s *Service) CurrentUser(ctx context.Context, id uint) (*types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SendConfirmation generates a fresh code for the account and mails it.
func (s *Service) SendConfirmation(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.refreshConfirmation(ctx, user)
}

// refreshConfirmation stores a fresh confirmation code and mails it.
func (s *Service) refreshConfirmation(ctx context.Context, user *types.User) error {
	code, err := confirmationCode()
	if err != nil {
		return err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, code); err != nil {
		return err
	}

	s.deliver(ctx, user.Email, "Phantom-Link Confirmation Code",
		fmt.Sprintf("Your Phantom-Link confirmation code is: %s", code))
	return nil
}

// VerifyEmail checks the confirmation code and marks the email verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return ErrMissingFields
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.ConfirmationCode == "" || user.ConfirmationCode != code {
		return ErrInvalidCode
	}
	return s.users.MarkEmailVerified(ctx, user.ID)
}

// ForgotPassword stores a reset token and mails the reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	token, err := resetToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, token); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.uiBaseURL, token)
	s.deliver(ctx, email, "Password Reset - Phantom-Link",
		fmt.Sprintf("Your Username is - %s\n\nClick the link below to reset your password:\n\n%s", user.Username, link))
	return nil
}

// ResetPassword replaces the password for a valid reset token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return ErrMissingFields
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

// deliver sends mail when a mailer is configured. Delivery failures are
// logged, not surfaced.
func (s *Service) deliver(ctx context.Context, to, subject, body string) {
	if s.mailer == nil {
		s.logger.Info("mail delivery disabled, skipping", "to", to, "subject", subject)
		return
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.Error("failed to send mail", "to", to, "subject", subject, "error", err)
	}
}

// confirmationCode returns a random 6-digit code.
func confirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// resetToken returns a random url-safe token.
func resetToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
