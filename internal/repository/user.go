package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/phantomlink/phantom-link/internal/types"
)

type userModel struct {
	ID               uint
	Username         string `gorm:"uniqueIndex;size:80;not null"`
	Email            string `gorm:"uniqueIndex;size:120;not null"`
	Password         string `gorm:"size:200;not null"`
	ConfirmationCode string `gorm:"size:6"`
	IsEmailVerified  bool   `gorm:"default:false"`
	ResetToken       string `gorm:"size:256"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (userModel) TableName() string {
	return "users"
}

// UserRepo accesses the users table.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo returns a UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user.
func (r *UserRepo) Create(ctx context.Context, user *types.User) error {
	record := userModel{
		Username:         user.Username,
		Email:            user.Email,
		Password:         user.PasswordHash,
		ConfirmationCode: user.ConfirmationCode,
		IsEmailVerified:  user.IsEmailVerified,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID = record.ID
	return nil
}

// GetByID fetches a user by primary key. Returns nil when no row exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint) (*types.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByUsername fetches a user by username. Returns nil when no row exists.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

// GetByEmail fetches a user by email. Returns nil when no row exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByResetToken fetches a user by reset token. Returns nil when no row
// exists or the token is blank.
func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (*types.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.getOne(ctx, "reset_token = ?", token)
}

// SetConfirmationCode stores a fresh email confirmation code.
func (r *UserRepo) SetConfirmationCode(ctx context.Context, id uint, code string) error {
	return r.update(ctx, id, map[string]any{"confirmation_code": code})
}

// MarkEmailVerified flags the email verified and clears the code.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]any{"is_email_verified": true, "confirmation_code": ""})
}

// SetResetToken stores a password reset token.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint, token string) error {
	return r.update(ctx, id, map[string]any{"reset_token": token})
}

// UpdatePassword replaces the password hash and clears the reset token.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	return r.update(ctx, id, map[string]any{"password": passwordHash, "reset_token": ""})
}

func (r *UserRepo) update(ctx context.Context, id uint, fields map[string]any) error {
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*types.User, error) {
	var record userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &types.User{
		ID:               record.ID,
		Username:         record.Username,
		Email:            record.Email,
		PasswordHash:     record.Password,
		ConfirmationCode: record.ConfirmationCode,
		IsEmailVerified:  record.IsEmailVerified,
		ResetToken:       record.ResetToken,
	}, nil
}
