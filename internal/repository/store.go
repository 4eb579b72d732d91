// Package repository provides the PostgreSQL persistence layer.
package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phantomlink/phantom-link/internal/archive"
)

// Store holds the DB pool and repositories.
type Store struct {
	db            *gorm.DB
	Ghosts        *GhostRepo
	Conversations *ConversationRepo
	Users         *UserRepo
}

// NewStore initializes the PostgreSQL pool and repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Ghosts:        NewGhostRepo(db),
		Conversations: NewConversationRepo(db),
		Users:         NewUserRepo(db),
	}
}

// Migrate creates or updates the backing tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&ghostModel{}, &conversationModel{}, &userModel{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// InTx runs fn against transaction-bound repositories. Any error rolls the
// whole transaction back.
func (s *Store) InTx(ctx context.Context, fn func(ghosts archive.GhostWriter, conversations archive.ConversationWriter) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGhostRepo(tx), NewConversationRepo(tx))
	})
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
