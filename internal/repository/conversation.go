package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/phantomlink/phantom-link/internal/types"
)

type conversationModel struct {
	ID        uint
	UserID    uint   `gorm:"not null;index"`
	GhostName string `gorm:"size:255;not null"`
	ChatLog   string `gorm:"type:text;not null"`
	Location  string `gorm:"size:255"`
	Timestamp time.Time `gorm:"not null"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

// ConversationRepo accesses the conversations table. Rows are append-only.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo returns a ConversationRepo.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Create inserts a finalized conversation record.
func (r *ConversationRepo) Create(ctx context.Context, conversation *types.Conversation) error {
	record := conversationModel{
		UserID:    conversation.UserID,
		GhostName: conversation.GhostName,
		ChatLog:   conversation.ChatLog,
		Location:  conversation.Location,
		Timestamp: conversation.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	conversation.ID = record.ID
	return nil
}

// ListByUser fetches a user's conversations, newest first.
func (r *ConversationRepo) ListByUser(ctx context.Context, userID uint) ([]types.Conversation, error) {
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	results := make([]types.Conversation, 0, len(records))
	for _, record := range records {
		results = append(results, types.Conversation{
			ID:        record.ID,
			UserID:    record.UserID,
			GhostName: record.GhostName,
			ChatLog:   record.ChatLog,
			Location:  record.Location,
			Timestamp: record.Timestamp,
		})
	}
	return results, nil
}
