package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/phantomlink/phantom-link/internal/types"
)

type ghostModel struct {
	ID        uint
	Name      string `gorm:"uniqueIndex;size:120;not null"`
	Prompt    string `gorm:"type:text;not null"`
	City      string `gorm:"size:80"`
	State     string `gorm:"size:80"`
	ImageURL  string `gorm:"size:200"`
	CreatedAt time.Time
}

func (ghostModel) TableName() string {
	return "ghosts"
}

// GhostRepo accesses the ghosts table.
type GhostRepo struct {
	db *gorm.DB
}

// NewGhostRepo returns a GhostRepo.
func NewGhostRepo(db *gorm.DB) *GhostRepo {
	return &GhostRepo{db: db}
}

// CreateIfAbsent inserts the ghost unless one with the same name exists.
// Existing rows are left untouched.
func (r *GhostRepo) CreateIfAbsent(ctx context.Context, ghost *types.Ghost) error {
	var existing ghostModel
	err := r.db.WithContext(ctx).Where("name = ?", ghost.Name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for existing ghost: %w", err)
	}

	record := ghostModel{
		Name:     ghost.Name,
		Prompt:   ghost.Prompt,
		City:     ghost.City,
		State:    ghost.State,
		ImageURL: ghost.ImageURL,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert ghost: %w", err)
	}
	ghost.ID = record.ID
	return nil
}

// GetByID fetches a ghost by primary key. Returns nil when no row exists.
func (r *GhostRepo) GetByID(ctx context.Context, id uint) (*types.Ghost, error) {
	var record ghostModel
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ghost by id: %w", err)
	}
	result := ghostFromModel(record)
	return &result, nil
}

// ListByLocality fetches the ghosts recorded for a (city, state).
func (r *GhostRepo) ListByLocality(ctx context.Context, city, state string) ([]types.Ghost, error) {
	var records []ghostModel
	if err := r.db.WithContext(ctx).
		Where("city = ? AND state = ?", city, state).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query ghosts: %w", err)
	}

	results := make([]types.Ghost, 0, len(records))
	for _, record := range records {
		results = append(results, ghostFromModel(record))
	}
	return results, nil
}

func ghostFromModel(model ghostModel) types.Ghost {
	return types.Ghost{
		ID:       model.ID,
		Name:     model.Name,
		Prompt:   model.Prompt,
		City:     model.City,
		State:    model.State,
		ImageURL: model.ImageURL,
	}
}
