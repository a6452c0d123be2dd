package chat

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hikarin/chatcore/internal/models"
)

// gormRelations answers block lookups from the user_relations table.
type gormRelations struct {
	db *gorm.DB
}

// NewRelationChecker returns a RelationChecker backed by the relational
// store.
func NewRelationChecker(db *gorm.DB) RelationChecker {
	return &gormRelations{db: db}
}

func (r *gormRelations) IsBlocking(ctx context.Context, userID, targetID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRelation{}).
		Where("user_id = ? AND target_id = ? AND blocked = ?", userID, targetID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check block relation: %w", err)
	}
	return count > 0, nil
}
