package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockService owns the block graph. Edges are stored directed but every
// read used for visibility treats them as symmetric.
type BlockService struct {
	db *gorm.DB
}

func NewBlockService(db *gorm.DB) *BlockService {
	return &BlockService{db: db}
}

// BlockedBetween reports whether either user has blocked the other.
func (s *BlockService) BlockedBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return count > 0, nil
}

// BlockedIDsOf returns every user on the other side of a block edge with
// userID, in either direction.
func (s *BlockService) BlockedIDsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []models.Block
	err := s.db.WithContext(ctx).
		Select("blocker_id", "blocked_id").
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load blocks: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(blocks))
	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		other := b.BlockedID
		if other == userID {
			other = b.BlockerID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}

func (s *BlockService) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	db := s.db.WithContext(ctx)
	var target models.User
	if err := db.Select("id").First(&target, "id = ?", blockedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var existing models.Block
	if err := db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).First(&existing).Error; err == nil {
		return ErrAlreadyBlocked
	}

	return db.Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (s *BlockService) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// List returns the blocks created by blockerID, newest first.
func (s *BlockService) List(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error) {
	var blocks []models.Block
	err := s.db.WithContext(ctx).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&blocks).Error
	return blocks, err
}
