// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-token-backend/internal/models"
)

// CheckInRepository 入住核销记录仓储
type CheckInRepository struct {
	db *gorm.DB
}

// NewCheckInRepository 创建入住核销仓储
func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Create 创建核销记录
func (r *CheckInRepository) Create(ctx context.Context, checkIn *models.CheckIn) error {
	return r.db.WithContext(ctx).Create(checkIn).Error
}

// GetByTokenID 根据通证 ID 获取核销记录
func (r *CheckInRepository) GetByTokenID(ctx context.Context, tokenID int64) (*models.CheckIn, error) {
	var checkIn models.CheckIn
	err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&checkIn).Error
	if err != nil {
		return nil, err
	}
	return &checkIn, nil
}

// ExistsByTokenID 判断通证是否已核销
func (r *CheckInRepository) ExistsByTokenID(ctx context.Context, tokenID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CheckIn{}).Where("token_id = ?", tokenID).Count(&count).Error
	return count > 0, err
}

// ListByUser 获取用户的核销记录
func (r *CheckInRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]*models.CheckIn, int64, error) {
	var checkIns []*models.CheckIn
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CheckIn{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&checkIns).Error; err != nil {
		return nil, 0, err
	}

	return checkIns, total, nil
}
