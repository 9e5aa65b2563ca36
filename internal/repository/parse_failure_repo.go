// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-token-backend/internal/models"
)

// ParseFailureRepository 链上记录解析失败仓储
type ParseFailureRepository struct {
	db *gorm.DB
}

// NewParseFailureRepository 创建解析失败仓储
func NewParseFailureRepository(db *gorm.DB) *ParseFailureRepository {
	return &ParseFailureRepository{db: db}
}

// Create 记录单条解析失败
func (r *ParseFailureRepository) Create(ctx context.Context, failure *models.ParseFailure) error {
	return r.db.WithContext(ctx).Create(failure).Error
}

// CreateBatch 批量记录解析失败
func (r *ParseFailureRepository) CreateBatch(ctx context.Context, failures []*models.ParseFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(failures).Error
}

// List 获取解析失败列表
func (r *ParseFailureRepository) List(ctx context.Context, offset, limit int, source string) ([]*models.ParseFailure, int64, error) {
	var failures []*models.ParseFailure
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ParseFailure{})
	if source != "" {
		query = query.Where("source = ?", source)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&failures).Error; err != nil {
		return nil, 0, err
	}

	return failures, total, nil
}

// CountSince 统计指定时间以来的解析失败数量
func (r *ParseFailureRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ParseFailure{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// DeleteBefore 删除指定时间之前的记录
func (r *ParseFailureRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.ParseFailure{})
	return result.RowsAffected, result.Error
}
