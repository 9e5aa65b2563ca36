// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-token-backend/internal/models"
)

// ReceiptRepository 链上交易流水仓储
type ReceiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository 创建交易流水仓储
func NewReceiptRepository(db *gorm.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create 创建交易流水
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.TxReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

// GetByID 根据 ID 获取交易流水
func (r *ReceiptRepository) GetByID(ctx context.Context, id int64) (*models.TxReceipt, error) {
	var receipt models.TxReceipt
	err := r.db.WithContext(ctx).First(&receipt, id).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// GetByReceiptNo 根据流水号获取交易流水
func (r *ReceiptRepository) GetByReceiptNo(ctx context.Context, receiptNo string) (*models.TxReceipt, error) {
	var receipt models.TxReceipt
	err := r.db.WithContext(ctx).Where("receipt_no = ?", receiptNo).First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// GetByTxHash 根据交易哈希获取交易流水
func (r *ReceiptRepository) GetByTxHash(ctx context.Context, txHash string) (*models.TxReceipt, error) {
	var receipt models.TxReceipt
	err := r.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// UpdateTxHash 回填交易哈希（交易发出后立即落库，供补查定位）
func (r *ReceiptRepository) UpdateTxHash(ctx context.Context, id int64, txHash string) error {
	return r.db.WithContext(ctx).Model(&models.TxReceipt{}).Where("id = ?", id).
		Update("tx_hash", txHash).Error
}

// MarkConfirmed 标记交易成功
func (r *ReceiptRepository) MarkConfirmed(ctx context.Context, id int64, blockNumber, gasUsed int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.TxReceipt{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       models.TxStatusConfirmed,
		"block_number": blockNumber,
		"gas_used":     gasUsed,
		"confirmed_at": now,
	}).Error
}

// MarkReverted 标记交易被合约拒绝
func (r *ReceiptRepository) MarkReverted(ctx context.Context, id int64, errMsg string) error {
	return r.db.WithContext(ctx).Model(&models.TxReceipt{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":    models.TxStatusReverted,
		"error_msg": errMsg,
	}).Error
}

// MarkTimeout 标记等待确认超时（结果未知，等待补查）
func (r *ReceiptRepository) MarkTimeout(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.TxReceipt{}).Where("id = ?", id).
		Update("status", models.TxStatusTimeout).Error
}

// UpdateStatus 更新交易状态
func (r *ReceiptRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.TxReceipt{}).Where("id = ?", id).
		Update("status", status).Error
}

// List 获取交易流水列表
func (r *ReceiptRepository) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.TxReceipt, int64, error) {
	var receipts []*models.TxReceipt
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TxReceipt{})

	// 应用过滤条件
	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if method, ok := filters["method"].(string); ok && method != "" {
		query = query.Where("method = ?", method)
	}
	if userID, ok := filters["user_id"].(int64); ok && userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if txHash, ok := filters["tx_hash"].(string); ok && txHash != "" {
		query = query.Where("tx_hash = ?", txHash)
	}
	if startTime, ok := filters["start_time"].(time.Time); ok {
		query = query.Where("created_at >= ?", startTime)
	}
	if endTime, ok := filters["end_time"].(time.Time); ok {
		query = query.Where("created_at <= ?", endTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&receipts).Error; err != nil {
		return nil, 0, err
	}

	return receipts, total, nil
}

// ListUnresolved 获取待补查的交易流水（超时或长时间 pending）
func (r *ReceiptRepository) ListUnresolved(ctx context.Context, pendingBefore time.Time, limit int) ([]*models.TxReceipt, error) {
	var receipts []*models.TxReceipt
	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND created_at < ?)",
			models.TxStatusTimeout, models.TxStatusPending, pendingBefore).
		Order("id ASC").
		Limit(limit).
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// ListConfirmedByMethod 按方法获取全部已确认流水，按落账顺序升序
//
// 同一通证出现在多条流水时，后确认的覆盖先确认的。
func (r *ReceiptRepository) ListConfirmedByMethod(ctx context.Context, method string) ([]*models.TxReceipt, error) {
	var receipts []*models.TxReceipt
	err := r.db.WithContext(ctx).
		Where("method = ? AND status = ?", method, models.TxStatusConfirmed).
		Order("id ASC").
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// CountByStatus 按状态统计交易数量
func (r *ReceiptRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TxReceipt{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
