package models

import (
	"time"
)

// TxReceipt 链上交易流水
//
// 只有拿到链上回执才会流转到终态；等待确认超时的交易停留在
// pending，由调度器补查回执，绝不自动重发。
type TxReceipt struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiptNo   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"receipt_no"`
	TxHash      string     `gorm:"type:varchar(66);index;not null" json:"tx_hash"`
	Method      string     `gorm:"type:varchar(50);not null" json:"method"`
	UserID      *int64     `gorm:"index" json:"user_id,omitempty"`
	Wallet      *string    `gorm:"type:varchar(42)" json:"wallet,omitempty"`
	TokenIDs    JSON       `gorm:"type:jsonb" json:"token_ids,omitempty"`
	ValueWei    string     `gorm:"type:varchar(78);not null;default:'0'" json:"value_wei"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	BlockNumber *int64     `json:"block_number,omitempty"`
	GasUsed     *int64     `json:"gas_used,omitempty"`
	ErrorMsg    *string    `gorm:"type:text" json:"error_msg,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (TxReceipt) TableName() string {
	return "tx_receipts"
}

// TxReceiptStatus 交易流水状态
const (
	TxStatusPending   = "pending"   // 已广播，未拿到回执
	TxStatusConfirmed = "confirmed" // 回执成功
	TxStatusReverted  = "reverted"  // 回执失败，合约拒绝
	TxStatusTimeout   = "timeout"   // 等待确认超时，结果未知
)

// TxMethod 交易方法
const (
	TxMethodMint          = "mintMultipleRoomDays"
	TxMethodTransfer      = "transferRoomDay"
	TxMethodTransferMulti = "transferRoomDayMultiple"
	TxMethodSetToUsed     = "setToUsed"
)

// ParseFailure 链上记录解析失败审计
//
// 单条记录解析失败只跳过该条，不中断整次读取；
// 落库留痕，便于核对链上脏数据。
type ParseFailure struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Source    string    `gorm:"type:varchar(50);not null;index" json:"source"`
	ItemIndex int       `gorm:"not null" json:"item_index"`
	RawData   *string   `gorm:"type:text" json:"raw_data,omitempty"`
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (ParseFailure) TableName() string {
	return "parse_failures"
}

// CheckIn 入住核销记录
type CheckIn struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TokenID    int64     `gorm:"uniqueIndex;not null" json:"token_id"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	ReceiptID  *int64    `json:"receipt_id,omitempty"`
	RoomID     int64     `gorm:"not null" json:"room_id"`
	Date       string    `gorm:"type:varchar(10);not null" json:"date"`
	QRCodeData *string   `gorm:"type:text" json:"qr_code_data,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// 关联
	Receipt *TxReceipt `gorm:"foreignKey:ReceiptID" json:"receipt,omitempty"`
}

// TableName 表名
func (CheckIn) TableName() string {
	return "check_ins"
}
