// Package models 定义数据模型
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// User 用户模型
//
// 用户以钱包地址为身份标识，链上资产归属以合约为准，
// 这里只保存展示信息和登录态需要的字段。
type User struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WalletAddress string     `gorm:"type:varchar(42);uniqueIndex;not null" json:"wallet_address"`
	Nickname      string     `gorm:"type:varchar(50);not null;default:''" json:"nickname"`
	Email         *string    `gorm:"type:varchar(100)" json:"email,omitempty"`
	Avatar        *string    `gorm:"type:varchar(255)" json:"avatar,omitempty"`
	Status        int8       `gorm:"type:smallint;not null;default:1" json:"status"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// UserStatus 用户状态
const (
	UserStatusDisabled = 0 // 禁用
	UserStatusActive   = 1 // 正常
)

// JSON 自定义 JSON 类型
type JSON map[string]interface{}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Unmarshal 将 JSON 值反序列化到目标结构（便于业务层使用）
func (j JSON) Unmarshal(target interface{}) error {
	if j == nil {
		return nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}
