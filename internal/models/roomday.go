package models

import (
	"math/big"
	"time"
)

// RoomStatus 房晚状态（与合约枚举值一致）
type RoomStatus uint8

const (
	RoomStatusAvailable RoomStatus = 0 // 可预订
	RoomStatusBooked    RoomStatus = 1 // 已预订
	RoomStatusUsed      RoomStatus = 2 // 已入住
	RoomStatusAll       RoomStatus = 3 // 查询通配，匹配任意状态
)

// String 返回状态名称
func (s RoomStatus) String() string {
	switch s {
	case RoomStatusAvailable:
		return "AVAILABLE"
	case RoomStatusBooked:
		return "BOOKED"
	case RoomStatusUsed:
		return "USED"
	case RoomStatusAll:
		return "ALL"
	default:
		return "UNKNOWN"
	}
}

// Valid 判断是否为合法的链上状态值（不含通配）
func (s RoomStatus) Valid() bool {
	return s <= RoomStatusUsed
}

// RoomType 房型（与合约枚举值一致）
type RoomType uint8

const (
	RoomTypeStandard RoomType = 0 // 标准间
	RoomTypeDeluxe   RoomType = 1 // 豪华间
	RoomTypeSuite    RoomType = 2 // 套房
	RoomTypeAll      RoomType = 3 // 查询通配，匹配任意房型
)

// String 返回房型名称
func (t RoomType) String() string {
	switch t {
	case RoomTypeStandard:
		return "STANDARD"
	case RoomTypeDeluxe:
		return "DELUXE"
	case RoomTypeSuite:
		return "SUITE"
	case RoomTypeAll:
		return "ALL"
	default:
		return "UNKNOWN"
	}
}

// Valid 判断是否为合法的链上房型值（不含通配）
func (t RoomType) Valid() bool {
	return t <= RoomTypeSuite
}

// RoomDay 房晚通证链上快照
//
// PriceWei 用十进制字符串表示，避免 JSON 数值精度丢失。
// Timestamp 是合约记录的当天零点 Unix 时间戳，Date 由年月日拼出。
type RoomDay struct {
	TokenID   int64      `json:"token_id"`
	RoomID    int64      `json:"room_id"`
	Timestamp int64      `json:"timestamp"`
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	Day       int        `json:"day"`
	Date      string     `json:"date"` // YYYY-MM-DD
	RoomType  RoomType   `json:"room_type"`
	Status    RoomStatus `json:"status"`
	StatusStr string     `json:"status_str"`
	TypeStr   string     `json:"type_str"`
	PriceWei  string     `json:"price_wei"`
	PriceEth  string     `json:"price_eth"`
	Owner     string     `json:"owner"`
}

// Price 将挂牌价解析为 big.Int，解析失败返回 nil
func (r *RoomDay) Price() *big.Int {
	price, ok := new(big.Int).SetString(r.PriceWei, 10)
	if !ok {
		return nil
	}
	return price
}

// RoomDayMetadata 房晚通证链下元数据
type RoomDayMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Image       string              `json:"image,omitempty"`
	Attributes  []MetadataAttribute `json:"attributes,omitempty"`
}

// MetadataAttribute 元数据属性
type MetadataAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// EnrichedRoomDay 附带元数据的房晚通证
//
// Metadata 为空表示元数据获取失败，不影响链上数据本身。
type EnrichedRoomDay struct {
	RoomDay
	Metadata *RoomDayMetadata `json:"metadata,omitempty"`
}

// RoomDayTotal 按日期/状态/房型的聚合统计（合约 getTotals 的一行）
type RoomDayTotal struct {
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	Day      int        `json:"day"`
	Status   RoomStatus `json:"status"`
	RoomType RoomType   `json:"room_type"`
	Count    int64      `json:"count"`
}

// RoomDaySnapshot 一次全量读取的结果
//
// ParseFailures 为被丢弃的不可解析记录数，读取方必须向上传递。
type RoomDaySnapshot struct {
	Items         []RoomDay `json:"items"`
	ParseFailures int       `json:"parse_failures"`
	FetchedAt     time.Time `json:"fetched_at"`
	Unverified    bool      `json:"unverified"`
}
