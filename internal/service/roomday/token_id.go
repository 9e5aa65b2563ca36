// Package roomday 提供房晚通证核心服务
package roomday

import (
	"time"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
)

// 通证编码约束：房间编号占 tokenId 的低三位十进制，
// 超出 1..999 会与相邻日期的编码空间重叠。
const (
	MinRoomID = 1
	MaxRoomID = 999
)

// DeriveTokenID 由日期和房间编号推导通证 ID
//
// 编码规则：(year*10000 + month*100 + day) * 1000 + roomID。
// 例如 2025-06-01 的 101 房 → 20250601101。
func DeriveTokenID(year, month, day int, roomID int64) (int64, error) {
	if roomID < MinRoomID || roomID > MaxRoomID {
		return 0, errors.ErrRoomIDOutOfRange
	}
	if !validDate(year, month, day) {
		return 0, errors.ErrDateRangeInvalid
	}
	dateNum := int64(year)*10000 + int64(month)*100 + int64(day)
	return dateNum*1000 + roomID, nil
}

// DeriveTokenIDFromDate 由日期字符串（YYYY-MM-DD）推导通证 ID
func DeriveTokenIDFromDate(date string, roomID int64) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, errors.ErrDateRangeInvalid.WithError(err)
	}
	return DeriveTokenID(t.Year(), int(t.Month()), t.Day(), roomID)
}

// SplitTokenID 将通证 ID 拆回日期和房间编号
func SplitTokenID(tokenID int64) (year, month, day int, roomID int64) {
	roomID = tokenID % 1000
	dateNum := tokenID / 1000
	year = int(dateNum / 10000)
	month = int(dateNum / 100 % 100)
	day = int(dateNum % 100)
	return
}

// validDate 校验年月日是否为真实存在的日期
func validDate(year, month, day int) bool {
	if year < 2000 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
