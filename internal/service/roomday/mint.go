package roomday

import (
	"context"
	"time"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
)

// MintRequest 铸造请求
//
// 按房间区间 × 日期区间铸造一批房晚通证，价格对整批生效。
type MintRequest struct {
	AdminID     int64           `json:"-"`
	RoomIDStart int64           `json:"room_id_start" binding:"required"`
	RoomIDEnd   int64           `json:"room_id_end" binding:"required"`
	StartDate   string          `json:"start_date" binding:"required"`
	EndDate     string          `json:"end_date" binding:"required"`
	RoomType    models.RoomType `json:"room_type"`
	PriceWei    string          `json:"price_wei" binding:"required"`
}

// MintResult 铸造结果
type MintResult struct {
	ReceiptNo   string `json:"receipt_no"`
	TxHash      string `json:"tx_hash"`
	RoomCount   int64  `json:"room_count"`
	DayCount    int64  `json:"day_count"`
	TokenCount  int64  `json:"token_count"`
	Status      string `json:"status"`
	BlockNumber int64  `json:"block_number,omitempty"`
}

// Mint 铸造房晚通证
func (s *RoomDayService) Mint(ctx context.Context, req *MintRequest) (*MintResult, error) {
	if req.RoomIDStart < MinRoomID || req.RoomIDEnd > MaxRoomID || req.RoomIDStart > req.RoomIDEnd {
		return nil, errors.ErrRoomIDOutOfRange
	}
	if !req.RoomType.Valid() {
		return nil, errors.ErrInvalidParams.WithMessage("无效的房型")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, errors.ErrDateRangeInvalid.WithError(err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, errors.ErrDateRangeInvalid.WithError(err)
	}
	if start.After(end) {
		return nil, errors.ErrDateRangeInvalid
	}

	roomCount := req.RoomIDEnd - req.RoomIDStart + 1
	dayCount := int64(end.Sub(start)/(24*time.Hour)) + 1
	if roomCount > int64(s.opts.MintMaxRooms) || dayCount > int64(s.opts.MintMaxDays) {
		return nil, errors.ErrMintRangeTooLarge
	}

	price, err := utils.ParseWei(req.PriceWei)
	if err != nil {
		return nil, errors.ErrPriceRangeInvalid.WithError(err)
	}
	// 零价合法（比如赠送房晚），ParseWei 已拒绝负数
	if price.Sign() < 0 {
		return nil, errors.ErrPriceRangeInvalid.WithMessage("价格不能为负")
	}

	receiptNo := utils.GenerateReceiptNo("M")
	receipt := &models.TxReceipt{
		ReceiptNo: receiptNo,
		Method:    models.TxMethodMint,
		UserID:    utils.Int64Ptr(req.AdminID),
		ValueWei:  "0",
		Status:    models.TxStatusPending,
		TokenIDs: models.JSON{
			"room_id_start": req.RoomIDStart,
			"room_id_end":   req.RoomIDEnd,
			"start_date":    req.StartDate,
			"end_date":      req.EndDate,
		},
	}
	if s.receiptRepo != nil {
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}

	startTs := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC).Unix()
	endTs := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).Unix()

	callStart := time.Now()
	txResult, txErr := s.chain.MintMultipleRoomDays(ctx,
		req.RoomIDStart, req.RoomIDEnd, startTs, endTs, uint8(req.RoomType), price)
	status := s.settleReceipt(ctx, receipt, txResult, txErr, "mintMultipleRoomDays", time.Since(callStart))

	result := &MintResult{
		ReceiptNo:  receiptNo,
		RoomCount:  roomCount,
		DayCount:   dayCount,
		TokenCount: roomCount * dayCount,
		Status:     status,
	}
	if txResult != nil {
		result.TxHash = txResult.TxHash
		result.BlockNumber = txResult.BlockNumber
	}

	if txErr != nil {
		return result, mapChainError(txErr)
	}

	// 新铸造的通证需要重新拉快照才能看到
	s.InvalidateSnapshot(ctx)

	logger.Info("房晚铸造成功",
		logger.Module("roomday"),
		logger.AdminID(req.AdminID),
		logger.TxHash(result.TxHash))

	return result, nil
}
