package roomday

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
)

// RedeemRequest 核销请求
type RedeemRequest struct {
	UserID  int64  `json:"-"`
	Wallet  string `json:"-"`
	TokenID int64  `json:"-"`
	Guest   string `json:"guest"`
}

// RedeemResult 核销结果
type RedeemResult struct {
	ReceiptNo   string `json:"receipt_no"`
	TxHash      string `json:"tx_hash"`
	TokenID     int64  `json:"token_id"`
	RoomID      int64  `json:"room_id"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	QRCode      string `json:"qr_code,omitempty"`
	BlockNumber int64  `json:"block_number,omitempty"`
}

// Redeem 核销房晚（入住）
//
// 状态的最终裁决在合约：快照与本地核销记录只用来提前提示，
// 核销是否成立以 setToUsed 的回执为准。持有人校验是例外，
// 交易由运营方密钥签名，合约看不到真实调用者，归属必须由
// 服务端裁定。
func (s *RoomDayService) Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResult, error) {
	if req.TokenID <= 0 {
		return nil, errors.ErrInvalidParams.WithMessage("无效的通证 ID")
	}

	var roomID int64
	var date string
	item, lookupErr := s.GetByTokenID(ctx, req.TokenID)
	if lookupErr == nil && !strings.EqualFold(item.Owner, req.Wallet) {
		// 快照可能滞后，拒绝前强制回源一次再裁定归属
		item, lookupErr = s.freshByTokenID(ctx, req.TokenID)
	}
	if lookupErr == nil {
		if !strings.EqualFold(item.Owner, req.Wallet) {
			return nil, errors.ErrNotTokenOwner
		}
		if item.Status != models.RoomStatusBooked {
			logger.Warn("快照状态非已预订，交由合约裁决",
				logger.Module("roomday"),
				logger.TokenID(req.TokenID))
		}
		roomID = item.RoomID
		date = item.Date
	} else {
		// 快照不可用时按编码规则兜底拆出房间号
		year, month, day, splitRoomID := SplitTokenID(req.TokenID)
		roomID = splitRoomID
		if validDate(year, month, day) {
			date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		}
	}

	if s.checkinRepo != nil {
		exists, err := s.checkinRepo.ExistsByTokenID(ctx, req.TokenID)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			// 超时后补查入账的交易可能让本地记录先行，是否重复核销由合约裁决
			logger.Warn("已存在本地核销记录，交由合约裁决",
				logger.Module("roomday"),
				logger.TokenID(req.TokenID))
		}
	}

	receiptNo := utils.GenerateReceiptNo("R")

	if err := s.lockTokens(ctx, []int64{req.TokenID}, receiptNo); err != nil {
		return nil, err
	}
	defer s.unlockTokens(ctx, []int64{req.TokenID})

	receipt := &models.TxReceipt{
		ReceiptNo: receiptNo,
		Method:    models.TxMethodSetToUsed,
		UserID:    utils.Int64Ptr(req.UserID),
		Wallet:    utils.StringPtr(req.Wallet),
		TokenIDs:  tokenIDsJSON([]int64{req.TokenID}),
		ValueWei:  "0",
		Status:    models.TxStatusPending,
	}
	if s.receiptRepo != nil {
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}

	start := time.Now()
	txResult, txErr := s.chain.SetToUsed(ctx, req.TokenID)
	status := s.settleReceipt(ctx, receipt, txResult, txErr, "setToUsed", time.Since(start))
	metrics.GetMetrics().RecordRedemption(status)

	result := &RedeemResult{
		ReceiptNo: receiptNo,
		TokenID:   req.TokenID,
		RoomID:    roomID,
		Date:      date,
		Status:    status,
	}
	if txResult != nil {
		result.TxHash = txResult.TxHash
		result.BlockNumber = txResult.BlockNumber
	}

	if txErr != nil {
		return result, mapChainError(txErr)
	}

	s.updateCachedStatus(ctx, []int64{req.TokenID}, models.RoomStatusUsed, "")

	// 核销成功后的配套动作都是降级可缺的：二维码、门锁授权、落库留痕
	result.QRCode = s.generateCheckInQR(req, result)
	s.recordCheckIn(ctx, req, receipt, result)
	s.notifyDoorLock(ctx, req, result)

	logger.Info("房晚核销成功",
		logger.Module("roomday"),
		logger.UserID(req.UserID),
		logger.TokenID(req.TokenID),
		logger.TxHash(result.TxHash))

	return result, nil
}

// generateCheckInQR 生成入住凭证二维码（data URL）
func (s *RoomDayService) generateCheckInQR(req *RedeemRequest, result *RedeemResult) string {
	if s.qr == nil {
		return ""
	}
	payload, err := json.Marshal(map[string]interface{}{
		"token_id":   result.TokenID,
		"room_id":    result.RoomID,
		"date":       result.Date,
		"receipt_no": result.ReceiptNo,
		"guest":      req.Guest,
	})
	if err != nil {
		return ""
	}
	dataURL, err := s.qr.GenerateDataURL(string(payload))
	if err != nil {
		logger.Warn("生成入住二维码失败",
			logger.Module("roomday"),
			logger.TokenID(result.TokenID))
		return ""
	}
	return dataURL
}

// recordCheckIn 落库入住核销记录
func (s *RoomDayService) recordCheckIn(ctx context.Context, req *RedeemRequest, receipt *models.TxReceipt, result *RedeemResult) {
	if s.checkinRepo == nil {
		return
	}
	checkIn := &models.CheckIn{
		TokenID:   result.TokenID,
		UserID:    req.UserID,
		ReceiptID: utils.Int64Ptr(receipt.ID),
		RoomID:    result.RoomID,
		Date:      result.Date,
	}
	if result.QRCode != "" {
		checkIn.QRCodeData = utils.StringPtr(result.QRCode)
	}
	if err := s.checkinRepo.Create(ctx, checkIn); err != nil {
		logger.Error("落库核销记录失败",
			logger.Module("roomday"),
			logger.TokenID(result.TokenID))
	}
}

// ListCheckIns 分页列出用户的核销记录
func (s *RoomDayService) ListCheckIns(ctx context.Context, userID int64, offset, limit int) ([]*models.CheckIn, int64, error) {
	if s.checkinRepo == nil {
		return nil, 0, nil
	}
	return s.checkinRepo.ListByUser(ctx, userID, offset, limit)
}

// notifyDoorLock 向房间门锁下发入住授权
func (s *RoomDayService) notifyDoorLock(ctx context.Context, req *RedeemRequest, result *RedeemResult) {
	if s.notifier == nil || result.RoomID == 0 {
		return
	}
	if _, err := s.notifier.SendCheckInAsync(ctx, result.RoomID, result.TokenID, result.Date, req.Guest); err != nil {
		logger.Warn("下发门锁授权失败",
			logger.Module("roomday"),
			logger.RoomID(result.RoomID),
			logger.TokenID(result.TokenID))
	}
}
