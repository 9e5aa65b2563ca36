package roomday

import (
	"context"
	stderrors "errors"
	"math/big"
	"time"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

// PurchaseRequest 购买请求
type PurchaseRequest struct {
	UserID   int64   `json:"-"`
	Wallet   string  `json:"-"`
	TokenIDs []int64 `json:"token_ids" binding:"required"`
}

// PurchaseResult 购买结果
//
// Status 为 timeout 时交易结果未知：既不能当作失败重发，
// 也不能当作成功入账，以流水号跟踪补查结论。
type PurchaseResult struct {
	ReceiptNo   string  `json:"receipt_no"`
	TxHash      string  `json:"tx_hash"`
	TokenIDs    []int64 `json:"token_ids"`
	TotalWei    string  `json:"total_wei"`
	TotalEth    string  `json:"total_eth"`
	BlockNumber int64   `json:"block_number,omitempty"`
	Status      string  `json:"status"`
}

// Purchase 购买一组房晚通证
//
// 所有通证在一笔合约交易里完成转移，要么全部成交要么全部失败。
// 总价取最近一次观察到的挂牌价，最终以合约执行为准。
func (s *RoomDayService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	if len(req.TokenIDs) == 0 {
		return nil, errors.ErrTokenIDsEmpty
	}
	if len(utils.Unique(req.TokenIDs)) != len(req.TokenIDs) {
		return nil, errors.ErrTokenIDsDuplicated
	}

	receiptNo := utils.GenerateReceiptNo("P")

	// 串行化同一房晚上的写操作，避免同一通证被并发下单
	if err := s.lockTokens(ctx, req.TokenIDs, receiptNo); err != nil {
		return nil, err
	}
	defer s.unlockTokens(ctx, req.TokenIDs)

	// 基于最近快照做乐观校验与计价
	snapshot, err := s.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	byToken := make(map[int64]*models.RoomDay, len(snapshot.Items))
	for i := range snapshot.Items {
		byToken[snapshot.Items[i].TokenID] = &snapshot.Items[i]
	}

	total := new(big.Int)
	for _, tokenID := range req.TokenIDs {
		item, ok := byToken[tokenID]
		if !ok {
			return nil, errors.ErrRoomDayNotFound.WithMessage("房晚通证不存在")
		}
		if item.Status != models.RoomStatusAvailable {
			return nil, errors.ErrRoomNotAvailable
		}
		price := item.Price()
		if price == nil {
			return nil, errors.ErrParseFailure
		}
		total.Add(total, price)
	}

	receipt := &models.TxReceipt{
		ReceiptNo: receiptNo,
		Method:    models.TxMethodTransferMulti,
		UserID:    utils.Int64Ptr(req.UserID),
		Wallet:    utils.StringPtr(req.Wallet),
		TokenIDs:  tokenIDsJSON(req.TokenIDs),
		ValueWei:  total.String(),
		Status:    models.TxStatusPending,
	}
	if s.receiptRepo != nil {
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}

	start := time.Now()
	txResult, txErr := s.chain.TransferRoomDayMultiple(ctx, req.TokenIDs, total)
	status := s.settleReceipt(ctx, receipt, txResult, txErr, "transferRoomDayMultiple", time.Since(start))
	metrics.GetMetrics().RecordPurchase(status)

	result := &PurchaseResult{
		ReceiptNo: receiptNo,
		TokenIDs:  req.TokenIDs,
		TotalWei:  total.String(),
		TotalEth:  utils.FormatEther(total),
		Status:    status,
	}
	if txResult != nil {
		result.TxHash = txResult.TxHash
		result.BlockNumber = txResult.BlockNumber
	}

	if txErr != nil {
		return result, mapChainError(txErr)
	}

	// 成交：乐观更新缓存并打未对账标记，链上事实由对账任务拉平；
	// 持有人记为真实买家，回源时按流水还原
	s.updateCachedStatus(ctx, req.TokenIDs, models.RoomStatusBooked, req.Wallet)

	logger.Info("房晚购买成交",
		logger.Module("roomday"),
		logger.UserID(req.UserID),
		logger.TxHash(result.TxHash))

	return result, nil
}

// settleReceipt 按交易结果落账，返回流水状态
//
// 只有拿到回执才能判定成败；等待超时如实记为 timeout，
// 留给补查任务收尾，绝不自动重发。
func (s *RoomDayService) settleReceipt(ctx context.Context, receipt *models.TxReceipt, txResult *roomtoken.TxResult, txErr error, method string, elapsed time.Duration) string {
	if txResult != nil && txResult.TxHash != "" {
		receipt.TxHash = txResult.TxHash
		if s.receiptRepo != nil {
			if err := s.receiptRepo.UpdateTxHash(ctx, receipt.ID, txResult.TxHash); err != nil {
				logger.Error("回填交易哈希失败", logger.Module("roomday"), logger.TxHash(txResult.TxHash))
			}
		}
	}

	switch {
	case txErr == nil:
		metrics.RecordContractCallGlobal(method, "success", elapsed)
		if s.receiptRepo != nil {
			if err := s.receiptRepo.MarkConfirmed(ctx, receipt.ID, txResult.BlockNumber, txResult.GasUsed); err != nil {
				logger.Error("更新流水状态失败", logger.Module("roomday"), logger.TxHash(receipt.TxHash))
			}
		}
		return models.TxStatusConfirmed

	case stderrors.Is(txErr, roomtoken.ErrConfirmTimeout):
		metrics.RecordContractCallGlobal(method, "timeout", elapsed)
		if s.receiptRepo != nil {
			if err := s.receiptRepo.MarkTimeout(ctx, receipt.ID); err != nil {
				logger.Error("更新流水状态失败", logger.Module("roomday"), logger.TxHash(receipt.TxHash))
			}
		}
		logger.Warn("交易确认超时，等待补查",
			logger.Module("roomday"),
			logger.TxHash(receipt.TxHash))
		return models.TxStatusTimeout

	case stderrors.Is(txErr, roomtoken.ErrReverted):
		metrics.RecordContractCallGlobal(method, "reverted", elapsed)
		if s.receiptRepo != nil {
			if err := s.receiptRepo.MarkReverted(ctx, receipt.ID, txErr.Error()); err != nil {
				logger.Error("更新流水状态失败", logger.Module("roomday"), logger.TxHash(receipt.TxHash))
			}
		}
		return models.TxStatusReverted

	default:
		// 交易未能发出（节点不可达、余额不足等），没有链上痕迹
		metrics.RecordContractCallGlobal(method, "error", elapsed)
		if s.receiptRepo != nil {
			if err := s.receiptRepo.MarkReverted(ctx, receipt.ID, txErr.Error()); err != nil {
				logger.Error("更新流水状态失败", logger.Module("roomday"))
			}
		}
		return models.TxStatusReverted
	}
}

// tokenIDsJSON 将通证列表编码为流水 JSON 字段
func tokenIDsJSON(tokenIDs []int64) models.JSON {
	ids := make([]interface{}, len(tokenIDs))
	for i, id := range tokenIDs {
		ids[i] = id
	}
	return models.JSON{"token_ids": ids}
}
