// Package scheduler 提供定时任务
package scheduler

import (
	"context"
	"time"

	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

// ReceiptChecker 回执补查后端，由 roomtoken.Client 实现
type ReceiptChecker interface {
	TransactionReceipt(ctx context.Context, txHash string) (*roomtoken.TxResult, error)
}

// SnapshotReconciler 快照对账后端，由 roomday.RoomDayService 实现
type SnapshotReconciler interface {
	Snapshot(ctx context.Context, refresh bool) (*models.RoomDaySnapshot, error)
	ClearUnverified(ctx context.Context)
}

// TaskHandler 任务处理器
type TaskHandler struct {
	receiptRepo  *repository.ReceiptRepository
	failureRepo  *repository.ParseFailureRepository
	chain        ReceiptChecker
	reconciler   SnapshotReconciler
	pendingGrace time.Duration
	failureKeep  time.Duration
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(
	receiptRepo *repository.ReceiptRepository,
	failureRepo *repository.ParseFailureRepository,
	chain ReceiptChecker,
	reconciler SnapshotReconciler,
) *TaskHandler {
	return &TaskHandler{
		receiptRepo:  receiptRepo,
		failureRepo:  failureRepo,
		chain:        chain,
		reconciler:   reconciler,
		pendingGrace: 5 * time.Minute,
		failureKeep:  30 * 24 * time.Hour,
	}
}

// SweepUnresolvedReceipts 补查结果未知的交易流水
//
// 对象是 timeout 状态以及长时间停留在 pending 的流水。
// 只按交易哈希查回执定结论，绝不重发交易。
func (h *TaskHandler) SweepUnresolvedReceipts(ctx context.Context) error {
	receipts, err := h.receiptRepo.ListUnresolved(ctx, time.Now().Add(-h.pendingGrace), 100)
	if err != nil {
		return err
	}
	if len(receipts) == 0 {
		return nil
	}

	logger.Info("开始补查未决流水",
		logger.Module("scheduler"),
		logger.Action("sweep_receipts"))

	for _, receipt := range receipts {
		if receipt.TxHash == "" {
			// 交易从未广播成功，不可能再有回执
			if err := h.receiptRepo.MarkReverted(ctx, receipt.ID, "交易未广播"); err != nil {
				logger.Error("标记未广播流水失败", logger.Module("scheduler"))
			}
			continue
		}

		result, err := h.chain.TransactionReceipt(ctx, receipt.TxHash)
		if err != nil {
			// 节点暂时不可用，留到下一轮
			logger.Warn("补查回执失败",
				logger.Module("scheduler"),
				logger.TxHash(receipt.TxHash))
			continue
		}
		if !result.Mined {
			// 还没上链，继续等
			continue
		}

		if result.Success {
			if err := h.receiptRepo.MarkConfirmed(ctx, receipt.ID, result.BlockNumber, result.GasUsed); err != nil {
				logger.Error("补查确认落账失败", logger.Module("scheduler"), logger.TxHash(receipt.TxHash))
				continue
			}
			metrics.RecordContractCallGlobal(receipt.Method, "swept_confirmed", 0)
			logger.Info("补查确认交易成功",
				logger.Module("scheduler"),
				logger.TxHash(receipt.TxHash))
		} else {
			if err := h.receiptRepo.MarkReverted(ctx, receipt.ID, "补查回执：合约拒绝"); err != nil {
				logger.Error("补查拒绝落账失败", logger.Module("scheduler"), logger.TxHash(receipt.TxHash))
				continue
			}
			metrics.RecordContractCallGlobal(receipt.Method, "swept_reverted", 0)
			logger.Warn("补查发现交易被拒绝",
				logger.Module("scheduler"),
				logger.TxHash(receipt.TxHash))
		}
	}

	return nil
}

// ReconcileSnapshot 用链上事实拉平缓存快照
//
// 写操作后的缓存更新是乐观的，这里定期全量回源，
// 成功后清除未对账标记。
func (h *TaskHandler) ReconcileSnapshot(ctx context.Context) error {
	if h.reconciler == nil {
		return nil
	}
	if _, err := h.reconciler.Snapshot(ctx, true); err != nil {
		return err
	}
	h.reconciler.ClearUnverified(ctx)
	return nil
}

// PruneParseFailures 清理过期的解析失败审计记录
func (h *TaskHandler) PruneParseFailures(ctx context.Context) error {
	deleted, err := h.failureRepo.DeleteBefore(ctx, time.Now().Add(-h.failureKeep))
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("清理解析失败审计记录",
			logger.Module("scheduler"),
			logger.Action("prune_parse_failures"))
	}
	return nil
}

// SetupTasks 设置所有任务
func SetupTasks(scheduler *Scheduler, handler *TaskHandler, reconcileInterval time.Duration) {
	if reconcileInterval <= 0 {
		reconcileInterval = 5 * time.Minute
	}

	// 每分钟补查未决流水
	scheduler.AddTask("SweepUnresolvedReceipts", 1*time.Minute, handler.SweepUnresolvedReceipts)

	// 定期用链上事实拉平缓存
	scheduler.AddTask("ReconcileSnapshot", reconcileInterval, handler.ReconcileSnapshot)

	// 每天清理一次过期审计
	scheduler.AddTask("PruneParseFailures", 24*time.Hour, handler.PruneParseFailures)
}
