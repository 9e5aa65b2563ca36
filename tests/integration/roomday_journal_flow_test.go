//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
)

// TestReceiptJournalFlow 在真实 Postgres 上验证流水生命周期：
// 广播 -> 补哈希 -> 确认/超时，以及调度器依赖的补查列表。
func TestReceiptJournalFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc := NewTestContainers(ctx)
	require.NoError(t, tc.StartPostgres(DefaultPostgresConfig()))
	t.Cleanup(func() { _ = tc.Cleanup() })

	db, err := tc.GetPostgresDB()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TxReceipt{}, &models.ParseFailure{}, &models.CheckIn{}))

	receiptRepo := repository.NewReceiptRepository(db)

	// 广播一笔购买交易
	receipt := &models.TxReceipt{
		ReceiptNo: "RCP20250601TEST0001",
		TxHash:    "",
		Method:    models.TxMethodTransferMulti,
		UserID:    utils.Int64Ptr(1),
		Wallet:    utils.StringPtr("0x1111111111111111111111111111111111111111"),
		TokenIDs:  models.JSON{"token_ids": []interface{}{int64(20250601101), int64(20250602101)}},
		ValueWei:  "160000000000000000",
		Status:    models.TxStatusPending,
	}
	require.NoError(t, receiptRepo.Create(ctx, receipt))
	require.NoError(t, receiptRepo.UpdateTxHash(ctx, receipt.ID, "0xabc001"))

	// 拿到回执后流转终态
	require.NoError(t, receiptRepo.MarkConfirmed(ctx, receipt.ID, 12345, 21000))

	got, err := receiptRepo.GetByReceiptNo(ctx, receipt.ReceiptNo)
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusConfirmed, got.Status)
	assert.Equal(t, "0xabc001", got.TxHash)
	require.NotNil(t, got.BlockNumber)
	assert.Equal(t, int64(12345), *got.BlockNumber)
	assert.NotNil(t, got.ConfirmedAt)

	// 等待超时的交易停在未决，由补查任务接管
	stale := &models.TxReceipt{
		ReceiptNo: "RCP20250601TEST0002",
		TxHash:    "0xabc002",
		Method:    models.TxMethodSetToUsed,
		UserID:    utils.Int64Ptr(2),
		TokenIDs:  models.JSON{"token_ids": []interface{}{int64(20250603102)}},
		ValueWei:  "0",
		Status:    models.TxStatusPending,
	}
	require.NoError(t, receiptRepo.Create(ctx, stale))
	require.NoError(t, receiptRepo.MarkTimeout(ctx, stale.ID))

	unresolved, err := receiptRepo.ListUnresolved(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, stale.ReceiptNo, unresolved[0].ReceiptNo)

	confirmed, err := receiptRepo.CountByStatus(ctx, models.TxStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), confirmed)

	// 管理端按方法过滤
	list, total, err := receiptRepo.List(ctx, 0, 10, map[string]interface{}{
		"method": models.TxMethodTransferMulti,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, receipt.ReceiptNo, list[0].ReceiptNo)
}

// TestParseFailureAudit 验证解析失败审计的留痕与清理
func TestParseFailureAudit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc := NewTestContainers(ctx)
	require.NoError(t, tc.StartPostgres(DefaultPostgresConfig()))
	t.Cleanup(func() { _ = tc.Cleanup() })

	db, err := tc.GetPostgresDB()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ParseFailure{}))

	failureRepo := repository.NewParseFailureRepository(db)

	require.NoError(t, failureRepo.CreateBatch(ctx, []*models.ParseFailure{
		{Source: "getAllRoomDays", ItemIndex: 3, Reason: "token id out of range"},
		{Source: "getAllRoomDays", ItemIndex: 7, Reason: "invalid room type"},
		{Source: "getTotals", ItemIndex: 0, Reason: "row shape mismatch"},
	}))

	list, total, err := failureRepo.List(ctx, 0, 10, "getAllRoomDays")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	count, err := failureRepo.CountSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	deleted, err := failureRepo.DeleteBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

// TestCheckInWriteLock 验证核销记录落库与 Redis 写锁互斥
func TestCheckInWriteLock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tc := NewTestContainers(ctx)
	require.NoError(t, tc.StartAll())
	t.Cleanup(func() { _ = tc.Cleanup() })

	db, err := tc.GetPostgresDB()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TxReceipt{}, &models.CheckIn{}))

	checkinRepo := repository.NewCheckInRepository(db)

	require.NoError(t, checkinRepo.Create(ctx, &models.CheckIn{
		TokenID: 20250601101,
		UserID:  1,
		RoomID:  101,
		Date:    "2025-06-01",
	}))

	exists, err := checkinRepo.ExistsByTokenID(ctx, 20250601101)
	require.NoError(t, err)
	assert.True(t, exists)

	list, total, err := checkinRepo.ListByUser(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(101), list[0].RoomID)

	// 同一通证的并发写由 Redis SetNX 锁串行化
	client, err := tc.GetRedisClient()
	require.NoError(t, err)

	lockKey := "lock:token:20250601101"
	ok, err := client.SetNX(ctx, lockKey, "1", 30*time.Second).Result()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, lockKey, "1", 30*time.Second).Result()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, lockKey).Err())
	ok, err = client.SetNX(ctx, lockKey, "1", 30*time.Second).Result()
	require.NoError(t, err)
	assert.True(t, ok)
}
