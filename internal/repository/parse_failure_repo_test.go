// Package repository 解析失败仓储单元测试
package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-token-backend/internal/models"
)

// setupParseFailureRepoTestDB 创建测试数据库
func setupParseFailureRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ParseFailure{})
	require.NoError(t, err)

	return db
}

func TestParseFailureRepository_Create(t *testing.T) {
	db := setupParseFailureRepoTestDB(t)
	repo := NewParseFailureRepository(db)
	ctx := context.Background()

	raw := `{"tokenId":"not-a-number"}`
	failure := &models.ParseFailure{
		Source:    "getAllRoomDays",
		ItemIndex: 3,
		RawData:   &raw,
		Reason:    "invalid price field",
	}
	err := repo.Create(ctx, failure)
	require.NoError(t, err)
	assert.NotZero(t, failure.ID)
}

func TestParseFailureRepository_CreateBatch(t *testing.T) {
	db := setupParseFailureRepoTestDB(t)
	repo := NewParseFailureRepository(db)
	ctx := context.Background()

	t.Run("空列表不报错", func(t *testing.T) {
		err := repo.CreateBatch(ctx, nil)
		assert.NoError(t, err)
	})

	t.Run("批量插入", func(t *testing.T) {
		failures := make([]*models.ParseFailure, 0, 3)
		for i := 0; i < 3; i++ {
			failures = append(failures, &models.ParseFailure{
				Source:    "getAllRoomDays",
				ItemIndex: i,
				Reason:    fmt.Sprintf("bad record %d", i),
			})
		}
		err := repo.CreateBatch(ctx, failures)
		require.NoError(t, err)

		_, total, err := repo.List(ctx, 0, 10, "")
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})
}

func TestParseFailureRepository_List(t *testing.T) {
	db := setupParseFailureRepoTestDB(t)
	repo := NewParseFailureRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ParseFailure{Source: "getAllRoomDays", ItemIndex: 0, Reason: "bad status"}))
	require.NoError(t, repo.Create(ctx, &models.ParseFailure{Source: "getTotals", ItemIndex: 1, Reason: "bad count"}))

	t.Run("无过滤条件", func(t *testing.T) {
		failures, total, err := repo.List(ctx, 0, 10, "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, failures, 2)
	})

	t.Run("按来源过滤", func(t *testing.T) {
		failures, total, err := repo.List(ctx, 0, 10, "getTotals")
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "bad count", failures[0].Reason)
	})
}

func TestParseFailureRepository_CountSince(t *testing.T) {
	db := setupParseFailureRepoTestDB(t)
	repo := NewParseFailureRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ParseFailure{Source: "getAllRoomDays", Reason: "x"}))
	require.NoError(t, repo.Create(ctx, &models.ParseFailure{Source: "getAllRoomDays", Reason: "y"}))

	count, err := repo.CountSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestParseFailureRepository_DeleteBefore(t *testing.T) {
	db := setupParseFailureRepoTestDB(t)
	repo := NewParseFailureRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ParseFailure{Source: "getAllRoomDays", Reason: "old"}))

	deleted, err := repo.DeleteBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.List(ctx, 0, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
