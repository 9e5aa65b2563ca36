package roomday

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/pkg/metadata"
)

// ==================== 可订检索测试 ====================

// searchFixture 三个房间 × 三天的混合状态数据
func searchFixture() *fakeChain {
	chain := newFakeChain()
	// 101：标准间，全部可订，价格递增
	chain.addRoomDay(101, 2025, 6, 1, 0, 0, 1000, testOwnerContract)
	chain.addRoomDay(101, 2025, 6, 2, 0, 0, 2000, testOwnerContract)
	chain.addRoomDay(101, 2025, 6, 3, 0, 0, 3000, testOwnerContract)
	// 202：豪华间，6-2 已被订走
	chain.addRoomDay(202, 2025, 6, 1, 1, 0, 5000, testOwnerContract)
	chain.addRoomDay(202, 2025, 6, 2, 1, 1, 5000, testOwnerAlice)
	// 303：套房，已入住
	chain.addRoomDay(303, 2025, 6, 1, 2, 2, 9000, testOwnerAlice)
	return chain
}

func TestSearchAvailable_Filters(t *testing.T) {
	svc, _ := newTestService(t, searchFixture())
	ctx := context.Background()

	t.Run("仅返回可订状态", func(t *testing.T) {
		result, err := svc.SearchAvailable(ctx, &SearchParams{
			StartDate: "2025-06-01",
			EndDate:   "2025-06-03",
			RoomType:  models.RoomTypeAll,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, result.Total)
		for _, item := range result.Items {
			assert.Equal(t, models.RoomStatusAvailable, item.Status)
		}
	})

	t.Run("日期区间两端为闭区间", func(t *testing.T) {
		result, err := svc.SearchAvailable(ctx, &SearchParams{
			StartDate: "2025-06-02",
			EndDate:   "2025-06-02",
			RoomType:  models.RoomTypeAll,
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, int64(20250602101), result.Items[0].TokenID)
	})

	t.Run("按房型过滤", func(t *testing.T) {
		result, err := svc.SearchAvailable(ctx, &SearchParams{
			StartDate: "2025-06-01",
			EndDate:   "2025-06-03",
			RoomType:  models.RoomTypeDeluxe,
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, int64(202), result.Items[0].RoomID)
	})

	t.Run("价格区间为闭区间", func(t *testing.T) {
		result, err := svc.SearchAvailable(ctx, &SearchParams{
			StartDate:   "2025-06-01",
			EndDate:     "2025-06-03",
			RoomType:    models.RoomTypeAll,
			MinPriceWei: "2000",
			MaxPriceWei: "3000",
		})
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
		for _, item := range result.Items {
			price := item.Price()
			assert.True(t, price.Int64() >= 2000 && price.Int64() <= 3000)
		}
	})

	t.Run("单边价格下限", func(t *testing.T) {
		result, err := svc.SearchAvailable(ctx, &SearchParams{
			StartDate:   "2025-06-01",
			EndDate:     "2025-06-03",
			RoomType:    models.RoomTypeAll,
			MinPriceWei: "5000",
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "5000", result.Items[0].PriceWei)
	})
}

func TestSearchAvailable_ExactPriceMatch(t *testing.T) {
	// 上下限相等的价格区间退化为精确匹配
	chain := newFakeChain()
	chain.addRoomDay(101, 2025, 6, 1, 0, 0, 80000000000000000, testOwnerContract)
	chain.addRoomDay(102, 2025, 6, 1, 0, 0, 79999999999999999, testOwnerContract)
	chain.addRoomDay(103, 2025, 6, 1, 0, 0, 80000000000000001, testOwnerContract)

	svc, _ := newTestService(t, chain)

	result, err := svc.SearchAvailable(context.Background(), &SearchParams{
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-01",
		RoomType:    models.RoomTypeAll,
		MinPriceWei: "80000000000000000",
		MaxPriceWei: "80000000000000000",
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, int64(20250601101), result.Items[0].TokenID)
	assert.Equal(t, "0.08", result.Items[0].PriceEth)
}

func TestSearchAvailable_InvalidParams(t *testing.T) {
	svc, _ := newTestService(t, searchFixture())
	ctx := context.Background()

	tests := []struct {
		name     string
		params   *SearchParams
		wantCode int
	}{
		{
			name:     "起始晚于结束",
			params:   &SearchParams{StartDate: "2025-06-03", EndDate: "2025-06-01", RoomType: models.RoomTypeAll},
			wantCode: errors.ErrDateRangeInvalid.Code,
		},
		{
			name:     "日期格式错误",
			params:   &SearchParams{StartDate: "06/01/2025", EndDate: "2025-06-03", RoomType: models.RoomTypeAll},
			wantCode: errors.ErrDateRangeInvalid.Code,
		},
		{
			name: "价格下限大于上限",
			params: &SearchParams{StartDate: "2025-06-01", EndDate: "2025-06-03",
				RoomType: models.RoomTypeAll, MinPriceWei: "5000", MaxPriceWei: "1000"},
			wantCode: errors.ErrPriceRangeInvalid.Code,
		},
		{
			name: "价格非数字",
			params: &SearchParams{StartDate: "2025-06-01", EndDate: "2025-06-03",
				RoomType: models.RoomTypeAll, MinPriceWei: "abc"},
			wantCode: errors.ErrPriceRangeInvalid.Code,
		},
		{
			name:     "房型越界",
			params:   &SearchParams{StartDate: "2025-06-01", EndDate: "2025-06-03", RoomType: 7},
			wantCode: errors.ErrInvalidParams.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SearchAvailable(ctx, tt.params)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetAppError(err).Code)
		})
	}
}

func TestSearchAvailable_ParseFailuresVisible(t *testing.T) {
	chain := searchFixture()
	chain.addRoomDay(104, 2025, 6, 1, 0, 9, 1000, testOwnerContract) // 坏状态

	svc, _ := newTestService(t, chain)

	result, err := svc.SearchAvailable(context.Background(), &SearchParams{
		StartDate: "2025-06-01",
		EndDate:   "2025-06-03",
		RoomType:  models.RoomTypeAll,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ParseFailures)
}

func TestSearchAvailable_MetadataEnrichment(t *testing.T) {
	svc, deps := newTestService(t, searchFixture())
	ctx := context.Background()

	deps.metadata.data[20250601101] = &metadata.Metadata{
		Name:  "Room 101 · 2025-06-01",
		Image: "https://cdn.example.com/101.png",
		Attributes: []metadata.Attribute{
			{TraitType: "Room Type", Value: "STANDARD"},
		},
	}

	result, err := svc.SearchAvailable(ctx, &SearchParams{
		StartDate:       "2025-06-01",
		EndDate:         "2025-06-01",
		RoomType:        models.RoomTypeStandard,
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	// 命中的带元数据
	require.NotNil(t, result.Items[0].Metadata)
	assert.Equal(t, "Room 101 · 2025-06-01", result.Items[0].Metadata.Name)
	require.Len(t, result.Items[0].Metadata.Attributes, 1)
	assert.Equal(t, "Room Type", result.Items[0].Metadata.Attributes[0].TraitType)
	assert.Zero(t, result.MetadataMisses)
}

func TestSearchAvailable_MetadataFailureDoesNotBreakSearch(t *testing.T) {
	svc, deps := newTestService(t, searchFixture())
	deps.metadata.err = assert.AnError

	result, err := svc.SearchAvailable(context.Background(), &SearchParams{
		StartDate:       "2025-06-01",
		EndDate:         "2025-06-03",
		RoomType:        models.RoomTypeAll,
		IncludeMetadata: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.MetadataMisses)
	for _, item := range result.Items {
		assert.Nil(t, item.Metadata)
	}
}

func TestGetMetadata_CachesResult(t *testing.T) {
	svc, deps := newTestService(t, searchFixture())
	ctx := context.Background()

	deps.metadata.data[20250601101] = &metadata.Metadata{Name: "Room 101"}

	md, err := svc.GetMetadata(ctx, 20250601101)
	require.NoError(t, err)
	assert.Equal(t, "Room 101", md.Name)

	// 第二次命中缓存，不再请求元数据服务
	callsAfterFirst := deps.metadata.calls
	md, err = svc.GetMetadata(ctx, 20250601101)
	require.NoError(t, err)
	assert.Equal(t, "Room 101", md.Name)
	assert.Equal(t, callsAfterFirst, deps.metadata.calls)
}

// ==================== 持有人列表测试 ====================

func TestListByOwner(t *testing.T) {
	svc, _ := newTestService(t, searchFixture())
	ctx := context.Background()

	t.Run("按持有人过滤", func(t *testing.T) {
		result, err := svc.ListByOwner(ctx, testOwnerAlice, models.RoomStatusAll)
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
	})

	t.Run("大小写不敏感", func(t *testing.T) {
		result, err := svc.ListByOwner(ctx, "0x71c7656ec7ab88b098defb751b7401b5f6d8976f", models.RoomStatusAll)
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)
	})

	t.Run("叠加状态过滤", func(t *testing.T) {
		result, err := svc.ListByOwner(ctx, testOwnerAlice, models.RoomStatusUsed)
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, int64(303), result.Items[0].RoomID)
	})

	t.Run("无效钱包地址", func(t *testing.T) {
		_, err := svc.ListByOwner(ctx, "not-a-wallet", models.RoomStatusAll)
		require.Error(t, err)
		assert.Equal(t, errors.ErrWalletInvalid.Code, errors.GetAppError(err).Code)
	})
}
