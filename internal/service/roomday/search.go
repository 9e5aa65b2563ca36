package roomday

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dumeirei/hotel-token-backend/internal/common/cache"
	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/pkg/metadata"
)

// SearchParams 可订房晚检索条件
//
// RoomType 取 ALL 表示匹配任意房型；价格区间为 wei 十进制字符串，
// 空串表示该侧不限，两端均为闭区间。
type SearchParams struct {
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	RoomType        models.RoomType `json:"room_type"`
	MinPriceWei     string          `json:"min_price_wei"`
	MaxPriceWei     string          `json:"max_price_wei"`
	IncludeMetadata bool            `json:"include_metadata"`
}

// SearchResult 检索结果
//
// ParseFailures 与 MetadataMisses 是可见的降级信号：
// 列表可能不完整（坏记录被丢弃）或不完整富化（元数据拉取失败）。
type SearchResult struct {
	Items          []models.EnrichedRoomDay `json:"items"`
	Total          int                      `json:"total"`
	ParseFailures  int                      `json:"parse_failures"`
	MetadataMisses int                      `json:"metadata_misses"`
	Unverified     bool                     `json:"unverified"`
	FetchedAt      time.Time                `json:"fetched_at"`
}

// SearchAvailable 检索日期区间内可预订的房晚
func (s *RoomDayService) SearchAvailable(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	start, end, err := parseDateRange(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	if params.RoomType > models.RoomTypeAll {
		return nil, errors.ErrInvalidParams.WithMessage("无效的房型")
	}
	minPrice, maxPrice, err := parsePriceRange(params.MinPriceWei, params.MaxPriceWei)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	matched := make([]models.EnrichedRoomDay, 0)
	for _, item := range snapshot.Items {
		if item.Status != models.RoomStatusAvailable {
			continue
		}
		if item.Date < start || item.Date > end {
			continue
		}
		if params.RoomType != models.RoomTypeAll && item.RoomType != params.RoomType {
			continue
		}
		price := item.Price()
		if price == nil {
			// 价格串无法解析的记录不参与价格过滤
			continue
		}
		if minPrice != nil && price.Cmp(minPrice) < 0 {
			continue
		}
		if maxPrice != nil && price.Cmp(maxPrice) > 0 {
			continue
		}
		matched = append(matched, models.EnrichedRoomDay{RoomDay: item})
	}

	result := &SearchResult{
		Items:         matched,
		Total:         len(matched),
		ParseFailures: snapshot.ParseFailures,
		Unverified:    snapshot.Unverified,
		FetchedAt:     snapshot.FetchedAt,
	}

	if params.IncludeMetadata && s.metadata != nil && len(matched) > 0 {
		result.MetadataMisses = s.enrichMetadata(ctx, result.Items)
	}

	return result, nil
}

// enrichMetadata 并发拉取元数据，失败只降级不中断
//
// 返回拉取失败的条数。
func (s *RoomDayService) enrichMetadata(ctx context.Context, items []models.EnrichedRoomDay) int {
	var misses int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MetadataConcurrency)
	for i := range items {
		i := i
		g.Go(func() error {
			md, err := s.fetchMetadata(gctx, items[i].TokenID)
			if err != nil {
				atomic.AddInt64(&misses, 1)
				logger.Warn("元数据拉取失败",
					logger.Module("roomday"),
					logger.TokenID(items[i].TokenID))
				return nil
			}
			items[i].Metadata = md
			return nil
		})
	}
	g.Wait()

	return int(atomic.LoadInt64(&misses))
}

// fetchMetadata 拉取单个通证的元数据，带 Redis 缓存
func (s *RoomDayService) fetchMetadata(ctx context.Context, tokenID int64) (*models.RoomDayMetadata, error) {
	key := cache.KeyPrefixMetadata + strconv.FormatInt(tokenID, 10)

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Result(); err == nil {
			var md models.RoomDayMetadata
			if err := json.Unmarshal([]byte(raw), &md); err == nil {
				metrics.RecordCacheHitGlobal(cacheNameMetadata)
				return &md, nil
			}
		}
		metrics.RecordCacheMissGlobal(cacheNameMetadata)
	}

	fetched, err := s.metadata.Fetch(ctx, tokenID)
	if err != nil {
		return nil, errors.ErrMetadataUnavailable.WithError(err)
	}
	md := toRoomDayMetadata(fetched)

	if s.redis != nil {
		if data, err := json.Marshal(md); err == nil {
			s.redis.Set(ctx, key, string(data), s.opts.CacheExpire*4)
		}
	}

	return md, nil
}

// GetMetadata 获取单个通证的元数据
func (s *RoomDayService) GetMetadata(ctx context.Context, tokenID int64) (*models.RoomDayMetadata, error) {
	if s.metadata == nil {
		return nil, errors.ErrMetadataUnavailable
	}
	return s.fetchMetadata(ctx, tokenID)
}

// toRoomDayMetadata 转换元数据服务的返回结构
func toRoomDayMetadata(md *metadata.Metadata) *models.RoomDayMetadata {
	out := &models.RoomDayMetadata{
		Name:        md.Name,
		Description: md.Description,
		Image:       md.Image,
	}
	for _, attr := range md.Attributes {
		out.Attributes = append(out.Attributes, models.MetadataAttribute{
			TraitType: attr.TraitType,
			Value:     attr.Value,
		})
	}
	return out
}

// ListByOwner 列出指定钱包持有的房晚
//
// 合约没有按持有人的查询入口，这里对全量快照做本地过滤。
func (s *RoomDayService) ListByOwner(ctx context.Context, wallet string, status models.RoomStatus) (*SearchResult, error) {
	if !utils.ValidateWalletAddress(wallet) {
		return nil, errors.ErrWalletInvalid
	}
	if status > models.RoomStatusAll {
		return nil, errors.ErrInvalidParams.WithMessage("无效的状态")
	}

	snapshot, err := s.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}

	matched := make([]models.EnrichedRoomDay, 0)
	for _, item := range snapshot.Items {
		if !strings.EqualFold(item.Owner, wallet) {
			continue
		}
		if status != models.RoomStatusAll && item.Status != status {
			continue
		}
		matched = append(matched, models.EnrichedRoomDay{RoomDay: item})
	}

	return &SearchResult{
		Items:         matched,
		Total:         len(matched),
		ParseFailures: snapshot.ParseFailures,
		Unverified:    snapshot.Unverified,
		FetchedAt:     snapshot.FetchedAt,
	}, nil
}

// parseDateRange 校验日期区间，返回规范化的 YYYY-MM-DD 字符串
func parseDateRange(startDate, endDate string) (string, string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return "", "", errors.ErrDateRangeInvalid.WithError(err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return "", "", errors.ErrDateRangeInvalid.WithError(err)
	}
	if start.After(end) {
		return "", "", errors.ErrDateRangeInvalid
	}
	return start.Format("2006-01-02"), end.Format("2006-01-02"), nil
}

// parsePriceRange 解析价格区间，空串表示不限
func parsePriceRange(minWei, maxWei string) (*big.Int, *big.Int, error) {
	var minPrice, maxPrice *big.Int
	var err error

	if minWei != "" {
		minPrice, err = utils.ParseWei(minWei)
		if err != nil {
			return nil, nil, errors.ErrPriceRangeInvalid.WithError(err)
		}
	}
	if maxWei != "" {
		maxPrice, err = utils.ParseWei(maxWei)
		if err != nil {
			return nil, nil, errors.ErrPriceRangeInvalid.WithError(err)
		}
	}
	if minPrice != nil && maxPrice != nil && minPrice.Cmp(maxPrice) > 0 {
		return nil, nil, errors.ErrPriceRangeInvalid
	}
	return minPrice, maxPrice, nil
}
