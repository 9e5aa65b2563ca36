package roomday

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/hotel-token-backend/internal/common/cache"
	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-token-backend/internal/common/qrcode"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
	"github.com/dumeirei/hotel-token-backend/pkg/metadata"
	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

// ChainBackend 合约后端
//
// 由 roomtoken.Client 实现，测试用内存假后端替换。
type ChainBackend interface {
	GetAllRoomDays(ctx context.Context, offset, limit int64) ([]roomtoken.RoomDayRecord, error)
	GetTotals(ctx context.Context) ([]roomtoken.TotalRecord, error)
	MintMultipleRoomDays(ctx context.Context, roomIDStart, roomIDEnd int64, startTs, endTs int64, roomType uint8, priceWei *big.Int) (*roomtoken.TxResult, error)
	TransferRoomDayMultiple(ctx context.Context, tokenIDs []int64, value *big.Int) (*roomtoken.TxResult, error)
	SetToUsed(ctx context.Context, tokenID int64) (*roomtoken.TxResult, error)
	TransactionReceipt(ctx context.Context, txHash string) (*roomtoken.TxResult, error)
}

// MetadataFetcher 元数据后端，由 metadata.Client 实现
type MetadataFetcher interface {
	Fetch(ctx context.Context, tokenID int64) (*metadata.Metadata, error)
}

// CheckInNotifier 门锁通知后端，由 mqtt.Notifier 实现
type CheckInNotifier interface {
	SendCheckInAsync(ctx context.Context, roomID, tokenID int64, date, guest string) (string, error)
}

// redisCmdable 服务使用的 Redis 命令子集，*redis.Client 满足该接口
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// Options 服务参数
type Options struct {
	PageSize            int64
	MetadataConcurrency int
	CacheExpire         time.Duration
	LockExpire          time.Duration
	MintMaxRooms        int
	MintMaxDays         int
}

// DefaultOptions 默认参数
func DefaultOptions() *Options {
	return &Options{
		PageSize:            200,
		MetadataConcurrency: 8,
		CacheExpire:         30 * time.Second,
		LockExpire:          3 * time.Minute,
		MintMaxRooms:        100,
		MintMaxDays:         90,
	}
}

// RoomDayService 房晚通证服务
//
// 链上状态是唯一事实来源：读路径带短期缓存，写路径成功后
// 只做乐观更新并打上未对账标记，由对账任务最终拉平。
type RoomDayService struct {
	chain       ChainBackend
	metadata    MetadataFetcher
	redis       redisCmdable
	notifier    CheckInNotifier
	receiptRepo *repository.ReceiptRepository
	failureRepo *repository.ParseFailureRepository
	checkinRepo *repository.CheckInRepository
	qr          *qrcode.Generator
	opts        *Options
}

// NewRoomDayService 创建房晚通证服务
//
// metadata、notifier、qr 允许为 nil，对应能力降级关闭。
func NewRoomDayService(
	chain ChainBackend,
	metadataClient MetadataFetcher,
	redisClient redisCmdable,
	notifier CheckInNotifier,
	receiptRepo *repository.ReceiptRepository,
	failureRepo *repository.ParseFailureRepository,
	checkinRepo *repository.CheckInRepository,
	qr *qrcode.Generator,
	opts *Options,
) *RoomDayService {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.MetadataConcurrency <= 0 {
		opts.MetadataConcurrency = 8
	}
	return &RoomDayService{
		chain:       chain,
		metadata:    metadataClient,
		redis:       redisClient,
		notifier:    notifier,
		receiptRepo: receiptRepo,
		failureRepo: failureRepo,
		checkinRepo: checkinRepo,
		qr:          qr,
		opts:        opts,
	}
}

// 缓存键
const (
	snapshotCacheKey  = cache.KeyPrefixRoomDay + "snapshot"
	unverifiedFlagKey = cache.KeyPrefixUnverified + "flag"
	cacheNameSnapshot = "roomday_snapshot"
	cacheNameMetadata = "roomday_metadata"
)

// tokenLockKey 单通证写锁键
func tokenLockKey(tokenID int64) string {
	return cache.KeyPrefixTokenLock + strconv.FormatInt(tokenID, 10)
}

// Snapshot 获取全量房晚快照，优先走缓存
func (s *RoomDayService) Snapshot(ctx context.Context, refresh bool) (*models.RoomDaySnapshot, error) {
	if !refresh && s.redis != nil {
		raw, err := s.redis.Get(ctx, snapshotCacheKey).Result()
		if err == nil {
			var snapshot models.RoomDaySnapshot
			if err := json.Unmarshal([]byte(raw), &snapshot); err == nil {
				metrics.RecordCacheHitGlobal(cacheNameSnapshot)
				snapshot.Unverified = s.hasUnverified(ctx)
				return &snapshot, nil
			}
		}
		metrics.RecordCacheMissGlobal(cacheNameSnapshot)
	}

	snapshot, err := s.fetchFromChain(ctx)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(snapshot); err == nil {
			if err := s.redis.Set(ctx, snapshotCacheKey, string(data), s.opts.CacheExpire).Err(); err != nil {
				logger.Warn("缓存房晚快照失败", logger.Module("roomday"))
			}
		}
	}

	snapshot.Unverified = s.hasUnverified(ctx)
	return snapshot, nil
}

// fetchFromChain 分页拉取全量链上记录
//
// 翻页直到返回不足一页为止；解析失败的记录被丢弃但必须计数。
func (s *RoomDayService) fetchFromChain(ctx context.Context) (*models.RoomDaySnapshot, error) {
	snapshot := &models.RoomDaySnapshot{
		Items:     make([]models.RoomDay, 0, s.opts.PageSize),
		FetchedAt: time.Now(),
	}

	var failures []*models.ParseFailure
	var offset int64
	for {
		start := time.Now()
		records, err := s.chain.GetAllRoomDays(ctx, offset, s.opts.PageSize)
		if err != nil {
			metrics.RecordContractCallGlobal("getAllRoomDays", "error", time.Since(start))
			return nil, mapChainError(err)
		}
		metrics.RecordContractCallGlobal("getAllRoomDays", "success", time.Since(start))

		for i, rec := range records {
			item, convErr := convertRecord(&rec)
			if convErr != nil {
				snapshot.ParseFailures++
				metrics.RecordParseFailureGlobal()
				failures = append(failures, &models.ParseFailure{
					Source:    "getAllRoomDays",
					ItemIndex: int(offset) + i,
					RawData:   utils.StringPtr(rawRecord(&rec)),
					Reason:    convErr.Error(),
				})
				continue
			}
			snapshot.Items = append(snapshot.Items, *item)
		}

		if int64(len(records)) < s.opts.PageSize {
			break
		}
		offset += int64(len(records))
	}

	if len(failures) > 0 {
		logger.Warn("链上记录解析失败",
			logger.Module("roomday"),
			logger.Action("getAllRoomDays"))
		if s.failureRepo != nil {
			if err := s.failureRepo.CreateBatch(ctx, failures); err != nil {
				logger.Error("记录解析失败审计失败", logger.Module("roomday"))
			}
		}
	}

	s.applyOwnerAttribution(ctx, snapshot)

	return snapshot, nil
}

// applyOwnerAttribution 用已确认的购买流水覆写托管持有人
//
// 转移交易由运营方密钥签名，链上持有人落在运营方地址，
// 真实买家记在交易流水里。回源后按流水还原归属，重新回到
// 可订状态的通证不覆写。
func (s *RoomDayService) applyOwnerAttribution(ctx context.Context, snapshot *models.RoomDaySnapshot) {
	if s.receiptRepo == nil {
		return
	}
	receipts, err := s.receiptRepo.ListConfirmedByMethod(ctx, models.TxMethodTransferMulti)
	if err != nil {
		logger.Warn("读取购买流水失败，持有人归属未覆写", logger.Module("roomday"))
		return
	}
	owners := make(map[int64]string)
	for _, receipt := range receipts {
		if receipt.Wallet == nil || *receipt.Wallet == "" {
			continue
		}
		for _, id := range receiptTokenIDs(receipt) {
			owners[id] = *receipt.Wallet
		}
	}
	if len(owners) == 0 {
		return
	}
	for i := range snapshot.Items {
		if snapshot.Items[i].Status == models.RoomStatusAvailable {
			continue
		}
		if wallet, ok := owners[snapshot.Items[i].TokenID]; ok {
			snapshot.Items[i].Owner = wallet
		}
	}
}

// receiptTokenIDs 从流水 JSON 字段还原通证列表
//
// 直接构造时元素是 int64，从数据库读出后是 float64。
func receiptTokenIDs(receipt *models.TxReceipt) []int64 {
	raw, ok := receipt.TokenIDs["token_ids"].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case int64:
			ids = append(ids, n)
		case float64:
			ids = append(ids, int64(n))
		case json.Number:
			if x, err := n.Int64(); err == nil {
				ids = append(ids, x)
			}
		}
	}
	return ids
}

// GetByTokenID 按通证 ID 获取单条房晚
func (s *RoomDayService) GetByTokenID(ctx context.Context, tokenID int64) (*models.RoomDay, error) {
	snapshot, err := s.Snapshot(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range snapshot.Items {
		if snapshot.Items[i].TokenID == tokenID {
			return &snapshot.Items[i], nil
		}
	}
	return nil, errors.ErrRoomDayNotFound
}

// freshByTokenID 绕过缓存回源取单条房晚
func (s *RoomDayService) freshByTokenID(ctx context.Context, tokenID int64) (*models.RoomDay, error) {
	snapshot, err := s.Snapshot(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range snapshot.Items {
		if snapshot.Items[i].TokenID == tokenID {
			return &snapshot.Items[i], nil
		}
	}
	return nil, errors.ErrRoomDayNotFound
}

// convertRecord 将链上记录转为业务模型
//
// 任何字段不可信都整条丢弃，宁缺毋假。
func convertRecord(rec *roomtoken.RoomDayRecord) (*models.RoomDay, error) {
	if rec.TokenId == nil || rec.RoomId == nil || rec.PricePerNight == nil || rec.Date == nil {
		return nil, fmt.Errorf("nil numeric field")
	}
	if !rec.TokenId.IsInt64() || !rec.RoomId.IsInt64() || !rec.Date.IsInt64() {
		return nil, fmt.Errorf("numeric field overflows int64")
	}
	roomID := rec.RoomId.Int64()
	if roomID < MinRoomID || roomID > MaxRoomID {
		return nil, fmt.Errorf("room id %d out of range", roomID)
	}
	if rec.Month < 1 || rec.Month > 12 || rec.Day < 1 || rec.Day > 31 {
		return nil, fmt.Errorf("invalid date %d-%d-%d", rec.Year, rec.Month, rec.Day)
	}
	status := models.RoomStatus(rec.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %d", rec.Status)
	}
	roomType := models.RoomType(rec.RoomType)
	if !roomType.Valid() {
		return nil, fmt.Errorf("unknown room type %d", rec.RoomType)
	}
	if rec.PricePerNight.Sign() < 0 {
		return nil, fmt.Errorf("negative price")
	}

	return &models.RoomDay{
		TokenID:   rec.TokenId.Int64(),
		RoomID:    roomID,
		Timestamp: rec.Date.Int64(),
		Year:      int(rec.Year),
		Month:     int(rec.Month),
		Day:       int(rec.Day),
		Date:      fmt.Sprintf("%04d-%02d-%02d", rec.Year, rec.Month, rec.Day),
		RoomType:  roomType,
		Status:    status,
		StatusStr: status.String(),
		TypeStr:   roomType.String(),
		PriceWei:  rec.PricePerNight.String(),
		PriceEth:  utils.FormatEther(rec.PricePerNight),
		Owner:     rec.Owner.Hex(),
	}, nil
}

// rawRecord 生成解析失败审计用的原始记录描述
func rawRecord(rec *roomtoken.RoomDayRecord) string {
	return fmt.Sprintf("tokenId=%v roomId=%v date=%v ymd=%d-%d-%d type=%d status=%d price=%v owner=%s",
		rec.TokenId, rec.RoomId, rec.Date, rec.Year, rec.Month, rec.Day,
		rec.RoomType, rec.Status, rec.PricePerNight, rec.Owner.Hex())
}

// hasUnverified 判断是否存在尚未对账的写操作
func (s *RoomDayService) hasUnverified(ctx context.Context) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, unverifiedFlagKey).Result()
	return err == nil && n > 0
}

// markUnverified 写操作成功后打未对账标记并刷新缓存快照
func (s *RoomDayService) markUnverified(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, unverifiedFlagKey, "1", s.opts.CacheExpire*4).Err(); err != nil {
		logger.Warn("设置未对账标记失败", logger.Module("roomday"))
	}
}

// ClearUnverified 清除未对账标记，由对账任务在缓存拉平后调用
func (s *RoomDayService) ClearUnverified(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, unverifiedFlagKey).Err(); err != nil {
		logger.Warn("清除未对账标记失败", logger.Module("roomday"))
	}
}

// InvalidateSnapshot 作废缓存快照，下一次读取强制回源
func (s *RoomDayService) InvalidateSnapshot(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, snapshotCacheKey, unverifiedFlagKey).Err(); err != nil {
		logger.Warn("作废快照缓存失败", logger.Module("roomday"))
	}
}

// updateCachedStatus 乐观更新缓存中若干通证的状态
//
// 只改本地缓存副本，链上事实由下一次对账拉平。
func (s *RoomDayService) updateCachedStatus(ctx context.Context, tokenIDs []int64, status models.RoomStatus, owner string) {
	if s.redis == nil {
		return
	}
	raw, err := s.redis.Get(ctx, snapshotCacheKey).Result()
	if err != nil {
		return
	}
	var snapshot models.RoomDaySnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return
	}

	idSet := make(map[int64]struct{}, len(tokenIDs))
	for _, id := range tokenIDs {
		idSet[id] = struct{}{}
	}
	for i := range snapshot.Items {
		if _, ok := idSet[snapshot.Items[i].TokenID]; !ok {
			continue
		}
		snapshot.Items[i].Status = status
		snapshot.Items[i].StatusStr = status.String()
		if owner != "" {
			snapshot.Items[i].Owner = owner
		}
	}
	snapshot.Unverified = true

	if data, err := json.Marshal(&snapshot); err == nil {
		s.redis.Set(ctx, snapshotCacheKey, string(data), s.opts.CacheExpire)
	}
	s.markUnverified(ctx)
}

// lockTokens 获取一组通证的写锁，任何一个已被占用则全部回退
func (s *RoomDayService) lockTokens(ctx context.Context, tokenIDs []int64, holder string) error {
	if s.redis == nil {
		return nil
	}
	acquired := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		key := tokenLockKey(id)
		ok, err := s.redis.SetNX(ctx, key, holder, s.opts.LockExpire).Result()
		if err != nil {
			if len(acquired) > 0 {
				s.redis.Del(ctx, acquired...)
			}
			return errors.ErrCacheError.WithError(err)
		}
		if !ok {
			if len(acquired) > 0 {
				s.redis.Del(ctx, acquired...)
			}
			return errors.ErrRoomDayLocked
		}
		acquired = append(acquired, key)
	}
	return nil
}

// unlockTokens 释放一组通证的写锁
func (s *RoomDayService) unlockTokens(ctx context.Context, tokenIDs []int64) {
	if s.redis == nil || len(tokenIDs) == 0 {
		return
	}
	keys := make([]string, len(tokenIDs))
	for i, id := range tokenIDs {
		keys[i] = tokenLockKey(id)
	}
	s.redis.Del(ctx, keys...)
}

// mapChainError 将链端错误映射为应用错误
func mapChainError(err error) error {
	switch {
	case stderrors.Is(err, roomtoken.ErrProviderUnavailable):
		return errors.ErrProviderUnavailable.WithError(err)
	case stderrors.Is(err, roomtoken.ErrInsufficientFunds):
		return errors.ErrInsufficientFunds.WithError(err)
	case stderrors.Is(err, roomtoken.ErrReverted):
		return errors.ErrTxReverted.WithError(err)
	case stderrors.Is(err, roomtoken.ErrConfirmTimeout):
		return errors.ErrTxConfirmTimeout.WithError(err)
	default:
		return errors.ErrContractCallFailed.WithError(err)
	}
}
