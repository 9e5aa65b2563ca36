package roomday

import (
	"context"
	"fmt"
	"time"

	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

// TotalsResult 全量聚合统计
//
// Summary 是按状态汇总的便捷视图，明细在 Items。
type TotalsResult struct {
	Items         []models.RoomDayTotal `json:"items"`
	Summary       map[string]int64      `json:"summary"`
	ParseFailures int                   `json:"parse_failures"`
	FetchedAt     time.Time             `json:"fetched_at"`
}

// Totals 读取合约维护的按日期/状态/房型聚合统计
func (s *RoomDayService) Totals(ctx context.Context) (*TotalsResult, error) {
	start := time.Now()
	records, err := s.chain.GetTotals(ctx)
	if err != nil {
		metrics.RecordContractCallGlobal("getTotals", "error", time.Since(start))
		return nil, mapChainError(err)
	}
	metrics.RecordContractCallGlobal("getTotals", "success", time.Since(start))

	result := &TotalsResult{
		Items:     make([]models.RoomDayTotal, 0, len(records)),
		Summary:   map[string]int64{"AVAILABLE": 0, "BOOKED": 0, "USED": 0},
		FetchedAt: time.Now(),
	}

	var failures []*models.ParseFailure
	for i, rec := range records {
		total, convErr := convertTotal(&rec)
		if convErr != nil {
			result.ParseFailures++
			metrics.RecordParseFailureGlobal()
			failures = append(failures, &models.ParseFailure{
				Source:    "getTotals",
				ItemIndex: i,
				RawData: utils.StringPtr(fmt.Sprintf("ymd=%d-%d-%d status=%d type=%d count=%v",
					rec.Year, rec.Month, rec.Day, rec.Status, rec.RoomType, rec.Count)),
				Reason: convErr.Error(),
			})
			continue
		}
		result.Items = append(result.Items, *total)
		result.Summary[total.Status.String()] += total.Count
	}

	if len(failures) > 0 {
		logger.Warn("统计记录解析失败",
			logger.Module("roomday"),
			logger.Action("getTotals"))
		if s.failureRepo != nil {
			if err := s.failureRepo.CreateBatch(ctx, failures); err != nil {
				logger.Error("记录解析失败审计失败", logger.Module("roomday"))
			}
		}
	}

	return result, nil
}

// convertTotal 将链上统计行转为业务模型
func convertTotal(rec *roomtoken.TotalRecord) (*models.RoomDayTotal, error) {
	if rec.Count == nil {
		return nil, fmt.Errorf("nil count")
	}
	if !rec.Count.IsInt64() || rec.Count.Sign() < 0 {
		return nil, fmt.Errorf("invalid count %v", rec.Count)
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

	return &models.RoomDayTotal{
		Year:     int(rec.Year),
		Month:    int(rec.Month),
		Day:      int(rec.Day),
		Status:   status,
		RoomType: roomType,
		Count:    rec.Count.Int64(),
	}, nil
}
