// Package admin 管理端 HTTP Handler
package admin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/handler"
	"github.com/dumeirei/hotel-token-backend/internal/common/response"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
	roomdayService "github.com/dumeirei/hotel-token-backend/internal/service/roomday"
)

// RoomDayHandler 房晚通证管理处理器
type RoomDayHandler struct {
	roomDayService *roomdayService.RoomDayService
	receiptRepo    *repository.ReceiptRepository
	failureRepo    *repository.ParseFailureRepository
}

// NewRoomDayHandler 创建房晚通证管理处理器
func NewRoomDayHandler(
	roomDaySvc *roomdayService.RoomDayService,
	receiptRepo *repository.ReceiptRepository,
	failureRepo *repository.ParseFailureRepository,
) *RoomDayHandler {
	return &RoomDayHandler{
		roomDayService: roomDaySvc,
		receiptRepo:    receiptRepo,
		failureRepo:    failureRepo,
	}
}

// Mint 批量铸造房晚通证
// @Summary 批量铸造房晚通证
// @Tags 管理-房晚
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body roomdayService.MintRequest true "请求参数"
// @Success 200 {object} response.Response{data=roomdayService.MintResult}
// @Router /admin/rooms/mint [post]
func (h *RoomDayHandler) Mint(c *gin.Context) {
	adminID, ok := handler.RequireAdminID(c)
	if !ok {
		return
	}

	var req roomdayService.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.AdminID = adminID

	result, err := h.roomDayService.Mint(c.Request.Context(), &req)
	if err != nil {
		// 超时结果未知，流水号随错误一起返回便于跟踪补查结论
		if result != nil && result.ReceiptNo != "" {
			appErr := errors.GetAppError(err)
			response.ErrorWithData(c, appErr.Code, appErr.Message, result)
			return
		}
		handler.HandleError(c, err)
		return
	}

	response.Success(c, result)
}

// RefreshSnapshot 强制刷新链上快照
// @Summary 强制刷新房晚快照
// @Tags 管理-房晚
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /admin/rooms/refresh [post]
func (h *RoomDayHandler) RefreshSnapshot(c *gin.Context) {
	snapshot, err := h.roomDayService.Snapshot(c.Request.Context(), true)
	if handler.HandleError(c, err) {
		return
	}
	h.roomDayService.ClearUnverified(c.Request.Context())

	response.Success(c, gin.H{
		"total":          len(snapshot.Items),
		"parse_failures": snapshot.ParseFailures,
		"fetched_at":     snapshot.FetchedAt,
	})
}

// ListReceipts 分页查询链上交易流水
// @Summary 查询链上交易流水
// @Tags 管理-房晚
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param status query string false "状态 pending/confirmed/reverted/timeout"
// @Param method query string false "合约方法"
// @Param user_id query int false "用户ID"
// @Param tx_hash query string false "交易哈希"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/receipts [get]
func (h *RoomDayHandler) ListReceipts(c *gin.Context) {
	p := handler.BindPagination(c)

	filters := map[string]interface{}{
		"status":  c.Query("status"),
		"method":  c.Query("method"),
		"tx_hash": c.Query("tx_hash"),
	}
	if userID, ok := handler.ParseQueryID(c, "user_id", "用户"); !ok {
		return
	} else if userID != nil {
		filters["user_id"] = *userID
	}
	if start, end, ok := handler.ParseQueryDateRange(c); !ok {
		return
	} else {
		if start != nil {
			filters["start_time"] = *start
		}
		if end != nil {
			filters["end_time"] = *end
		}
	}

	list, total, err := h.receiptRepo.List(c.Request.Context(), p.GetOffset(), p.PageSize, filters)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// GetReceipt 按流水号查询交易流水
// @Summary 查询单条交易流水
// @Tags 管理-房晚
// @Produce json
// @Security Bearer
// @Param receipt_no path string true "流水号"
// @Success 200 {object} response.Response{data=models.TxReceipt}
// @Router /admin/receipts/{receipt_no} [get]
func (h *RoomDayHandler) GetReceipt(c *gin.Context) {
	receiptNo := c.Param("receipt_no")
	if receiptNo == "" {
		response.BadRequest(c, "请提供流水号")
		return
	}

	receipt, err := h.receiptRepo.GetByReceiptNo(c.Request.Context(), receiptNo)
	if err != nil {
		response.NotFound(c, "流水不存在")
		return
	}
	response.Success(c, receipt)
}

// ListParseFailures 分页查询解析失败审计
// @Summary 查询链上解析失败审计
// @Tags 管理-房晚
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param source query string false "来源 getAllRoomDays/getTotals"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /admin/parse-failures [get]
func (h *RoomDayHandler) ListParseFailures(c *gin.Context) {
	p := handler.BindPagination(c)

	list, total, err := h.failureRepo.List(c.Request.Context(), p.GetOffset(), p.PageSize, c.Query("source"))
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// DashboardOverview 运营概览
//
// 汇总链上库存分布、流水状态分布与近 24 小时解析失败数。
// @Summary 获取运营概览
// @Tags 管理-房晚
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /admin/dashboard/overview [get]
func (h *RoomDayHandler) DashboardOverview(c *gin.Context) {
	ctx := c.Request.Context()

	receiptSummary := make(map[string]int64, 4)
	for _, status := range []string{
		models.TxStatusPending,
		models.TxStatusConfirmed,
		models.TxStatusReverted,
		models.TxStatusTimeout,
	} {
		count, err := h.receiptRepo.CountByStatus(ctx, status)
		if handler.HandleError(c, err) {
			return
		}
		receiptSummary[status] = count
	}

	recentFailures, err := h.failureRepo.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if handler.HandleError(c, err) {
		return
	}

	overview := gin.H{
		"receipts":              receiptSummary,
		"recent_parse_failures": recentFailures,
	}

	// 链上汇总属于尽力而为：节点不可用时仍返回本地统计
	if totals, err := h.roomDayService.Totals(ctx); err == nil {
		overview["inventory"] = totals.Summary
		overview["inventory_rows"] = totals.Items
	}

	response.Success(c, overview)
}

// RegisterRoutes 注册管理端路由
// mintGuard 为铸造接口的权限/限流中间件链，可为空
func (h *RoomDayHandler) RegisterRoutes(r *gin.RouterGroup, mintGuard ...gin.HandlerFunc) {
	rooms := r.Group("/rooms")
	{
		mintChain := append([]gin.HandlerFunc{}, mintGuard...)
		mintChain = append(mintChain, h.Mint)
		rooms.POST("/mint", mintChain...)
		rooms.POST("/refresh", h.RefreshSnapshot)
	}

	receipts := r.Group("/receipts")
	{
		receipts.GET("", h.ListReceipts)
		receipts.GET("/:receipt_no", h.GetReceipt)
	}

	r.GET("/parse-failures", h.ListParseFailures)
	r.GET("/dashboard/overview", h.DashboardOverview)
}
