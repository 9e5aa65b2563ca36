// Package roomday 提供房晚通证相关的 HTTP Handler
package roomday

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/handler"
	"github.com/dumeirei/hotel-token-backend/internal/common/response"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
	roomdayService "github.com/dumeirei/hotel-token-backend/internal/service/roomday"
)

// Handler 房晚通证处理器
type Handler struct {
	roomDayService *roomdayService.RoomDayService
	userRepo       *repository.UserRepository
}

// NewHandler 创建房晚通证处理器
func NewHandler(roomDaySvc *roomdayService.RoomDayService, userRepo *repository.UserRepository) *Handler {
	return &Handler{
		roomDayService: roomDaySvc,
		userRepo:       userRepo,
	}
}

// parseRoomType 解析房型查询参数，缺省为通配
func parseRoomType(c *gin.Context) (models.RoomType, bool) {
	raw := c.DefaultQuery("room_type", strconv.Itoa(int(models.RoomTypeAll)))
	v, err := strconv.ParseUint(raw, 10, 8)
	if err != nil || models.RoomType(v) > models.RoomTypeAll {
		response.BadRequest(c, "无效的房型")
		return 0, false
	}
	return models.RoomType(v), true
}

// requireWallet 解析当前用户并返回其钱包地址
func (h *Handler) requireWallet(c *gin.Context) (int64, string, bool) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return 0, "", false
	}
	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "用户不存在")
		return 0, "", false
	}
	return userID, user.WalletAddress, true
}

// ==================== 公开接口 ====================

// Search 检索可订房晚
// @Summary 检索可订房晚
// @Tags 房晚
// @Produce json
// @Param start_date query string true "开始日期 YYYY-MM-DD"
// @Param end_date query string true "结束日期 YYYY-MM-DD"
// @Param room_type query int false "房型 0标准 1豪华 2套房 3不限" default(3)
// @Param min_price_wei query string false "最低价（wei）"
// @Param max_price_wei query string false "最高价（wei）"
// @Param with_metadata query bool false "是否附带链下元数据"
// @Success 200 {object} response.Response{data=roomdayService.SearchResult}
// @Router /rooms/search [get]
func (h *Handler) Search(c *gin.Context) {
	roomType, ok := parseRoomType(c)
	if !ok {
		return
	}

	params := &roomdayService.SearchParams{
		StartDate:       c.Query("start_date"),
		EndDate:         c.Query("end_date"),
		RoomType:        roomType,
		MinPriceWei:     c.Query("min_price_wei"),
		MaxPriceWei:     c.Query("max_price_wei"),
		IncludeMetadata: c.Query("with_metadata") == "true",
	}

	result, err := h.roomDayService.SearchAvailable(c.Request.Context(), params)
	handler.MustSucceed(c, err, result)
}

// DeriveTokenID 按房间与日期推导通证编号
// @Summary 推导房晚通证编号
// @Tags 房晚
// @Produce json
// @Param room_id query int true "房间号 1-999"
// @Param date query string true "日期 YYYY-MM-DD"
// @Success 200 {object} response.Response
// @Router /rooms/token-id [get]
func (h *Handler) DeriveTokenID(c *gin.Context) {
	roomID, ok := handler.ParseRequiredQueryID(c, "room_id", "房间")
	if !ok {
		return
	}

	tokenID, err := roomdayService.DeriveTokenIDFromDate(c.Query("date"), roomID)
	if handler.HandleError(c, err) {
		return
	}

	response.Success(c, gin.H{
		"token_id": tokenID,
		"room_id":  roomID,
		"date":     c.Query("date"),
	})
}

// Totals 获取全量房晚状态汇总
// @Summary 获取房晚状态汇总
// @Tags 房晚
// @Produce json
// @Success 200 {object} response.Response{data=roomdayService.TotalsResult}
// @Router /rooms/totals [get]
func (h *Handler) Totals(c *gin.Context) {
	result, err := h.roomDayService.Totals(c.Request.Context())
	handler.MustSucceed(c, err, result)
}

// GetMetadata 获取房晚链下元数据
// @Summary 获取房晚链下元数据
// @Tags 房晚
// @Produce json
// @Param token_id path int true "通证编号"
// @Success 200 {object} response.Response{data=models.RoomDayMetadata}
// @Router /rooms/metadata/{token_id} [get]
func (h *Handler) GetMetadata(c *gin.Context) {
	tokenID, ok := handler.ParseParamID(c, "token_id", "通证")
	if !ok {
		return
	}

	meta, err := h.roomDayService.GetMetadata(c.Request.Context(), tokenID)
	handler.MustSucceed(c, err, meta)
}

// ==================== 用户接口 ====================

// ListMyRooms 列出当前用户持有的房晚
// @Summary 列出我的房晚
// @Tags 房晚
// @Produce json
// @Security Bearer
// @Param status query int false "状态 0可订 1已订 2已住 3不限" default(3)
// @Success 200 {object} response.Response{data=roomdayService.SearchResult}
// @Router /user/rooms [get]
func (h *Handler) ListMyRooms(c *gin.Context) {
	_, wallet, ok := h.requireWallet(c)
	if !ok {
		return
	}

	raw := c.DefaultQuery("status", strconv.Itoa(int(models.RoomStatusAll)))
	v, err := strconv.ParseUint(raw, 10, 8)
	if err != nil || models.RoomStatus(v) > models.RoomStatusAll {
		response.BadRequest(c, "无效的状态")
		return
	}

	result, err := h.roomDayService.ListByOwner(c.Request.Context(), wallet, models.RoomStatus(v))
	handler.MustSucceed(c, err, result)
}

// Purchase 购买一组房晚
// @Summary 购买房晚通证
// @Tags 房晚
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body roomdayService.PurchaseRequest true "请求参数"
// @Success 200 {object} response.Response{data=roomdayService.PurchaseResult}
// @Router /user/rooms/purchase [post]
func (h *Handler) Purchase(c *gin.Context) {
	userID, wallet, ok := h.requireWallet(c)
	if !ok {
		return
	}

	var req roomdayService.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.UserID = userID
	req.Wallet = wallet

	result, err := h.roomDayService.Purchase(c.Request.Context(), &req)
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

// Redeem 核销房晚（入住）
// @Summary 核销房晚
// @Tags 房晚
// @Accept json
// @Produce json
// @Security Bearer
// @Param token_id path int true "通证编号"
// @Param request body roomdayService.RedeemRequest true "请求参数"
// @Success 200 {object} response.Response{data=roomdayService.RedeemResult}
// @Router /user/rooms/{token_id}/redeem [post]
func (h *Handler) Redeem(c *gin.Context) {
	userID, wallet, ok := h.requireWallet(c)
	if !ok {
		return
	}

	tokenID, ok := handler.ParseParamID(c, "token_id", "通证")
	if !ok {
		return
	}

	var req roomdayService.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.UserID = userID
	req.Wallet = wallet
	req.TokenID = tokenID

	result, err := h.roomDayService.Redeem(c.Request.Context(), &req)
	if err != nil {
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

// ListMyCheckIns 列出当前用户的核销记录
// @Summary 列出我的核销记录
// @Tags 房晚
// @Produce json
// @Security Bearer
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response
// @Router /user/checkins [get]
func (h *Handler) ListMyCheckIns(c *gin.Context) {
	userID, ok := handler.RequireUserID(c)
	if !ok {
		return
	}

	p := handler.BindPagination(c)
	list, total, err := h.roomDayService.ListCheckIns(c.Request.Context(), userID, p.GetOffset(), p.PageSize)
	handler.MustSucceedPage(c, err, list, total, p.Page, p.PageSize)
}

// ==================== 路由注册 ====================

// RegisterRoutes 注册公开路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.GET("/search", h.Search)
		rooms.GET("/token-id", h.DeriveTokenID)
		rooms.GET("/totals", h.Totals)
		rooms.GET("/metadata/:token_id", h.GetMetadata)
	}
}

// RegisterProtectedRoutes 注册需要用户认证的路由
// txLimit 为链上写接口的限流中间件，可为 nil
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, txLimit gin.HandlerFunc) {
	user := r.Group("/user")
	{
		user.GET("/rooms", h.ListMyRooms)
		user.GET("/checkins", h.ListMyCheckIns)

		if txLimit != nil {
			user.POST("/rooms/purchase", txLimit, h.Purchase)
			user.POST("/rooms/:token_id/redeem", txLimit, h.Redeem)
		} else {
			user.POST("/rooms/purchase", h.Purchase)
			user.POST("/rooms/:token_id/redeem", h.Redeem)
		}
	}
}
