// Package auth 提供认证相关的 HTTP Handler
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-token-backend/internal/common/handler"
	"github.com/dumeirei/hotel-token-backend/internal/common/response"
	authService "github.com/dumeirei/hotel-token-backend/internal/service/auth"
)

// Handler 钱包认证处理器
type Handler struct {
	walletAuthService *authService.WalletAuthService
}

// NewHandler 创建认证处理器
func NewHandler(walletAuthSvc *authService.WalletAuthService) *Handler {
	return &Handler{
		walletAuthService: walletAuthSvc,
	}
}

// NonceRequest 挑战串请求
type NonceRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// IssueNonce 签发登录挑战串
// @Summary 签发钱包登录挑战串
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body NonceRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.NonceResponse}
// @Router /auth/nonce [post]
func (h *Handler) IssueNonce(c *gin.Context) {
	var req NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.walletAuthService.IssueNonce(c.Request.Context(), req.Wallet)
	handler.MustSucceed(c, err, result)
}

// Login 钱包签名登录
// @Summary 钱包签名登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body authService.WalletLoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req authService.WalletLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.IP = c.ClientIP()

	result, err := h.walletAuthService.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tokenPair, err := h.walletAuthService.RefreshToken(req.RefreshToken)
	handler.MustSucceed(c, err, tokenPair)
}

// Logout 退出登录
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	// 当前设计：依赖 JWT 自然过期机制，无需 token 黑名单
	response.Success(c, nil)
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		// 公开接口
		auth.POST("/nonce", h.IssueNonce)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
	}
}

// RegisterProtectedRoutes 注册需要认证的路由
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
	}
}
