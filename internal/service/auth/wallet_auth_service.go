// Package auth 提供认证服务
package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/hotel-token-backend/internal/common/cache"
	"github.com/dumeirei/hotel-token-backend/internal/common/errors"
	"github.com/dumeirei/hotel-token-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/utils"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
)

// redisCmdable 服务使用的 Redis 命令子集，*redis.Client 满足该接口
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// WalletAuthService 钱包签名认证服务
//
// 登录即注册：钱包地址是唯一身份，首次验签通过时自动建档。
// 挑战串（nonce）一次一用，防止签名重放。
type WalletAuthService struct {
	userRepo   *repository.UserRepository
	redis      redisCmdable
	jwtManager *jwt.Manager
	nonceTTL   time.Duration
}

// NewWalletAuthService 创建钱包认证服务
func NewWalletAuthService(userRepo *repository.UserRepository, redisClient redisCmdable, jwtManager *jwt.Manager) *WalletAuthService {
	return &WalletAuthService{
		userRepo:   userRepo,
		redis:      redisClient,
		jwtManager: jwtManager,
		nonceTTL:   5 * time.Minute,
	}
}

// NonceResponse 挑战串响应
type NonceResponse struct {
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expires_in"`
}

// WalletLoginRequest 钱包登录请求
type WalletLoginRequest struct {
	Wallet    string `json:"wallet" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	IP        string `json:"-"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User      *models.User   `json:"user"`
	TokenPair *jwt.TokenPair `json:"token"`
}

// nonceKey 挑战串缓存键
func nonceKey(wallet string) string {
	return cache.KeyPrefixSession + "nonce:" + strings.ToLower(wallet)
}

// signMessage 生成待签名文本
func signMessage(nonce string) string {
	return fmt.Sprintf("欢迎登录酒店房晚通证平台。\n\n本次登录挑战串：%s", nonce)
}

// IssueNonce 为钱包签发登录挑战串
func (s *WalletAuthService) IssueNonce(ctx context.Context, wallet string) (*NonceResponse, error) {
	if !utils.ValidateWalletAddress(wallet) {
		return nil, errors.ErrWalletInvalid
	}

	nonce := uuid.New().String()
	if err := s.redis.Set(ctx, nonceKey(wallet), nonce, s.nonceTTL).Err(); err != nil {
		return nil, errors.ErrCacheError.WithError(err)
	}

	return &NonceResponse{
		Nonce:     nonce,
		Message:   signMessage(nonce),
		ExpiresIn: int64(s.nonceTTL / time.Second),
	}, nil
}

// Login 校验钱包签名并签发令牌
func (s *WalletAuthService) Login(ctx context.Context, req *WalletLoginRequest) (*LoginResponse, error) {
	if !utils.ValidateWalletAddress(req.Wallet) {
		return nil, errors.ErrWalletInvalid
	}

	nonce, err := s.redis.Get(ctx, nonceKey(req.Wallet)).Result()
	if err != nil {
		return nil, errors.ErrTokenInvalid.WithMessage("挑战串不存在或已过期")
	}

	recovered, err := recoverSigner(signMessage(nonce), req.Signature)
	if err != nil {
		return nil, errors.ErrTokenInvalid.WithMessage("签名校验失败").WithError(err)
	}
	if !strings.EqualFold(recovered, req.Wallet) {
		return nil, errors.ErrTokenInvalid.WithMessage("签名与钱包地址不符")
	}

	// 挑战串一次一用
	s.redis.Del(ctx, nonceKey(req.Wallet))

	user, err := s.userRepo.GetOrCreateByWallet(ctx, req.Wallet)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if user.Status != models.UserStatusActive {
		return nil, errors.ErrAccountDisabled
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(user.ID, jwt.UserTypeUser, "")
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	if err := s.userRepo.UpdateLoginInfo(ctx, user.ID); err != nil {
		logger.Warn("更新登录时间失败", logger.Module("auth"), logger.UserID(user.ID))
	}

	logger.Info("钱包登录成功",
		logger.Module("auth"),
		logger.UserID(user.ID),
		logger.Wallet(user.WalletAddress))

	return &LoginResponse{User: user, TokenPair: tokenPair}, nil
}

// RefreshToken 刷新令牌对
func (s *WalletAuthService) RefreshToken(refreshToken string) (*jwt.TokenPair, error) {
	tokenPair, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, errors.ErrTokenRefreshFail.WithError(err)
	}
	return tokenPair, nil
}

// recoverSigner 从 personal_sign 签名恢复签名人地址
func recoverSigner(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("invalid signature length %d", len(sig))
	}

	// MetaMask 等钱包的 v 值为 27/28，恢复时归一化到 0/1
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}
