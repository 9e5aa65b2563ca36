// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-token-backend/internal/common/config"
	"github.com/dumeirei/hotel-token-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-token-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/hotel-token-backend/internal/common/middleware"
	"github.com/dumeirei/hotel-token-backend/internal/common/qrcode"
	adminHandler "github.com/dumeirei/hotel-token-backend/internal/handler/admin"
	authHandler "github.com/dumeirei/hotel-token-backend/internal/handler/auth"
	roomdayHandler "github.com/dumeirei/hotel-token-backend/internal/handler/roomday"
	"github.com/dumeirei/hotel-token-backend/internal/middleware"
	"github.com/dumeirei/hotel-token-backend/internal/repository"
	adminService "github.com/dumeirei/hotel-token-backend/internal/service/admin"
	authService "github.com/dumeirei/hotel-token-backend/internal/service/auth"
	roomdayService "github.com/dumeirei/hotel-token-backend/internal/service/roomday"
	"github.com/dumeirei/hotel-token-backend/pkg/metadata"
	"github.com/dumeirei/hotel-token-backend/pkg/mqtt"
	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

// application 路由装配结果，供调度器等后续装配使用
type application struct {
	roomDayService *roomdayService.RoomDayService
	receiptRepo    *repository.ReceiptRepository
	failureRepo    *repository.ParseFailureRepository
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	chainClient *roomtoken.Client,
	metadataClient *metadata.Client,
	notifier *mqtt.Notifier,
) *application {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	// 初始化仓储
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	failureRepo := repository.NewParseFailureRepository(db)
	checkinRepo := repository.NewCheckInRepository(db)
	operationLogRepo := repository.NewOperationLogRepository(db)

	// nil 接口适配：通知能力未启用时彻底关闭
	var checkInNotifier roomdayService.CheckInNotifier
	if notifier != nil {
		checkInNotifier = notifier
	}

	// 初始化服务
	roomDaySvc := roomdayService.NewRoomDayService(
		chainClient,
		metadataClient,
		redisClient,
		checkInNotifier,
		receiptRepo,
		failureRepo,
		checkinRepo,
		qrcode.NewGenerator(qrcode.WithSize(cfg.Business.CheckIn.QRCodeSize)),
		&roomdayService.Options{
			PageSize:            int64(cfg.Chain.PageSize),
			MetadataConcurrency: cfg.Metadata.Concurrency,
			CacheExpire:         cfg.Business.RoomDay.CacheExpireDuration(),
			LockExpire:          cfg.Business.RoomDay.LockExpireDuration(),
			MintMaxRooms:        cfg.Business.RoomDay.MintMaxRooms,
			MintMaxDays:         cfg.Business.RoomDay.MintMaxDays,
		},
	)
	walletAuthSvc := authService.NewWalletAuthService(userRepo, redisClient, jwtManager)
	adminAuthSvc := adminService.NewAdminAuthService(adminRepo, jwtManager)
	permissionSvc := adminService.NewPermissionService(roleRepo, permissionRepo, adminRepo)

	// 初始化处理器
	authH := authHandler.NewHandler(walletAuthSvc)
	roomDayH := roomdayHandler.NewHandler(roomDaySvc, userRepo)
	adminAuthH := adminHandler.NewAuthHandler(adminAuthSvc)
	adminRoomDayH := adminHandler.NewRoomDayHandler(roomDaySvc, receiptRepo, failureRepo)
	adminPermissionH := adminHandler.NewPermissionHandler(permissionSvc)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS(nil))
	r.Use(middleware.AccessLog(logger))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.IPRateLimit(redisClient, cfg.RateLimit.RequestsPerSecond, time.Second))
	}
	if cfg.Tracing.Enabled {
		r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			SkipPaths:   []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
		}))
	}
	if cfg.Metrics.Enabled {
		r.Use(metrics.GetMetrics().Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 链上写操作限流
	txLimit := middleware.TxRateLimit(redisClient, cfg.RateLimit.TxPerMinute)

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口（无需认证）
		public := v1.Group("")
		{
			authH.RegisterRoutes(public)
			roomDayH.RegisterRoutes(public)
		}

		// 用户端接口（需要用户认证）
		user := v1.Group("")
		user.Use(middleware.UserAuth(jwtManager))
		{
			authH.RegisterProtectedRoutes(user)
			roomDayH.RegisterProtectedRoutes(user, txLimit)
		}

		// 管理后台接口
		admin := v1.Group("/admin")
		{
			adminAuthH.RegisterRoutes(admin)

			adminProtected := admin.Group("")
			adminProtected.Use(middleware.AdminAuth(jwtManager))
			adminProtected.Use(commonMiddleware.NewOperationLogger(operationLogRepo).Log())
			{
				adminAuthH.RegisterProtectedRoutes(adminProtected)
				adminRoomDayH.RegisterRoutes(adminProtected, middleware.RequireSuperAdmin(), txLimit)
				adminPermissionH.RegisterRoutes(adminProtected, middleware.RequireSuperAdmin())
			}
		}
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "接口不存在",
		})
	})

	return &application{
		roomDayService: roomDaySvc,
		receiptRepo:    receiptRepo,
		failureRepo:    failureRepo,
	}
}
