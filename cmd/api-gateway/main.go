// Package main 是应用程序入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/hotel-token-backend/internal/common/cache"
	"github.com/dumeirei/hotel-token-backend/internal/common/config"
	"github.com/dumeirei/hotel-token-backend/internal/common/database"
	"github.com/dumeirei/hotel-token-backend/internal/common/logger"
	"github.com/dumeirei/hotel-token-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-token-backend/internal/models"
	"github.com/dumeirei/hotel-token-backend/internal/scheduler"
	"github.com/dumeirei/hotel-token-backend/pkg/metadata"
	"github.com/dumeirei/hotel-token-backend/pkg/mqtt"
	"github.com/dumeirei/hotel-token-backend/pkg/roomtoken"
)

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()

	log.Info("Starting Hotel Token Backend",
		zap.String("version", "1.0.0"),
		zap.String("env", cfg.Server.Mode),
	)

	// 初始化链路追踪
	tracer, err := tracing.Init(&tracing.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Server.Mode,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.OperationLog{},
		&models.TxReceipt{},
		&models.ParseFailure{},
		&models.CheckIn{},
	); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// 初始化 Redis 连接
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Redis connected successfully")

	// 初始化合约客户端
	chainCtx, chainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	chainClient, err := roomtoken.NewClient(chainCtx, &roomtoken.Config{
		RPCURL:          cfg.Chain.RPCURL,
		ChainID:         cfg.Chain.ChainID,
		ContractAddress: cfg.Chain.ContractAddress,
		OperatorKey:     cfg.Chain.OperatorKey,
		CallTimeout:     cfg.Chain.CallTimeoutDuration(),
		ConfirmTimeout:  cfg.Chain.ConfirmTimeoutDuration(),
	})
	chainCancel()
	if err != nil {
		log.Fatal("Failed to connect to chain", zap.Error(err))
	}
	defer chainClient.Close()
	log.Info("Chain connected successfully",
		zap.String("contract", cfg.Chain.ContractAddress),
		zap.Int64("chain_id", cfg.Chain.ChainID),
	)

	// 初始化元数据客户端
	metadataClient := metadata.NewClient(&metadata.Config{
		BaseURL: cfg.Metadata.BaseURL,
		Timeout: cfg.Metadata.TimeoutDuration(),
	})

	// 初始化门锁通知（可选能力）
	var notifier *mqtt.Notifier
	if cfg.MQTT.Enabled {
		mqttClient := mqtt.NewClient(&mqtt.Config{
			Broker:        cfg.MQTT.Broker,
			Port:          cfg.MQTT.Port,
			ClientID:      cfg.MQTT.ClientID,
			Username:      cfg.MQTT.Username,
			Password:      cfg.MQTT.Password,
			CleanSession:  cfg.MQTT.CleanSession,
			QoS:           cfg.MQTT.QoS,
			KeepAlive:     cfg.MQTT.KeepAlive,
			AutoReconnect: cfg.MQTT.AutoReconnect,
		})
		if err := mqttClient.Connect(); err != nil {
			// 门锁通知是降级能力，连接失败不阻塞启动
			log.Warn("Failed to connect to MQTT broker", zap.Error(err))
		} else {
			defer mqttClient.Disconnect()
			notifier = mqtt.NewNotifier(mqttClient, cfg.MQTT.AckTimeoutDuration())
			log.Info("MQTT connected successfully", zap.String("broker", cfg.MQTT.Broker))
		}
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Mode == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 设置路由
	app := setupRouter(engine, cfg, log, db, redisClient, chainClient, metadataClient, notifier)

	// 启动后台任务：流水补查、快照对账、审计清理
	sched := scheduler.NewScheduler()
	taskHandler := scheduler.NewTaskHandler(app.receiptRepo, app.failureRepo, chainClient, app.roomDayService)
	reconcileInterval := time.Duration(cfg.Business.RoomDay.ReconcileMinutes) * time.Minute
	scheduler.SetupTasks(sched, taskHandler, reconcileInterval)
	sched.Start()
	defer sched.Stop()

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// 创建超时上下文用于优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 关闭数据库连接
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}

	log.Info("Server exited")
}
