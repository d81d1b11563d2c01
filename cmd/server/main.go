package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"pisqre/backend/config"
	"pisqre/backend/internal/api/handler"
	"pisqre/backend/internal/api/middleware"
	"pisqre/backend/internal/api/router"
	"pisqre/backend/internal/repository"
	"pisqre/backend/internal/service"
	"pisqre/backend/pkg/database"
	"pisqre/backend/pkg/jwt"
	applogger "pisqre/backend/pkg/logger"
	"pisqre/backend/pkg/mail"
	"pisqre/backend/pkg/metrics"
	"pisqre/backend/pkg/redis"
	"pisqre/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PISQRE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("require_verification", cfg.Workflow.RequireVerification),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级运行，黑名单与限流不可用）
	var (
		tokens  service.TokenStore
		checker middleware.TokenChecker
		limiter middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
	} else {
		tokens, checker, limiter = rdb, rdb, rdb
	}

	// 5. 附件存储：配置 mongo.uri 时使用 GridFS，否则仅保存在内存中
	var (
		files       storage.FileStore
		mongoClient *mongo.Client
	)
	if cfg.Mongo.URI != "" {
		mongoClient, err = storage.NewMongoClient(&cfg.Mongo, logger)
		if err != nil {
			logger.Fatal("MongoDB 连接失败", zap.Error(err))
		}
		files = storage.NewGridFSStore(mongoClient.Database(cfg.Mongo.Database), cfg.Mongo.Bucket)
	} else {
		logger.Warn("未配置 mongo.uri，附件仅保存在内存中")
		files = storage.NewMemoryStore()
	}

	// 6. 邮件（可选）
	var mailer service.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSender(&cfg.Mail, logger)
	}

	// 7. 依赖注入: Repository → Service → Handler
	m := metrics.New()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, service.Deps{
		JWT:     jwtMgr,
		Tokens:  tokens,
		Files:   files,
		Mailer:  mailer,
		Metrics: m,
	}, logger)
	h := handler.NewHandler(svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:     jwtMgr,
		Tokens:  checker,
		Limiter: limiter,
		Metrics: m,
		Ping:    sqlDB.PingContext,
		Logger:  logger,
	})

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Warn("MongoDB 断开异常", zap.Error(err))
		}
	}

	logger.Info("服务器已关闭")
}
