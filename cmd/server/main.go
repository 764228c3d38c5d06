package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/api"
	"github.com/qs3c/datafair_server/internal/api/handler"
	"github.com/qs3c/datafair_server/internal/database"
	"github.com/qs3c/datafair_server/internal/pkg/cron"
	"github.com/qs3c/datafair_server/internal/pkg/email"
	"github.com/qs3c/datafair_server/internal/pkg/pubsub"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
	"github.com/qs3c/datafair_server/internal/pkg/ws"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化 Queue 和 Pub/Sub
	payoutQueue := queue.NewQueue(rdb, cfg.Queue.PayoutQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)
	emailService := email.NewService(&cfg.Email)

	// 初始化 WebSocket Hub，转发账本事件
	wsHub := ws.NewHub()
	go func() {
		if err := subscriber.Subscribe(ctx, wsHub.DeliverLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Ledger subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	qualificationRepo := repository.NewQualificationRepository(db)
	earningRepo := repository.NewEarningRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	dataTypeRepo := repository.NewDataTypeRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// 初始化 Service
	earningService := service.NewEarningService(db, earningRepo, payoutRepo, permissionRepo, activityRepo, userRepo, publisher, cfg)
	authService := service.NewAuthService(userRepo, earningService, emailService, cfg)
	userService := service.NewUserService(db, userRepo, responseRepo, earningRepo, payoutRepo, permissionRepo)
	catalogService := service.NewCatalogService(surveyRepo, responseRepo)
	qualificationService := service.NewQualificationService(surveyRepo, qualificationRepo)
	lifecycleService := service.NewLifecycleService(db, surveyRepo, responseRepo, earningRepo, activityRepo, qualificationService, publisher, cfg)
	payoutService := service.NewPayoutService(db, payoutRepo, earningRepo, userRepo, activityRepo, payoutQueue, publisher, cfg)
	dataService := service.NewDataPermissionService(dataTypeRepo, permissionRepo, earningRepo)
	activityService := service.NewActivityService(activityRepo)

	// 定时任务
	scheduler := cron.NewService(lifecycleService, earningService, cfg)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	surveyHandler := handler.NewSurveyHandler(catalogService, qualificationService, lifecycleService)
	responseHandler := handler.NewResponseHandler(lifecycleService)
	earningHandler := handler.NewEarningHandler(earningService, payoutService)
	dataHandler := handler.NewDataHandler(dataService)
	activityHandler := handler.NewActivityHandler(activityService)
	adminHandler := handler.NewAdminHandler(catalogService, payoutService, earningService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		surveyHandler,
		responseHandler,
		earningHandler,
		dataHandler,
		activityHandler,
		adminHandler,
		websocketHandler,
		healthHandler,
		authService,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	scheduler.Stop()
	cancel()
	rdb.Close()

	log.Println("Server shutdown complete")
}
