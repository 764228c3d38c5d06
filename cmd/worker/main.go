package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/database"
	"github.com/qs3c/datafair_server/internal/pkg/email"
	"github.com/qs3c/datafair_server/internal/pkg/pubsub"
	"github.com/qs3c/datafair_server/internal/pkg/queue"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/service"
	"github.com/qs3c/datafair_server/internal/worker"
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

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 Queue 和 Pub/Sub
	payoutQueue := queue.NewQueue(rdb, cfg.Queue.PayoutQueue)
	publisher := pubsub.NewPublisher(rdb)

	userRepo := repository.NewUserRepository(db)
	payoutService := service.NewPayoutService(
		db,
		repository.NewPayoutRepository(db),
		repository.NewEarningRepository(db),
		userRepo,
		repository.NewActivityRepository(db),
		payoutQueue,
		publisher,
		cfg,
	)

	gateway := worker.NewGateway(&cfg.Payout)
	processor := worker.NewProcessor(payoutService, userRepo, gateway, email.NewService(&cfg.Email), cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 补偿入队失败或上次退出时丢失的任务
	if n, err := processor.Recover(ctx, payoutQueue); err != nil {
		log.Printf("Failed to requeue pending payouts: %v", err)
	} else if n > 0 {
		log.Printf("Requeued %d pending payouts", n)
	}

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)
	processor.Run(ctx, payoutQueue, cfg.Queue.MaxWorkers)

	rdb.Close()
	log.Println("Worker shutdown complete")
}
