package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/qs3c/datafair_server/config"
	"github.com/qs3c/datafair_server/internal/database"
	"github.com/qs3c/datafair_server/internal/pkg/pubsub"
	"github.com/qs3c/datafair_server/internal/repository"
	"github.com/qs3c/datafair_server/internal/service"
)

var (
	dryRun          = flag.Bool("dry-run", true, "Dry run mode, only report stale responses")
	olderThan       = flag.Int("older-than", 0, "Hours without progress before a response is abandoned (0 = config value)")
	generateSharing = flag.Bool("generate-sharing", false, "Also credit this month's data sharing earnings")
)

func main() {
	flag.Parse()

	log.Println("Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis 可选，不可用时不推送通知
	var publisher service.LedgerPublisher
	if rdb, err := database.NewRedis(&cfg.Redis); err != nil {
		log.Printf("Warning: redis unavailable, ledger events disabled: %v", err)
	} else {
		defer rdb.Close()
		publisher = pubsub.NewPublisher(rdb)
	}

	surveyRepo := repository.NewSurveyRepository(db)
	earningRepo := repository.NewEarningRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	lifecycleService := service.NewLifecycleService(
		db,
		surveyRepo,
		repository.NewResponseRepository(db),
		earningRepo,
		activityRepo,
		service.NewQualificationService(surveyRepo, repository.NewQualificationRepository(db)),
		publisher,
		cfg,
	)

	hours := *olderThan
	if hours <= 0 {
		hours = cfg.Survey.AbandonAfterHours
	}

	ctx := context.Background()

	log.Printf("Abandoning responses without progress for %d hours...", hours)
	n, err := lifecycleService.AbandonStale(ctx, time.Duration(hours)*time.Hour, *dryRun)
	if err != nil {
		log.Fatalf("Failed to abandon stale responses: %v", err)
	}
	if *dryRun {
		log.Printf("Would abandon %d responses", n)
	} else {
		log.Printf("Abandoned %d responses", n)
	}

	if *generateSharing {
		if *dryRun {
			log.Println("Skipping data sharing generation in dry-run mode")
			return
		}
		earningService := service.NewEarningService(
			db,
			earningRepo,
			repository.NewPayoutRepository(db),
			repository.NewPermissionRepository(db),
			activityRepo,
			repository.NewUserRepository(db),
			publisher,
			cfg,
		)
		credited, err := earningService.GenerateDataSharing(ctx)
		if err != nil {
			log.Fatalf("Failed to generate data sharing earnings: %v", err)
		}
		log.Printf("Credited %d data sharing earnings", credited)
	}

	log.Println("Cleanup complete")
}
