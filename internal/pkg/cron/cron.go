package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/qs3c/datafair_server/config"
)

// jobTimeout 单次任务的最长执行时间
const jobTimeout = 10 * time.Minute

// StaleSweeper 放弃长时间未更新的答卷
type StaleSweeper interface {
	AbandonStale(ctx context.Context, olderThan time.Duration, dryRun bool) (int, error)
}

// DataSharingGenerator 发放月度数据共享收益
type DataSharingGenerator interface {
	GenerateDataSharing(ctx context.Context) (int, error)
}

type Service struct {
	cron        *cron.Cron
	sweeper     StaleSweeper
	generator   DataSharingGenerator
	abandonSpec string
	sharingSpec string
	staleAfter  time.Duration
}

func NewService(sweeper StaleSweeper, generator DataSharingGenerator, cfg *config.Config) *Service {
	logger := cron.PrintfLogger(log.Default())
	return &Service{
		cron:        cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		sweeper:     sweeper,
		generator:   generator,
		abandonSpec: cfg.Survey.AbandonSchedule,
		sharingSpec: cfg.Earnings.DataSharingSchedule,
		staleAfter:  time.Duration(cfg.Survey.AbandonAfterHours) * time.Hour,
	}
}

// Start 注册并启动定时任务，表达式非法时返回错误
func (s *Service) Start() error {
	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.abandonSpec, s.runAbandonSweep); err != nil {
			return fmt.Errorf("invalid abandon schedule %q: %w", s.abandonSpec, err)
		}
	}
	if s.generator != nil {
		if _, err := s.cron.AddFunc(s.sharingSpec, s.runDataSharing); err != nil {
			return fmt.Errorf("invalid data sharing schedule %q: %w", s.sharingSpec, err)
		}
	}

	s.cron.Start()
	log.Printf("Cron service started (abandon=%q, data_sharing=%q)", s.abandonSpec, s.sharingSpec)
	return nil
}

// Stop 停止调度并等待运行中的任务结束
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Cron service stopped")
}

func (s *Service) runAbandonSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.sweeper.AbandonStale(ctx, s.staleAfter, false); err != nil {
		log.Printf("Abandon sweep failed: %v", err)
	}
}

func (s *Service) runDataSharing() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.generator.GenerateDataSharing(ctx); err != nil {
		log.Printf("Data sharing generation failed: %v", err)
	}
}

// RunNow 立即执行全部任务（用于测试或手动触发）
func (s *Service) RunNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log.Println("Manual cron run triggered...")
	if s.sweeper != nil {
		if _, err := s.sweeper.AbandonStale(ctx, s.staleAfter, false); err != nil {
			return err
		}
	}
	if s.generator != nil {
		if _, err := s.generator.GenerateDataSharing(ctx); err != nil {
			return err
		}
	}
	return nil
}
