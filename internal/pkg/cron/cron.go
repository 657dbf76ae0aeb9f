package cron

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/echonow/echonow_server/internal/pkg/logger"
)

// PremiumSweeper 清理到期会员
type PremiumSweeper interface {
	SweepExpiredPremium(now time.Time) (int64, error)
}

type Service struct {
	sweeper PremiumSweeper
	cron    *cron.Cron
	log     *logger.Logger
	mu      sync.Mutex
	running bool
}

// NewService 按 spec 注册会员到期清理任务，spec 支持标准五段式和 @every
func NewService(sweeper PremiumSweeper, spec string, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		sweeper: sweeper,
		cron:    cron.New(),
		log:     log.With("component", "cron"),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start 启动定时任务
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.log.Info("Cron service started", "jobs", len(s.cron.Entries()))
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Cron stop timed out")
	}
	s.log.Info("Cron service stopped")
}

func (s *Service) sweep() {
	if _, err := s.RunNow(); err != nil {
		s.log.Error("Premium sweep failed", "error", err)
	}
}

// RunNow 立即执行一次清理（用于测试或手动触发）
func (s *Service) RunNow() (int64, error) {
	start := time.Now()
	n, err := s.sweeper.SweepExpiredPremium(start)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("Premium sweep completed", "cleared", n, "duration_ms", time.Since(start).Milliseconds())
	}
	return n, nil
}
