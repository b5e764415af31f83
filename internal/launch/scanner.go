package launch

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	xerrors "TrendMint/internal/errors"
	"TrendMint/pkg/logger"
)

// ScannerConfig 控制热点扫描的节奏。
type ScannerConfig struct {
	// Interval 为两次扫描之间的基础间隔。
	Interval time.Duration
	// Jitter 为附加的随机抖动上限。
	Jitter time.Duration
}

func (c *ScannerConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
}

// Scanner 周期性地提交热点扫描发射任务。
type Scanner struct {
	service *Service
	cfg     ScannerConfig
	log     *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewScanner 构造 Scanner。
func NewScanner(service *Service, cfg ScannerConfig) (*Scanner, error) {
	if service == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "service 不能为空")
	}
	cfg.applyDefaults()
	return &Scanner{
		service: service,
		cfg:     cfg,
		log:     logger.Named("launch.scanner"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *Scanner) nextDelay() time.Duration {
	delay := s.cfg.Interval
	if s.cfg.Jitter > 0 {
		s.rngMu.Lock()
		delay += time.Duration(s.rng.Int63n(int64(s.cfg.Jitter)))
		s.rngMu.Unlock()
	}
	return delay
}

// Run 持续提交扫描任务, 直到上下文取消。
// 任何一次提交失败只记录日志, 不会中断循环。
func (s *Scanner) Run(ctx context.Context) error {
	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		launch, err := s.service.Submit(ctx, SubmitRequest{})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("提交扫描任务失败", slog.Any("error", err))
		} else {
			s.log.Info("已提交热点扫描任务", slog.String("launch_id", launch.ID))
		}

		timer.Reset(s.nextDelay())
	}
}
