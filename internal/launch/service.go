package launch

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "TrendMint/internal/errors"
	"TrendMint/pkg/logger"
)

// SubmitRequest 描述一次发射请求。Trend 为空时由处理器自行扫描热榜。
type SubmitRequest struct {
	ID    string
	Trend string
}

// Service 负责发射任务的创建与查询。
type Service struct {
	store      Store
	producer   Producer
	maxRetries int
}

// NewService 构造发射服务。
func NewService(store Store, producer Producer, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{store: store, producer: producer, maxRetries: maxRetries}
}

// Submit 创建一个新的发射任务并推送到队列。
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Launch, error) {
	if s.store == nil || s.producer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "发射服务未初始化")
	}

	launchID := strings.TrimSpace(req.ID)
	if launchID != "" {
		launch, err := s.store.Get(ctx, launchID)
		if err == nil {
			return launch, nil
		}
		if !stdErrors.Is(err, ErrLaunchNotFound) {
			return nil, err
		}
	} else {
		launchID = uuid.NewString()
	}

	launch := &Launch{
		ID:         launchID,
		Trend:      strings.TrimSpace(req.Trend),
		Status:     StatusPending,
		Attempts:   0,
		MaxRetries: s.maxRetries,
	}
	if err := s.store.Create(ctx, launch); err != nil {
		if stdErrors.Is(err, ErrLaunchConflict) {
			existing, getErr := s.store.Get(ctx, launchID)
			if getErr == nil {
				return existing, nil
			}
			if !stdErrors.Is(getErr, ErrLaunchNotFound) {
				return nil, getErr
			}
		}
		return nil, err
	}
	if err := s.producer.Publish(ctx, launchID); err != nil {
		logger.L().Error("发射任务入队失败", slog.Any("error", err), slog.String("launch_id", launchID))
		wrapped := xerrors.Wrap(CodeLaunchPublish, err, "发布发射任务到队列失败")
		_ = s.store.MarkFailed(ctx, launchID, CodeLaunchPublish, wrapped.Error(), true)
		return nil, wrapped
	}
	logger.Audit().Info("发射任务入队成功",
		slog.String("launch_id", launchID),
		slog.String("trend", launch.Trend),
		slog.Int("max_retries", launch.MaxRetries),
	)
	return launch, nil
}

// Get 返回指定发射任务的状态。
func (s *Service) Get(ctx context.Context, id string) (*Launch, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "发射存储未初始化")
	}
	return s.store.Get(ctx, id)
}

// List 返回符合过滤条件的发射任务列表。
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Launch, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "发射存储未初始化")
	}
	options := buildListOptions(opts)
	return s.store.List(ctx, options)
}

// Stats 返回符合过滤条件的发射统计信息。
func (s *Service) Stats(ctx context.Context, opts ...ListOption) (LaunchStats, error) {
	if s.store == nil {
		return LaunchStats{}, xerrors.New(xerrors.CodeInitializationFailure, "发射存储未初始化")
	}
	options := buildListOptions(opts)
	return s.store.Stats(ctx, options)
}

// Close 释放资源。
func (s *Service) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return err
		}
	}
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// WaitUntilCompleted 在指定超时时间内轮询发射任务状态。
func (s *Service) WaitUntilCompleted(ctx context.Context, id string, interval time.Duration) (*Launch, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		launch, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if launch.Status == StatusSucceeded || launch.Status == StatusFailed {
			return launch, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
