package launch

import (
	"context"

	xerrors "TrendMint/internal/errors"
)

// Store 抽象了发射任务状态的持久化接口。
type Store interface {
	Create(ctx context.Context, launch *Launch) error
	Get(ctx context.Context, id string) (*Launch, error)
	Claim(ctx context.Context, id string) (*Launch, error)
	MarkSucceeded(ctx context.Context, id string, result Record) error
	MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, terminal bool) error
	List(ctx context.Context, opts ListOptions) ([]*Launch, error)
	Stats(ctx context.Context, opts ListOptions) (LaunchStats, error)
	Close() error
}

// LaunchStats 聚合发射任务状态的统计信息, 用于状态接口和健康检查。
type LaunchStats struct {
	Total           int   `json:"total"`
	Pending         int   `json:"pending"`
	Running         int   `json:"running"`
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	OldestUpdatedAt int64 `json:"oldest_updated_at,omitempty"`
	NewestUpdatedAt int64 `json:"newest_updated_at,omitempty"`
}
