package launch

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "TrendMint/internal/errors"
)

// MemoryStore 以内存方式保存发射任务状态, 用于测试和 memory 驱动。
type MemoryStore struct {
	mu       sync.RWMutex
	launches map[string]*Launch
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{launches: make(map[string]*Launch)}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, launch *Launch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if launch == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "launch 不能为空")
	}
	if launch.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "发射任务 ID 不能为空")
	}
	if _, ok := m.launches[launch.ID]; ok {
		return ErrLaunchConflict
	}
	now := time.Now().Unix()
	if launch.CreatedAt == 0 {
		launch.CreatedAt = now
	}
	launch.UpdatedAt = now
	m.launches[launch.ID] = cloneLaunch(launch)
	return nil
}

// Get 返回发射任务。
func (m *MemoryStore) Get(_ context.Context, id string) (*Launch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	launch, ok := m.launches[id]
	if !ok {
		return nil, ErrLaunchNotFound
	}
	return cloneLaunch(launch), nil
}

// Claim 将任务状态更新为运行中。
func (m *MemoryStore) Claim(_ context.Context, id string) (*Launch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	launch, ok := m.launches[id]
	if !ok {
		return nil, ErrLaunchNotFound
	}
	switch launch.Status {
	case StatusSucceeded:
		return cloneLaunch(launch), ErrLaunchCompleted
	case StatusRunning:
		return cloneLaunch(launch), ErrLaunchConflict
	}
	if launch.Attempts >= launch.MaxRetries {
		return cloneLaunch(launch), ErrLaunchExhausted
	}
	launch.Status = StatusRunning
	launch.Attempts++
	launch.LastError = ""
	launch.ErrorCode = ""
	launch.UpdatedAt = time.Now().Unix()
	return cloneLaunch(launch), nil
}

// MarkSucceeded 记录成功结果。
func (m *MemoryStore) MarkSucceeded(_ context.Context, id string, result Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	launch, ok := m.launches[id]
	if !ok {
		return ErrLaunchNotFound
	}
	launch.Status = StatusSucceeded
	launch.Result = &result
	launch.LastError = ""
	launch.ErrorCode = ""
	launch.UpdatedAt = time.Now().Unix()
	return nil
}

// MarkFailed 标记任务失败。
func (m *MemoryStore) MarkFailed(_ context.Context, id string, code xerrors.Code, lastError string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	launch, ok := m.launches[id]
	if !ok {
		return ErrLaunchNotFound
	}
	launch.Status = StatusFailed
	launch.LastError = lastError
	launch.ErrorCode = string(code)
	launch.UpdatedAt = time.Now().Unix()
	return nil
}

// List 返回符合过滤条件的发射任务。
func (m *MemoryStore) List(_ context.Context, opts ListOptions) ([]*Launch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()

	results := make([]*Launch, 0, len(m.launches))
	for _, launch := range m.launches {
		if !matchesStatuses(launch, opts.Statuses) {
			continue
		}
		results = append(results, cloneLaunch(launch))
	}

	sort.Slice(results, func(i, j int) bool {
		if opts.Order == SortByUpdatedAsc {
			if results[i].UpdatedAt == results[j].UpdatedAt {
				return results[i].ID < results[j].ID
			}
			return results[i].UpdatedAt < results[j].UpdatedAt
		}
		if results[i].UpdatedAt == results[j].UpdatedAt {
			return results[i].ID > results[j].ID
		}
		return results[i].UpdatedAt > results[j].UpdatedAt
	})

	if opts.Offset >= len(results) {
		return []*Launch{}, nil
	}
	results = results[opts.Offset:]
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Stats 统计符合过滤条件的发射任务数量与更新时间范围。
func (m *MemoryStore) Stats(_ context.Context, opts ListOptions) (LaunchStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	opts.applyDefaults()

	stats := LaunchStats{}
	for _, launch := range m.launches {
		if !matchesStatuses(launch, opts.Statuses) {
			continue
		}
		stats.Total++
		switch launch.Status {
		case StatusPending:
			stats.Pending++
		case StatusRunning:
			stats.Running++
		case StatusSucceeded:
			stats.Succeeded++
		case StatusFailed:
			stats.Failed++
		}
		if launch.UpdatedAt > stats.NewestUpdatedAt {
			stats.NewestUpdatedAt = launch.UpdatedAt
		}
		if stats.OldestUpdatedAt == 0 || (launch.UpdatedAt != 0 && launch.UpdatedAt < stats.OldestUpdatedAt) {
			stats.OldestUpdatedAt = launch.UpdatedAt
		}
	}
	if stats.Total == 0 {
		stats.OldestUpdatedAt = 0
		stats.NewestUpdatedAt = 0
	}
	return stats, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

func matchesStatuses(launch *Launch, statuses []Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, status := range statuses {
		if launch.Status == status {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
