package cache

import (
	"context"
	"encoding/json"
	"sync"

	xerrors "TrendMint/internal/errors"
)

// Memory 以内存方式实现 Store，主要用于测试与单机开发。
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	lists  map[string][][]byte
}

// NewMemory 创建一个内存缓存。
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		lists:  make(map[string][][]byte),
	}
}

// GetJSON 实现 Store 接口。
func (m *Memory) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "反序列化缓存值失败")
	}
	return true, nil
}

// SetJSON 实现 Store 接口。
func (m *Memory) SetJSON(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化缓存值失败")
	}
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
	return nil
}

// AppendJSON 实现 Store 接口。
func (m *Memory) AppendJSON(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化列表元素失败")
	}
	m.mu.Lock()
	m.lists[key] = append(m.lists[key], raw)
	m.mu.Unlock()
	return nil
}

// ListJSON 实现 Store 接口。
func (m *Memory) ListJSON(_ context.Context, key string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.lists[key]
	out := make([][]byte, len(items))
	for i, item := range items {
		clone := make([]byte, len(item))
		copy(clone, item)
		out[i] = clone
	}
	return out, nil
}

// SetString 实现 Store 接口。
func (m *Memory) SetString(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = []byte(value)
	m.mu.Unlock()
	return nil
}

// GetString 实现 Store 接口。
func (m *Memory) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	return string(raw), true, nil
}

// Close 实现 Store 接口。
func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
