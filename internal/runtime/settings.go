package runtime

import (
	"os"
	"strings"
	"sync"
)

// Settings 提供运行时设置项查询, 配置值优先, 环境变量兜底。
// 密钥类设置只应通过环境变量提供。
type Settings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSettings 从配置映射构造设置表。
func NewSettings(values map[string]string) *Settings {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Settings{values: copied}
}

// GetSetting 查询设置项。
func (s *Settings) GetSetting(name string) (string, bool) {
	if s != nil {
		s.mu.RLock()
		v, ok := s.values[name]
		s.mu.RUnlock()
		if ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	return "", false
}

// SetSetting 写入或覆盖设置项。
func (s *Settings) SetSetting(name, value string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[name] = value
	s.mu.Unlock()
}
