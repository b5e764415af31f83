package cache

import (
	"context"
	"encoding/json"
)

// 缓存键约定。两个工作流共享同一份缓存，键名保持与上游智能体运行时一致。
const (
	KeyUsedTrends      = "twitter/used_trends"
	KeyGeneratedTokens = "twitter/generated_tokens"
	KeyLaunchedTokens  = "twitter/launched_tokens"
	KeyTimeline        = "twitter/timeline"
)

// TraceKey 返回一次回复生成过程的可读追踪记录键。
func TraceKey(tweetID string) string {
	return "twitter/tweet_generation_" + tweetID + ".txt"
}

// ConnectionKey 返回智能体与某个用户之间连接记录的键。
func ConnectionKey(userID string) string {
	return "twitter/connection_" + userID
}

// MemoryKey 返回某个会话下持久化消息记录的键。
func MemoryKey(conversationID string) string {
	return "twitter/memories_" + conversationID
}

// Store 抽象两个工作流共享的键值缓存。
//
// 列表键一律通过 AppendJSON 原子追加，禁止读取-修改-写回整个列表，
// 以避免并发写者互相覆盖。
type Store interface {
	// GetJSON 读取并反序列化 key 对应的值。键不存在时返回 false。
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	// SetJSON 序列化并写入整值键。
	SetJSON(ctx context.Context, key string, value any) error
	// AppendJSON 将序列化后的元素原子地追加到列表键尾部。
	AppendJSON(ctx context.Context, key string, value any) error
	// ListJSON 返回列表键的全部元素（序列化形式，按追加顺序）。
	ListJSON(ctx context.Context, key string) ([][]byte, error)
	// SetString 写入纯文本键，用于人工排查的追踪记录。
	SetString(ctx context.Context, key, value string) error
	// GetString 读取纯文本键。键不存在时返回 false。
	GetString(ctx context.Context, key string) (string, bool, error)
	// Close 释放底层连接。
	Close() error
}

// ListStrings 是 ListJSON 的便捷包装，把列表元素还原为字符串切片。
// 无法按 JSON 字符串解析的元素按原始文本返回。
func ListStrings(ctx context.Context, store Store, key string) ([]string, error) {
	raw, err := store.ListJSON(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			s = string(item)
		}
		out = append(out, s)
	}
	return out, nil
}
