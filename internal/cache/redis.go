package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	xerrors "TrendMint/internal/errors"
)

// RedisConfig 描述共享缓存的 Redis 连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// Redis 基于 go-redis 实现 Store。列表键使用 RPUSH 原子追加，
// 多个进程实例并发写 used_trends/launched_tokens 时不会丢失更新。
type Redis struct {
	client *redis.Client
}

// NewRedis 创建 Redis 缓存实例并验证连通性。
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &Redis{client: client}, nil
}

// GetJSON 实现 Store 接口。
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取缓存失败")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "反序列化缓存值失败")
	}
	return true, nil
}

// SetJSON 实现 Store 接口。
func (r *Redis) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化缓存值失败")
	}
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入缓存失败")
	}
	return nil
}

// AppendJSON 实现 Store 接口。
func (r *Redis) AppendJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化列表元素失败")
	}
	if err := r.client.RPush(ctx, key, raw).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "追加列表元素失败")
	}
	return nil
}

// ListJSON 实现 Store 接口。
func (r *Redis) ListJSON(ctx context.Context, key string) ([][]byte, error) {
	values, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取列表失败")
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out, nil
}

// SetString 实现 Store 接口。
func (r *Redis) SetString(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入文本键失败")
	}
	return nil
}

// GetString 实现 Store 接口。
func (r *Redis) GetString(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, xerrors.Wrap(xerrors.CodeCacheFailure, err, "读取文本键失败")
	}
	return value, true, nil
}

// Close 关闭 Redis 连接。
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

var _ Store = (*Redis)(nil)
