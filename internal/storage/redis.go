package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"resume-match-go/internal/config"
)

// ErrNotFound Redis中不存在指定的键
var ErrNotFound = redis.Nil

// Redis 键值存储：会话历史和入口限流计数
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端并验证连通性
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("Redis地址不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     orDefault(cfg.PoolSize, 10),
		MinIdleConns: orDefault(cfg.MinIdleConns, 2),
		DialTimeout:  time.Duration(orDefault(cfg.DialTimeoutSeconds, 5)) * time.Second,
		ReadTimeout:  time.Duration(orDefault(cfg.ReadTimeoutSeconds, 3)) * time.Second,
		WriteTimeout: time.Duration(orDefault(cfg.WriteTimeoutSeconds, 3)) * time.Second,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("启用Redis追踪失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// SessionTTL 会话历史的过期时间，0表示不过期
func (r *Redis) SessionTTL() time.Duration {
	if r.config.SessionExpireHours <= 0 {
		return 0
	}
	return time.Duration(r.config.SessionExpireHours) * time.Hour
}

const rateLimitKeyPrefix = "ratelimit:"

// AllowRequest 滑动窗口限流。窗口内同一调用方超过limit次则拒绝。
// Redis不可用时放行，限流不应成为单点。
func (r *Redis) AllowRequest(ctx context.Context, caller string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}

	key := rateLimitKeyPrefix + caller
	now := time.Now()
	windowStart := now.Add(-window)

	pipe := r.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("限流计数失败: %w", err)
	}

	// countCmd 统计的是本次请求加入前窗口内的数量
	return countCmd.Val() < int64(limit), nil
}
