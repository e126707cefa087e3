package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore SessionStore 的Redis实现，历史跨进程存活。
// 每个会话对应一个List，消息按JSON追加到尾部。
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration // 0 表示历史不过期
}

// NewRedisSessionStore 创建Redis会话存储并校验连通性
func NewRedisSessionStore(client *redis.Client, keyPrefix string, ttl time.Duration) (*RedisSessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis客户端不能为空")
	}
	if keyPrefix == "" {
		keyPrefix = "session:"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接检查失败: %w", err)
	}

	return &RedisSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (s *RedisSessionStore) buildKey(sessionID string) string {
	return s.keyPrefix + sessionID
}

// History 实现 SessionStore 接口
func (s *RedisSessionStore) History(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	key := s.buildKey(sessionID)

	serialized, err := s.client.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话 %s 历史失败: %w", sessionID, err)
	}

	messages := make([]*schema.Message, 0, len(serialized))
	for _, sm := range serialized {
		var msg schema.Message
		if err := json.Unmarshal([]byte(sm), &msg); err != nil {
			return nil, fmt.Errorf("反序列化会话 %s 消息失败: %w", sessionID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// Append 实现 SessionStore 接口
func (s *RedisSessionStore) Append(ctx context.Context, sessionID string, messages ...*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key := s.buildKey(sessionID)

	pipe := s.client.TxPipeline()
	for _, message := range messages {
		if message == nil {
			return fmt.Errorf("会话 %s 不能追加nil消息", sessionID)
		}
		serialized, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("序列化会话 %s 消息失败: %w", sessionID, err)
		}
		pipe.RPush(ctx, key, serialized)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("追加会话 %s 消息失败: %w", sessionID, err)
	}
	return nil
}

// Clear 实现 SessionStore 接口
func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.buildKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("清空会话 %s 历史失败: %w", sessionID, err)
	}
	return nil
}
