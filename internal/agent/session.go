package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// SessionStore 会话历史存储接口。
// 历史为追加式的消息序列，单个会话只有一个写入方，绝不原地修改。
type SessionStore interface {
	// History 返回指定会话的全部历史。会话不存在时返回空切片。
	History(ctx context.Context, sessionID string) ([]*schema.Message, error)

	// Append 向会话历史追加消息
	Append(ctx context.Context, sessionID string, messages ...*schema.Message) error

	// Clear 清空会话历史。会话不存在时静默成功。
	Clear(ctx context.Context, sessionID string) error
}

// InMemorySessionStore SessionStore 的进程内实现，用于测试和单机部署。
// 进程重启后历史丢失。
type InMemorySessionStore struct {
	mu        sync.RWMutex
	histories map[string][]*schema.Message
}

// NewInMemorySessionStore 创建进程内会话存储
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		histories: make(map[string][]*schema.Message),
	}
}

// History 实现 SessionStore 接口
func (s *InMemorySessionStore) History(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[sessionID]
	if !ok {
		return []*schema.Message{}, nil
	}
	// 返回副本，避免调用方改动内部切片
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// Append 实现 SessionStore 接口
func (s *InMemorySessionStore) Append(ctx context.Context, sessionID string, messages ...*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("会话 %s 不能追加nil消息", sessionID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.histories[sessionID] = append(s.histories[sessionID], messages...)
	return nil
}

// Clear 实现 SessionStore 接口
func (s *InMemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.histories, sessionID)
	return nil
}
