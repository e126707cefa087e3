package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse MockChatModel 的单次预设响应
type MockResponse struct {
	Content   string
	ToolCalls []schema.ToolCall
	Error     error
}

// MockChatModel 按脚本顺序返回响应的 model.ToolCallingChatModel 测试实现
type MockChatModel struct {
	mu               sync.Mutex
	responses        []MockResponse
	index            int
	ReceivedMessages [][]*schema.Message
}

// NewMockChatModel 创建按顺序返回预设响应的模拟模型
func NewMockChatModel(responses ...MockResponse) *MockChatModel {
	return &MockChatModel{
		responses:        responses,
		ReceivedMessages: make([][]*schema.Message, 0),
	}
}

// Generate 返回脚本中的下一条响应
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	received := make([]*schema.Message, len(input))
	copy(received, input)
	m.ReceivedMessages = append(m.ReceivedMessages, received)

	if m.index >= len(m.responses) {
		return nil, errors.New("mock model has run out of scripted responses")
	}
	resp := m.responses[m.index]
	m.index++

	if resp.Error != nil {
		return nil, resp.Error
	}

	msg := &schema.Message{
		Role:      schema.RoleType("assistant"),
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}
	return msg, nil
}

// Stream 模拟模型不支持流式
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not implemented in MockChatModel")
}

// WithTools 记录绑定的工具并返回自身
func (m *MockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// CallCount 已消费的响应条数
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

var _ model.ToolCallingChatModel = (*MockChatModel)(nil)
