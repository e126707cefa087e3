package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DecisionKind 规划决策的种类
type DecisionKind int

const (
	// DecisionCallCapability 调用一个能力
	DecisionCallCapability DecisionKind = iota
	// DecisionFinish 产出最终摘要并结束运行
	DecisionFinish
)

// Decision 规划器的一条带标签的决策。
// Kind为DecisionCallCapability时Capability/Arguments有效，
// 为DecisionFinish时Summary有效。
type Decision struct {
	Kind       DecisionKind
	Capability string
	// Arguments 能力调用参数的JSON文本
	Arguments string
	Summary   string
	// Raw 产生该决策的原始助手消息，回写会话历史时使用
	Raw *schema.Message
}

// Planner 规划器接口：给定会话历史和可用能力，决定下一步动作。
// 编排不变量由编排器代码保证，规划器只负责提议。
type Planner interface {
	Decide(ctx context.Context, history []*schema.Message, tools []*schema.ToolInfo) (*Decision, error)
}

// LLMPlanner 把规划委托给带工具调用的聊天模型
type LLMPlanner struct {
	chatModel model.ToolCallingChatModel
}

// NewLLMPlanner 创建LLM规划器
func NewLLMPlanner(chatModel model.ToolCallingChatModel) *LLMPlanner {
	return &LLMPlanner{chatModel: chatModel}
}

// Decide 实现 Planner 接口。
// 模型返回结构化工具调用时取第一个作为能力调用决策，否则视为最终摘要。
func (p *LLMPlanner) Decide(ctx context.Context, history []*schema.Message, tools []*schema.ToolInfo) (*Decision, error) {
	boundModel := p.chatModel
	if len(tools) > 0 {
		var err error
		boundModel, err = p.chatModel.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("绑定工具到规划模型失败: %w", err)
		}
	}

	response, err := boundModel.Generate(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("规划调用失败: %w", err)
	}

	if len(response.ToolCalls) > 0 {
		tc := response.ToolCalls[0]
		args := tc.Function.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		return &Decision{
			Kind:       DecisionCallCapability,
			Capability: tc.Function.Name,
			Arguments:  args,
			Raw:        response,
		}, nil
	}

	return &Decision{
		Kind:    DecisionFinish,
		Summary: response.Content,
		Raw:     response,
	}, nil
}
