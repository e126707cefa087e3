package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"resume-match-go/internal/logger"
)

const (
	defaultGroqAPIURL    = "https://api.groq.com/openai/v1/chat/completions"
	defaultGroqModelName = "llama-3.3-70b-versatile"
)

// --- OpenAI兼容的请求/响应结构 ---

type openAITool struct {
	Type     string         `json:"type"` // 固定为 "function"
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Parameters JSON Schema，由工具的ParamsOneOf导出
	Parameters json.RawMessage `json:"parameters"`
}

type openAIChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	Tools       []openAITool      `json:"tools,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type openAIToolCallData struct {
	Id       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIMessage struct {
	Role      string               `json:"role"`
	Content   *string              `json:"content"`
	ToolCalls []openAIToolCallData `json:"tool_calls,omitempty"`
}

type openAIChatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAICompletionResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
}

// GroqChatModel 实现 model.ToolCallingChatModel，走Groq的OpenAI兼容接口。
// 任何提供同样chat/completions协议的供应商都可复用，只需换API URL。
type GroqChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	boundTools  []openAITool
}

// GroqOption GroqChatModel 的可选配置
type GroqOption func(*GroqChatModel)

// WithTemperature 设置采样温度
func WithTemperature(t float64) GroqOption {
	return func(m *GroqChatModel) { m.temperature = t }
}

// WithMaxTokens 设置单次生成的token上限
func WithMaxTokens(n int) GroqOption {
	return func(m *GroqChatModel) { m.maxTokens = n }
}

// WithHTTPClient 替换底层HTTP客户端，测试时指向本地假服务
func WithHTTPClient(c *http.Client) GroqOption {
	return func(m *GroqChatModel) { m.httpClient = c }
}

// NewGroqChatModel 创建Groq聊天模型客户端
func NewGroqChatModel(apiKey string, modelName string, apiURL string, opts ...GroqOption) (*GroqChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultGroqModelName
	}
	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = defaultGroqAPIURL
	}

	m := &GroqChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{},
		boundTools: make([]openAITool, 0),
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info().Str("api_url", url).Str("model", mn).Msg("初始化Groq LLM客户端")
	return m, nil
}

// Generate 实现 model.ToolCallingChatModel 接口
func (g *GroqChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	reqPayload := openAIChatCompletionRequest{
		Model:       g.modelName,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	if len(g.boundTools) > 0 {
		reqPayload.Tools = g.boundTools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var openAIResp openAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &openAIResp); err != nil {
		return nil, fmt.Errorf("反序列化API响应失败: %w", err)
	}
	if len(openAIResp.Choices) == 0 {
		return nil, fmt.Errorf("API返回空choices: %s", string(bodyBytes))
	}

	apiMessage := openAIResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(apiMessage.Role),
		Content: responseContent,
	}
	if resultMessage.Role == "" {
		resultMessage.Role = schema.RoleType("assistant")
	}

	if len(apiMessage.ToolCalls) > 0 {
		resultMessage.ToolCalls = make([]schema.ToolCall, len(apiMessage.ToolCalls))
		for i, tc := range apiMessage.ToolCalls {
			resultMessage.ToolCalls[i] = schema.ToolCall{
				ID: tc.Id,
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	return resultMessage, nil
}

// Stream 实现 model.ToolCallingChatModel 接口。编排器只用同步Generate。
func (g *GroqChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("GroqChatModel未实现Stream")
}

// WithTools 实现 model.ToolCallingChatModel 接口。
// 工具参数schema从ToolInfo的ParamsOneOf导出，不需要逐工具硬编码。
func (g *GroqChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound := make([]openAITool, 0, len(tools))
	for _, toolInfo := range tools {
		if toolInfo == nil {
			continue
		}

		params := json.RawMessage(`{"type":"object","properties":{}}`)
		if toolInfo.ParamsOneOf != nil {
			openapiSchema, err := toolInfo.ParamsOneOf.ToOpenAPIV3()
			if err != nil {
				return nil, fmt.Errorf("导出工具 %q 参数schema失败: %w", toolInfo.Name, err)
			}
			raw, err := json.Marshal(openapiSchema)
			if err != nil {
				return nil, fmt.Errorf("序列化工具 %q 参数schema失败: %w", toolInfo.Name, err)
			}
			params = raw
		}

		bound = append(bound, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        toolInfo.Name,
				Description: toolInfo.Desc,
				Parameters:  params,
			},
		})
	}

	clone := *g
	clone.boundTools = bound
	return &clone, nil
}

var _ model.ToolCallingChatModel = (*GroqChatModel)(nil)
