package capability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"resume-match-go/internal/logger"
)

// LocalSource 进程内组装的能力目录
type LocalSource struct {
	entries []*Entry
}

// NewLocalSource 用给定条目创建本地目录
func NewLocalSource(entries ...*Entry) *LocalSource {
	return &LocalSource{entries: entries}
}

// Capabilities 实现 Source 接口
func (s *LocalSource) Capabilities(ctx context.Context) ([]*Entry, error) {
	return s.entries, nil
}

// --- 远程目录 ---

// remoteCapability 远程目录返回的能力描述
type remoteCapability struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Parameters  map[string]remoteParameter `json:"parameters"`
}

type remoteParameter struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// RemoteSource 访问进程外能力服务的目录客户端。
// 目录通过 GET /capabilities 获取，调用通过 POST /capabilities/{name}/invoke 派发，
// 目录变更通过 GET /events 的SSE流通知。
type RemoteSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteSource 创建远程目录客户端
func NewRemoteSource(baseURL string, httpClient *http.Client) *RemoteSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Capabilities 实现 Source 接口，从远程服务拉取目录
func (s *RemoteSource) Capabilities(ctx context.Context) ([]*Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/capabilities", nil)
	if err != nil {
		return nil, fmt.Errorf("创建目录请求失败: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, NewInvokeError("catalog", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, NewInvokeError("catalog", ErrUnavailable,
			fmt.Errorf("目录请求返回状态 %s: %s", resp.Status, string(body)))
	}

	var caps []remoteCapability
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return nil, fmt.Errorf("解析目录响应失败: %w", err)
	}

	entries := make([]*Entry, 0, len(caps))
	for _, c := range caps {
		params := make(map[string]*schema.ParameterInfo, len(c.Parameters))
		for name, p := range c.Parameters {
			params[name] = &schema.ParameterInfo{
				Type:     schema.DataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
			}
		}
		entries = append(entries, &Entry{
			Name:   c.Name,
			Desc:   c.Description,
			Params: params,
			Tool:   &remoteTool{source: s, name: c.Name},
		})
	}
	return entries, nil
}

// remoteTool 把远程能力包装成 tool.InvokableTool
type remoteTool struct {
	source *RemoteSource
	name   string
}

func (t *remoteTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: t.name}, nil
}

func (t *remoteTool) InvokableRun(ctx context.Context, argsJSON string, opts ...tool.Option) (string, error) {
	url := fmt.Sprintf("%s/capabilities/%s/invoke", t.source.baseURL, t.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(argsJSON))
	if err != nil {
		return "", fmt.Errorf("创建调用请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.source.httpClient.Do(req)
	if err != nil {
		return "", NewInvokeError(t.name, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取调用响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewInvokeError(t.name, ErrUnavailable,
			fmt.Errorf("调用返回状态 %s: %s", resp.Status, string(body)))
	}

	var out struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("解析调用响应失败: %w", err)
	}
	return out.Output, nil
}

var _ tool.InvokableTool = (*remoteTool)(nil)

// WatchChanges 订阅远程目录的SSE变更流，收到变更事件时使注册表缓存失效。
// 连接断开后按固定间隔重连，直到ctx取消。阻塞调用，通常放在独立goroutine里。
func (s *RemoteSource) WatchChanges(ctx context.Context, registry *Registry, retryInterval time.Duration) {
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}

	for {
		if err := s.streamEvents(ctx, registry); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("能力目录变更流断开，稍后重连")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryInterval):
		}
	}
}

func (s *RemoteSource) streamEvents(ctx context.Context, registry *Registry) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// SSE是长连接，这里不使用带Timeout的客户端
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("变更流返回状态 %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") && strings.TrimSpace(strings.TrimPrefix(line, "event:")) == "catalog.changed" {
			logger.Info().Msg("能力目录已变更，使缓存失效")
			registry.Invalidate()
		}
	}
	return scanner.Err()
}
