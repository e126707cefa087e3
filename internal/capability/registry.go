// Package capability 管理可被编排器调用的能力：
// 注册、按稳定顺序列出、参数校验和派发。
package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-match-go/internal/tracing"
)

var registryTracer = otel.Tracer("resume-match-go/capability")

// ErrUnknownCapability 调用了目录中不存在的能力
var ErrUnknownCapability = errors.New("unknown capability")

// ValidationError 参数校验失败。校验失败的调用不会到达底层能力。
type ValidationError struct {
	Capability string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for capability %q: %s", e.Capability, e.Reason)
}

// Entry 目录中的一条能力：名称、描述、参数声明和底层实现
type Entry struct {
	Name string
	Desc string
	// Params 参数声明，派发前据此做严格校验
	Params map[string]*schema.ParameterInfo
	Tool   tool.InvokableTool
}

// ToolInfo 导出eino格式的工具元信息，供规划模型绑定
func (e *Entry) ToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        e.Name,
		Desc:        e.Desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(e.Params),
	}
}

// Source 能力目录来源。本地组装和远程目录服务都实现此接口。
type Source interface {
	// Capabilities 返回当前可用的能力条目
	Capabilities(ctx context.Context) ([]*Entry, error)
}

// Registry 能力注册表。目录快照带缓存，失效后下次访问时重新拉取。
type Registry struct {
	source Source

	mu      sync.RWMutex
	entries []*Entry // 按名称排序的快照
	byName  map[string]*Entry
	loaded  bool
}

// NewRegistry 创建注册表，目录在首次访问时加载
func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// snapshot 返回当前目录快照，必要时从来源重新加载
func (r *Registry) snapshot(ctx context.Context) ([]*Entry, map[string]*Entry, error) {
	r.mu.RLock()
	if r.loaded {
		entries, byName := r.entries, r.byName
		r.mu.RUnlock()
		return entries, byName, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.entries, r.byName, nil
	}

	raw, err := r.source.Capabilities(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("加载能力目录失败: %w", err)
	}

	entries := make([]*Entry, len(raw))
	copy(entries, raw)
	// 名称排序保证列出顺序稳定，与来源返回顺序无关
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	byName := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}

	r.entries, r.byName, r.loaded = entries, byName, true
	return entries, byName, nil
}

// Invalidate 丢弃缓存的目录快照，下次访问时重新加载
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.entries, r.byName = nil, nil
}

// List 按稳定顺序返回全部能力条目
func (r *Registry) List(ctx context.Context) ([]*Entry, error) {
	entries, _, err := r.snapshot(ctx)
	return entries, err
}

// ToolInfos 按稳定顺序返回全部能力的工具元信息
func (r *Registry) ToolInfos(ctx context.Context) ([]*schema.ToolInfo, error) {
	entries, _, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]*schema.ToolInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, e.ToolInfo())
	}
	return infos, nil
}

// Invoke 校验参数后派发一次能力调用。
// 未知能力返回ErrUnknownCapability，参数不合法返回*ValidationError，
// 两种情况底层能力都不会被调用。
func (r *Registry) Invoke(ctx context.Context, name string, argsJSON string) (string, error) {
	ctx, span := registryTracer.Start(ctx, "capability.invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("capability.name", name),
		attribute.String("capability.args", tracing.SafeCapabilityArgs(argsJSON)),
	)

	_, byName, err := r.snapshot(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCapability)
		return "", err
	}

	entry, ok := byName[name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownCapability, name)
		tracing.RecordError(span, err, tracing.ErrorTypeCapability)
		return "", err
	}

	if err := validateArgs(entry, argsJSON); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return "", err
	}

	output, err := entry.Tool.InvokableRun(ctx, argsJSON)
	if err != nil {
		tracing.RecordCapabilityFailure(span, name, err)
		return "", err
	}
	return output, nil
}

// validateArgs 按条目声明的参数schema做严格校验：
// 必填参数必须出现，未声明的键一律拒绝，类型必须匹配声明。
func validateArgs(entry *Entry, argsJSON string) error {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return &ValidationError{Capability: entry.Name, Reason: fmt.Sprintf("arguments are not a JSON object: %v", err)}
	}

	for key := range args {
		if _, declared := entry.Params[key]; !declared {
			return &ValidationError{Capability: entry.Name, Reason: fmt.Sprintf("unknown argument %q", key)}
		}
	}

	for key, info := range entry.Params {
		raw, present := args[key]
		if !present {
			if info.Required {
				return &ValidationError{Capability: entry.Name, Reason: fmt.Sprintf("missing required argument %q", key)}
			}
			continue
		}
		if err := checkType(key, info, raw); err != nil {
			return &ValidationError{Capability: entry.Name, Reason: err.Error()}
		}
	}
	return nil
}

func checkType(key string, info *schema.ParameterInfo, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("argument %q is not valid JSON: %v", key, err)
	}

	switch info.Type {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("argument %q must be a string", key)
		}
	case "number", "integer":
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("argument %q must be a number", key)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", key)
		}
	case "array":
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("argument %q must be an array", key)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object", key)
		}
	}
	return nil
}
