package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordKind 调用记录的种类
type RecordKind string

const (
	// RecordKindCall 能力调用的发起记录
	RecordKindCall RecordKind = "call"
	// RecordKindResult 能力调用的返回记录
	RecordKindResult RecordKind = "result"
)

// RecordStatus 返回记录的状态
type RecordStatus string

const (
	RecordStatusOK        RecordStatus = "ok"
	RecordStatusFailed    RecordStatus = "failed"
	RecordStatusCancelled RecordStatus = "cancelled"
)

// ToolInvocationRecord 一条能力调用轨迹记录。
// 每次派发的调用恰好产生两条：一条call，一条result（成功、失败或取消）。
type ToolInvocationRecord struct {
	ID         string       `json:"id"`
	Kind       RecordKind   `json:"kind"`
	Capability string       `json:"capability"`
	// Arguments 调用参数的JSON文本，仅call记录携带
	Arguments string `json:"arguments,omitempty"`
	// Output 能力输出，仅成功的result记录携带
	Output string `json:"output,omitempty"`
	// Failure 失败描述，仅失败/取消的result记录携带
	Failure   string       `json:"failure,omitempty"`
	Status    RecordStatus `json:"status,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Trace 单次运行的调用轨迹，按派发顺序追加，只增不改
type Trace struct {
	records []ToolInvocationRecord
}

// NewTrace 创建空轨迹
func NewTrace() *Trace {
	return &Trace{records: make([]ToolInvocationRecord, 0, 8)}
}

// AppendCall 追加一条调用发起记录
func (t *Trace) AppendCall(capability string, argsJSON string) {
	t.records = append(t.records, ToolInvocationRecord{
		ID:         uuid.NewString(),
		Kind:       RecordKindCall,
		Capability: capability,
		Arguments:  argsJSON,
		Timestamp:  time.Now(),
	})
}

// AppendResult 追加一条成功返回记录
func (t *Trace) AppendResult(capability string, output string) {
	t.records = append(t.records, ToolInvocationRecord{
		ID:         uuid.NewString(),
		Kind:       RecordKindResult,
		Capability: capability,
		Output:     output,
		Status:     RecordStatusOK,
		Timestamp:  time.Now(),
	})
}

// AppendFailure 追加一条失败返回记录
func (t *Trace) AppendFailure(capability string, failure string) {
	t.records = append(t.records, ToolInvocationRecord{
		ID:         uuid.NewString(),
		Kind:       RecordKindResult,
		Capability: capability,
		Failure:    failure,
		Status:     RecordStatusFailed,
		Timestamp:  time.Now(),
	})
}

// AppendCancelled 追加一条取消标记记录
func (t *Trace) AppendCancelled(capability string) {
	t.records = append(t.records, ToolInvocationRecord{
		ID:         uuid.NewString(),
		Kind:       RecordKindResult,
		Capability: capability,
		Failure:    "cancelled",
		Status:     RecordStatusCancelled,
		Timestamp:  time.Now(),
	})
}

// Records 返回轨迹记录的副本
func (t *Trace) Records() []ToolInvocationRecord {
	cpy := make([]ToolInvocationRecord, len(t.records))
	copy(cpy, t.records)
	return cpy
}

// Len 轨迹记录条数
func (t *Trace) Len() int {
	return len(t.records)
}

// MarshalJSON 序列化为记录数组，用于归档
func (t *Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.records)
}

// Render 渲染为面向用户的过程文本，逐条输出调用与结果块
func (t *Trace) Render() string {
	var b bytes.Buffer
	for _, r := range t.records {
		switch r.Kind {
		case RecordKindCall:
			args := r.Arguments
			if pretty := prettyJSON(args); pretty != "" {
				args = pretty
			}
			fmt.Fprintf(&b, "Calling tool **%s** with arguments:\n```json\n%s\n```\n\n", r.Capability, args)
		case RecordKindResult:
			if r.Status == RecordStatusOK {
				fmt.Fprintf(&b, "Results from tool **%s**:\n%s\n\n", r.Capability, r.Output)
			} else {
				fmt.Fprintf(&b, "Results from tool **%s**:\n[%s] %s\n\n", r.Capability, r.Status, r.Failure)
			}
		}
	}
	return b.String()
}

// prettyJSON 尝试美化JSON参数，非法输入返回空串
func prettyJSON(s string) string {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return ""
	}
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return ""
	}
	return string(out)
}
