package capability

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable 能力发现或传输层失败
	ErrUnavailable = errors.New("capability unavailable")

	// ErrTimeout 能力调用超时。等同于调用失败，绝不挂起运行。
	ErrTimeout = errors.New("capability timeout")
)

// InvokeError 单次能力调用失败的详细信息
type InvokeError struct {
	Capability string // 能力名
	Kind       error  // ErrUnavailable 或 ErrTimeout
	Err        error  // 底层错误
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("capability %q: %v: %v", e.Capability, e.Kind, e.Err)
}

func (e *InvokeError) Unwrap() error {
	return e.Kind
}

// NewInvokeError 包装一次能力调用失败
func NewInvokeError(capability string, kind error, err error) *InvokeError {
	return &InvokeError{Capability: capability, Kind: kind, Err: err}
}
