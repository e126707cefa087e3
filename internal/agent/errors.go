package agent

import (
	"errors"
)

// 运行级错误，供编排器调用方用 errors.Is 判别
var (
	// ErrRunCancelled 运行被调用方取消
	ErrRunCancelled = errors.New("run cancelled")

	// ErrMaxStepsExceeded 规划轮数超限仍未收敛
	ErrMaxStepsExceeded = errors.New("max planning steps exceeded")

	// ErrProfileExtraction 画像提取失败，运行以降级摘要终止
	ErrProfileExtraction = errors.New("profile extraction failed")

	// ErrJobDiscovery 职位发现失败，运行以降级摘要终止
	ErrJobDiscovery = errors.New("job discovery failed")
)
