package storage

import "time"

// MatchCompletedEvent 一次匹配运行结束后广播的事件
type MatchCompletedEvent struct {
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id"`
	// ResumeRef 本次运行处理的简历引用
	ResumeRef string `json:"resume_ref,omitempty"`
	// PostingCount 发现的职位数
	PostingCount int `json:"posting_count"`
	// MatchCount 成功评估的匹配数
	MatchCount int `json:"match_count"`
	// Degraded 运行是否以降级回复结束
	Degraded    bool      `json:"degraded"`
	CompletedAt time.Time `json:"completed_at"`
}
