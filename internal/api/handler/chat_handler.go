// Package handler HTTP入口的请求处理
package handler

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"

	"resume-match-go/internal/agent"
	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/storage/models"
)

// ErrRateLimited 调用方超出窗口内的请求配额
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrArchiveUnavailable 运行归档存储未配置
var ErrArchiveUnavailable = errors.New("run archive unavailable")

// Matcher 执行一次完整的匹配运行。由编排器实现。
type Matcher interface {
	Run(ctx context.Context, sessionID string, userInput string) (*agent.RunResult, error)
}

var _ Matcher = (*agent.Orchestrator)(nil)

// RateLimiter 入口滑动窗口限流
type RateLimiter interface {
	AllowRequest(ctx context.Context, caller string, limit int, window time.Duration) (bool, error)
}

// RunArchiver 运行归档的写入和按会话回查
type RunArchiver interface {
	SaveRunArchive(ctx context.Context, archive *models.RunArchive) error
	ListRunArchivesBySession(ctx context.Context, sessionID string, limit int) ([]models.RunArchive, error)
}

// ChatRequest 匹配请求
type ChatRequest struct {
	// Resume 简历引用：本地路径、对象存储键或画像文本
	Resume string `json:"resume"`
}

// ChatResponse 匹配响应：最终回复和可回放的调用过程
type ChatResponse struct {
	Response string `json:"response"`
	Process  string `json:"process"`
}

// ChatHandler 匹配入口处理器。限流、编排、归档和事件发布在这里串起来。
// 归档和事件发布是尽力而为，失败不影响已经产出的回复。
type ChatHandler struct {
	cfg       *config.Config
	matcher   Matcher
	limiter   RateLimiter
	archiver  RunArchiver
	publisher storage.EventPublisher

	rateLimitRequests int
	rateLimitWindow   time.Duration
}

// NewChatHandler 创建匹配入口处理器。limiter、archiver、publisher都允许为nil。
func NewChatHandler(cfg *config.Config, matcher Matcher, limiter RateLimiter, archiver RunArchiver, publisher storage.EventPublisher) *ChatHandler {
	return &ChatHandler{
		cfg:               cfg,
		matcher:           matcher,
		limiter:           limiter,
		archiver:          archiver,
		publisher:         publisher,
		rateLimitRequests: cfg.Server.RateLimitRequests,
		rateLimitWindow:   config.GetDuration(cfg.Server.RateLimitWindow, time.Minute),
	}
}

// HandleChat 处理一次匹配请求。sessionID标识调用方会话，同时作为限流主体。
func (h *ChatHandler) HandleChat(ctx context.Context, sessionID string, req *ChatRequest) (*ChatResponse, error) {
	if h.limiter != nil {
		allowed, err := h.limiter.AllowRequest(ctx, sessionID, h.rateLimitRequests, h.rateLimitWindow)
		if err != nil {
			// 限流器故障时放行，已在存储层记录
			logger.Warn().Err(err).Msg("限流检查失败，请求放行")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	result, err := h.matcher.Run(ctx, sessionID, req.Resume)
	if err != nil {
		return nil, err
	}

	process := result.Trace.Render()
	h.archiveRun(ctx, sessionID, req.Resume, result, process)
	h.publishEvent(ctx, sessionID, req.Resume, result)

	return &ChatResponse{
		Response: result.Summary,
		Process:  process,
	}, nil
}

// RunSummary 运行归档的列表视图，不携带完整轨迹
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Response   string    `json:"response"`
	MatchCount int       `json:"match_count"`
	Degraded   bool      `json:"degraded"`
	CreatedAt  time.Time `json:"created_at"`
}

// HandleListRuns 按会话列出历史运行，时间倒序
func (h *ChatHandler) HandleListRuns(ctx context.Context, sessionID string, limit int) ([]RunSummary, error) {
	if h.archiver == nil {
		return nil, ErrArchiveUnavailable
	}

	archives, err := h.archiver.ListRunArchivesBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}

	runs := make([]RunSummary, 0, len(archives))
	for _, a := range archives {
		runs = append(runs, RunSummary{
			RunID:      a.RunID,
			Response:   a.Response,
			MatchCount: a.MatchCount,
			Degraded:   a.Degraded,
			CreatedAt:  a.CreatedAt,
		})
	}
	return runs, nil
}

func (h *ChatHandler) archiveRun(ctx context.Context, sessionID, resumeRef string, result *agent.RunResult, process string) {
	if h.archiver == nil {
		return
	}

	traceJSON, err := result.Trace.MarshalJSON()
	if err != nil {
		logger.Warn().Err(err).Str("run_id", result.RunID).Msg("序列化运行轨迹失败")
		traceJSON = []byte("[]")
	}

	archive := &models.RunArchive{
		RunID:      result.RunID,
		SessionID:  sessionID,
		ResumeRef:  resumeRef,
		Response:   result.Summary,
		Process:    process,
		TraceJSON:  datatypes.JSON(traceJSON),
		MatchCount: len(result.Matches),
		Degraded:   result.Degraded,
	}
	if err := h.archiver.SaveRunArchive(ctx, archive); err != nil {
		logger.Warn().Err(err).Str("run_id", result.RunID).Msg("归档运行失败")
	}
}

func (h *ChatHandler) publishEvent(ctx context.Context, sessionID, resumeRef string, result *agent.RunResult) {
	if h.publisher == nil {
		return
	}

	event := &storage.MatchCompletedEvent{
		RunID:        result.RunID,
		SessionID:    sessionID,
		ResumeRef:    resumeRef,
		PostingCount: len(result.Postings),
		MatchCount:   len(result.Matches),
		Degraded:     result.Degraded,
		CompletedAt:  time.Now(),
	}
	if err := h.publisher.PublishMatchCompleted(ctx, event); err != nil {
		logger.Warn().Err(err).Str("run_id", result.RunID).Msg("发布匹配完成事件失败")
	}
}
