package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/agent"
	"resume-match-go/internal/config"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/types"
)

type stubMatcher struct {
	result *agent.RunResult
	err    error
	gotID  string
	gotIn  string
}

func (m *stubMatcher) Run(_ context.Context, sessionID string, userInput string) (*agent.RunResult, error) {
	m.gotID = sessionID
	m.gotIn = userInput
	return m.result, m.err
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (l *stubLimiter) AllowRequest(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	return l.allowed, l.err
}

type stubArchiver struct {
	saved    *models.RunArchive
	archives []models.RunArchive
	gotLimit int
	err      error
}

func (a *stubArchiver) SaveRunArchive(_ context.Context, archive *models.RunArchive) error {
	a.saved = archive
	return a.err
}

func (a *stubArchiver) ListRunArchivesBySession(_ context.Context, _ string, limit int) ([]models.RunArchive, error) {
	a.gotLimit = limit
	return a.archives, a.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RateLimitRequests = 10
	cfg.Server.RateLimitWindow = "1m"
	return cfg
}

func happyRunResult() *agent.RunResult {
	trace := agent.NewTrace()
	trace.AppendCall("resume_parser", `{"resume": "cv.pdf"}`)
	trace.AppendResult("resume_parser", `{"potential_job_titles": ["Go Developer"]}`)

	return &agent.RunResult{
		RunID:   "run-1",
		Summary: "Best match: Go Developer at Acme.",
		Trace:   trace,
		Matches: []types.MatchResult{{PostingKey: "k", JobTitle: "Go Developer", Company: "Acme", MatchScore: 80}},
	}
}

func TestHandleChatSuccess(t *testing.T) {
	matcher := &stubMatcher{result: happyRunResult()}
	archiver := &stubArchiver{}
	h := NewChatHandler(testConfig(), matcher, &stubLimiter{allowed: true}, archiver, nil)

	resp, err := h.HandleChat(context.Background(), "session-1", &ChatRequest{Resume: "cv.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "session-1", matcher.gotID)
	assert.Equal(t, "cv.pdf", matcher.gotIn)
	assert.Equal(t, "Best match: Go Developer at Acme.", resp.Response)
	assert.Contains(t, resp.Process, "Calling tool **resume_parser**")
	assert.Contains(t, resp.Process, "Results from tool **resume_parser**")

	// 归档携带运行结果
	require.NotNil(t, archiver.saved)
	assert.Equal(t, "run-1", archiver.saved.RunID)
	assert.Equal(t, 1, archiver.saved.MatchCount)
	assert.False(t, archiver.saved.Degraded)
}

func TestHandleChatRateLimited(t *testing.T) {
	matcher := &stubMatcher{result: happyRunResult()}
	h := NewChatHandler(testConfig(), matcher, &stubLimiter{allowed: false}, nil, nil)

	_, err := h.HandleChat(context.Background(), "session-1", &ChatRequest{Resume: "cv.pdf"})
	assert.ErrorIs(t, err, ErrRateLimited)
	// 被限流的请求不会触发匹配运行
	assert.Empty(t, matcher.gotIn)
}

func TestHandleChatLimiterFailureAllowsRequest(t *testing.T) {
	matcher := &stubMatcher{result: happyRunResult()}
	h := NewChatHandler(testConfig(), matcher, &stubLimiter{err: errors.New("redis down")}, nil, nil)

	resp, err := h.HandleChat(context.Background(), "session-1", &ChatRequest{Resume: "cv.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Response)
}

func TestHandleChatMatcherError(t *testing.T) {
	matcher := &stubMatcher{err: errors.New("session store unavailable")}
	h := NewChatHandler(testConfig(), matcher, nil, nil, nil)

	_, err := h.HandleChat(context.Background(), "session-1", &ChatRequest{Resume: "cv.pdf"})
	assert.Error(t, err)
}

func TestHandleChatArchiveFailureDoesNotFailRequest(t *testing.T) {
	matcher := &stubMatcher{result: happyRunResult()}
	archiver := &stubArchiver{err: errors.New("mysql down")}
	h := NewChatHandler(testConfig(), matcher, nil, archiver, nil)

	resp, err := h.HandleChat(context.Background(), "session-1", &ChatRequest{Resume: "cv.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Response)
}

func TestHandleListRuns(t *testing.T) {
	created := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	archiver := &stubArchiver{archives: []models.RunArchive{
		{RunID: "run-2", Response: "Best match: Go Developer at Acme.", MatchCount: 3, CreatedAt: created},
		{RunID: "run-1", Response: "no postings found", Degraded: true, CreatedAt: created.Add(-time.Hour)},
	}}
	h := NewChatHandler(testConfig(), &stubMatcher{}, nil, archiver, nil)

	runs, err := h.HandleListRuns(context.Background(), "session-1", 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, 5, archiver.gotLimit)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, 3, runs[0].MatchCount)
	assert.False(t, runs[0].Degraded)
	assert.Equal(t, created, runs[0].CreatedAt)
	assert.True(t, runs[1].Degraded)
}

func TestHandleListRunsWithoutArchiver(t *testing.T) {
	h := NewChatHandler(testConfig(), &stubMatcher{}, nil, nil, nil)

	_, err := h.HandleListRuns(context.Background(), "session-1", 5)
	assert.ErrorIs(t, err, ErrArchiveUnavailable)
}
