package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"resume-match-go/internal/capability"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var orchestratorTracer = otel.Tracer("resume-match-go/agent")

// 工作流涉及的能力名称
const (
	CapResumeParser  = "resume_parser"
	CapJobSearcher   = "job_searcher"
	CapEvaluateMatch = "evaluate_job_match"
)

// State 编排器状态
type State int

const (
	StateInit State = iota
	StatePlanning
	StateAwaitingResult
	StateSynthesizing
	StateDone
)

// String 使State可打印
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePlanning:
		return "PLANNING"
	case StateAwaitingResult:
		return "AWAITING_CAPABILITY_RESULT"
	case StateSynthesizing:
		return "SYNTHESIZING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// systemPrompt 固定的工作流目标描述。
// 编排不变量在代码里另行强制，这里只是引导规划模型。
const systemPrompt = `You are a career assistant that helps people find jobs matching their resume.
Follow this workflow strictly:
1. Use the resume_parser tool to extract a structured candidate profile from the resume.
2. Use the job_searcher tool with job titles derived from the profile to find recent job postings.
3. Every discovered posting is evaluated against the profile with the evaluate_job_match tool.
4. When all evaluations are available, produce a final summary for the user that mentions,
   for every evaluated posting, the company, the job posting URL and the job title,
   ordered from best to worst match score.
Only give the final answer after the evaluations are done.`

// degradedSummary 降级路径的用户可见文案，绝不携带内部错误细节
const degradedSummary = "An error occurred while processing your request, so the job matching could not be completed. Please try again later or report this issue."

// noMatchesSummary 职位发现合法地返回零条时的终态摘要
const noMatchesSummary = "No matches found: the job search did not return any recent postings for your profile. Try again later or broaden your search."

// RunResult 一次编排运行的产出
type RunResult struct {
	RunID   string
	State   State
	Summary string
	Trace   *Trace
	// Profile 本次运行提取的候选人画像，提取失败时为nil
	Profile  *types.CandidateProfile
	Postings []types.JobPosting
	Matches  []types.MatchResult
	// Degraded 运行以降级摘要终止
	Degraded bool
	// DegradedCause 降级原因，供调用方用 errors.Is 对
	// ErrProfileExtraction、ErrJobDiscovery、ErrMaxStepsExceeded 判别。
	// 摘要文案不携带它，避免内部错误外泄。
	DegradedCause error
}

// Orchestrator 编排器：按轮规划、派发能力调用、累积轨迹并产出最终摘要。
// 匹配逻辑全部在能力里，编排器只负责规划/派发和不变量。
type Orchestrator struct {
	registry *capability.Registry
	planner  Planner
	sessions SessionStore

	maxSteps      int
	evalWorkers   int
	invokeTimeout time.Duration
	planTimeout   time.Duration
}

// OrchestratorOption 编排器可选配置
type OrchestratorOption func(*Orchestrator)

// WithMaxSteps 设置最大规划轮数
func WithMaxSteps(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.maxSteps = n }
}

// WithEvalWorkers 设置评估并发上限
func WithEvalWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.evalWorkers = n }
}

// WithInvokeTimeout 设置单次能力调用超时
func WithInvokeTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.invokeTimeout = d }
}

// WithPlanTimeout 设置单次规划调用超时
func WithPlanTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.planTimeout = d }
}

// NewOrchestrator 创建编排器
func NewOrchestrator(registry *capability.Registry, planner Planner, sessions SessionStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:      registry,
		planner:       planner,
		sessions:      sessions,
		maxSteps:      12,
		evalWorkers:   3,
		invokeTimeout: 60 * time.Second,
		planTimeout:   90 * time.Second,
	}
	if o.sessions == nil {
		o.sessions = NewInMemorySessionStore()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runState 单次运行的可变状态，运行结束即丢弃
type runState struct {
	trace    *Trace
	history  []*schema.Message
	profile  *types.CandidateProfile
	postings []types.JobPosting
	matches  map[string]types.MatchResult // 以职位Key为合并键

	discoveryDone  bool // 至少一次职位发现成功
	evaluationDone bool // 评估派发已经完成（含零职位的空派发）
}

// Run 执行一次完整编排。userInput为简历引用或画像文本。
// 降级终止时err为nil，RunResult.Degraded为true；只有取消或
// 会话存储故障这类编排器自身不能恢复的错误才返回非nil err。
func (o *Orchestrator) Run(ctx context.Context, sessionID string, userInput string) (*RunResult, error) {
	runID, _ := uuid.NewV4()

	ctx, span := orchestratorTracer.Start(ctx, "orchestrator.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID.String()),
		attribute.String("session.id", sessionID),
	)

	result := &RunResult{
		RunID: runID.String(),
		State: StateInit,
		Trace: NewTrace(),
	}
	rs := &runState{
		trace:   result.Trace,
		matches: make(map[string]types.MatchResult),
	}

	// INIT：加载能力目录和会话历史
	toolInfos, err := o.registry.ToolInfos(ctx)
	if err != nil {
		logger.Error().Err(err).Str("run_id", result.RunID).Msg("加载能力目录失败")
		tracing.RecordError(span, err, tracing.ErrorTypeCapability)
		return o.finishDegraded(ctx, sessionID, userInput, result, err), nil
	}

	prior, err := o.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("读取会话历史失败: %w", err)
	}

	rs.history = append(rs.history, schema.SystemMessage(systemPrompt))
	rs.history = append(rs.history, prior...)
	userMessage := schema.UserMessage(userInput)
	rs.history = append(rs.history, userMessage)

	// 规划循环
	for step := 0; step < o.maxSteps; step++ {
		if ctx.Err() != nil {
			result.State = StateDone
			return result, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
		}

		result.State = StatePlanning
		decision, err := o.plan(ctx, rs, toolInfos)
		if err != nil {
			if ctx.Err() != nil {
				result.State = StateDone
				return result, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
			}
			logger.Error().Err(err).Str("run_id", result.RunID).Int("step", step).Msg("规划调用失败")
			return o.finishDegraded(ctx, sessionID, userInput, result, err), nil
		}

		if decision.Kind == DecisionFinish {
			// 不变量：发现与评估完成前不得产出最终答案
			if !rs.discoveryDone {
				rs.history = append(rs.history,
					schema.UserMessage("You have not searched for jobs yet. Continue the workflow before giving a final answer."))
				continue
			}
			if len(rs.postings) > 0 && !rs.evaluationDone {
				// 规划器想提前收尾，先把评估派发补上
				o.evaluateAll(ctx, rs)
				if ctx.Err() != nil {
					result.State = StateDone
					return result, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
				}
				continue
			}

			result.State = StateSynthesizing
			return o.finish(ctx, sessionID, userMessage, decision.Summary, rs, result)
		}

		// AWAITING_CAPABILITY_RESULT：派发恰好一次能力调用
		result.State = StateAwaitingResult
		if decision.Raw != nil {
			rs.history = append(rs.history, decision.Raw)
		}

		abortErr := o.dispatch(ctx, rs, decision)
		if ctx.Err() != nil {
			result.State = StateDone
			return result, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
		}
		if abortErr != nil {
			logger.Warn().Err(abortErr).Str("run_id", result.RunID).Str("capability", decision.Capability).Msg("关键能力失败，运行降级终止")
			return o.finishDegraded(ctx, sessionID, userInput, result, abortErr), nil
		}

		// 职位发现成功后立即对每个职位独立派发评估
		if rs.discoveryDone && !rs.evaluationDone {
			o.evaluateAll(ctx, rs)
			if ctx.Err() != nil {
				result.State = StateDone
				return result, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
			}
		}
	}

	logger.Warn().Str("run_id", result.RunID).Int("max_steps", o.maxSteps).Msg("规划轮数超限")
	return o.finishDegraded(ctx, sessionID, userInput, result,
		fmt.Errorf("%w: %d steps", ErrMaxStepsExceeded, o.maxSteps)), nil
}

// plan 带超时地调用规划器
func (o *Orchestrator) plan(ctx context.Context, rs *runState, toolInfos []*schema.ToolInfo) (*Decision, error) {
	planCtx, cancel := context.WithTimeout(ctx, o.planTimeout)
	defer cancel()
	return o.planner.Decide(planCtx, rs.history, toolInfos)
}

// dispatch 派发规划器决定的一次能力调用并更新运行状态。
// 返回非nil表示关键能力失败，运行应以该原因降级终止。
func (o *Orchestrator) dispatch(ctx context.Context, rs *runState, decision *Decision) error {
	name, args := decision.Capability, decision.Arguments

	output, err := o.invoke(ctx, rs.trace, name, args)
	toolCallID := ""
	if decision.Raw != nil && len(decision.Raw.ToolCalls) > 0 {
		toolCallID = decision.Raw.ToolCalls[0].ID
	}

	if err != nil {
		// 失败也要让规划器看到，便于其调整或终止
		rs.history = append(rs.history, toolMessage(toolCallID, name, "The tool call failed."))
		switch name {
		case CapResumeParser:
			return fmt.Errorf("%w: %v", ErrProfileExtraction, err)
		case CapJobSearcher:
			return fmt.Errorf("%w: %v", ErrJobDiscovery, err)
		default:
			return nil
		}
	}

	rs.history = append(rs.history, toolMessage(toolCallID, name, output))

	switch name {
	case CapResumeParser:
		var profile types.CandidateProfile
		if err := json.Unmarshal([]byte(output), &profile); err == nil {
			rs.profile = &profile
		}
	case CapJobSearcher:
		var postings []types.JobPosting
		if err := json.Unmarshal([]byte(output), &postings); err != nil {
			logger.Warn().Err(err).Msg("职位发现输出不是合法的职位列表")
			return fmt.Errorf("%w: %v", ErrJobDiscovery, err)
		}
		rs.postings = postings
		rs.discoveryDone = true
	case CapEvaluateMatch:
		var match types.MatchResult
		if err := json.Unmarshal([]byte(output), &match); err == nil && match.PostingKey != "" {
			rs.matches[match.PostingKey] = match
		}
	}
	return nil
}

// invoke 带超时地执行一次能力调用，按派发顺序在轨迹中成对追加call/result记录
func (o *Orchestrator) invoke(ctx context.Context, trace *Trace, name string, argsJSON string) (string, error) {
	trace.AppendCall(name, argsJSON)

	invokeCtx, cancel := context.WithTimeout(ctx, o.invokeTimeout)
	defer cancel()

	output, err := o.registry.Invoke(invokeCtx, name, argsJSON)
	if err != nil {
		if ctx.Err() != nil {
			trace.AppendCancelled(name)
			return "", fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, capability.ErrTimeout) {
			trace.AppendFailure(name, "timeout")
			return "", capability.NewInvokeError(name, capability.ErrTimeout, err)
		}
		trace.AppendFailure(name, "failed")
		logger.Warn().Err(err).Str("capability", name).Msg("能力调用失败")
		return "", err
	}

	trace.AppendResult(name, output)
	return output, nil
}

// evaluateAll 对每个已发现职位独立派发一次评估，受并发上限约束。
// 合并以职位Key为键，与完成顺序无关；单个评估失败只排除该职位。
// 轨迹记录在全部评估结束后按派发顺序成对写入。
func (o *Orchestrator) evaluateAll(ctx context.Context, rs *runState) {
	rs.evaluationDone = true
	if len(rs.postings) == 0 {
		return
	}

	profileText := o.profileText(rs)

	type evalOutcome struct {
		args      string
		output    string
		err       error
		cancelled bool
	}
	outcomes := make([]evalOutcome, len(rs.postings))

	g, evalCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.evalWorkers)

	for i := range rs.postings {
		i := i
		posting := rs.postings[i]
		argsJSON, err := json.Marshal(map[string]any{
			"profile": profileText,
			"job":     posting,
		})
		if err != nil {
			outcomes[i] = evalOutcome{err: err}
			continue
		}
		outcomes[i].args = string(argsJSON)

		g.Go(func() error {
			invokeCtx, cancel := context.WithTimeout(evalCtx, o.invokeTimeout)
			defer cancel()

			output, err := o.registry.Invoke(invokeCtx, CapEvaluateMatch, outcomes[i].args)
			if err != nil {
				outcomes[i].err = err
				outcomes[i].cancelled = ctx.Err() != nil
				// 单个评估失败不中止其余评估
				return nil
			}
			outcomes[i].output = output
			return nil
		})
	}
	_ = g.Wait()

	// 派发顺序写轨迹并合并结果
	var resultLines []string
	for i, posting := range rs.postings {
		out := outcomes[i]
		rs.trace.AppendCall(CapEvaluateMatch, out.args)

		switch {
		case out.cancelled:
			rs.trace.AppendCancelled(CapEvaluateMatch)
		case out.err != nil:
			if errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, capability.ErrTimeout) {
				rs.trace.AppendFailure(CapEvaluateMatch, "timeout")
			} else {
				rs.trace.AppendFailure(CapEvaluateMatch, "failed")
			}
			logger.Warn().Err(out.err).Str("posting", posting.Key()).Msg("职位评估失败，该职位被排除")
		default:
			rs.trace.AppendResult(CapEvaluateMatch, out.output)
			var match types.MatchResult
			if err := json.Unmarshal([]byte(out.output), &match); err != nil {
				logger.Warn().Err(err).Str("posting", posting.Key()).Msg("评估输出不可解析，该职位被排除")
				continue
			}
			if match.PostingKey == "" {
				match.PostingKey = posting.Key()
			}
			rs.matches[match.PostingKey] = match
			resultLines = append(resultLines, out.output)
		}
	}

	// 把评估结果拼给规划器做最终综合
	if len(resultLines) > 0 {
		rs.history = append(rs.history, schema.UserMessage(
			"Evaluation results for the discovered postings:\n"+strings.Join(resultLines, "\n")+
				"\nNow produce the final summary."))
	} else {
		rs.history = append(rs.history, schema.UserMessage(
			"All evaluations failed. Produce a final summary explaining that no postings could be evaluated."))
	}
}

// profileText 评估用的画像文本
func (o *Orchestrator) profileText(rs *runState) string {
	if rs.profile != nil {
		return rs.profile.FormatText()
	}
	return ""
}

// rankedMatches 按分数降序排列的匹配结果
func (rs *runState) rankedMatches() []types.MatchResult {
	matches := make([]types.MatchResult, 0, len(rs.matches))
	for _, m := range rs.matches {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].PostingKey < matches[j].PostingKey
	})
	return matches
}

// finish 正常收尾：整理结果、保证摘要引用每条匹配、回写会话
func (o *Orchestrator) finish(ctx context.Context, sessionID string, userMessage *schema.Message, plannerSummary string, rs *runState, result *RunResult) (*RunResult, error) {
	result.Profile = rs.profile
	result.Postings = rs.postings
	result.Matches = rs.rankedMatches()

	summary := strings.TrimSpace(plannerSummary)
	if len(rs.postings) == 0 {
		summary = noMatchesSummary
	} else if len(result.Matches) == 0 {
		summary = degradedSummary
		result.Degraded = true
	} else {
		// 摘要必须引用每条匹配的公司、链接和标题；附加结构化排名保证这一点
		summary = summary + "\n\n" + renderRanking(result.Matches)
	}
	result.Summary = summary
	result.State = StateDone

	if err := o.sessions.Append(ctx, sessionID, userMessage, schema.AssistantMessage(summary, nil)); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("回写会话历史失败")
	}
	return result, nil
}

// finishDegraded 降级收尾：结构化的用户可见摘要，不泄漏内部错误。
// cause记录在RunResult.DegradedCause上供调用方判别。
func (o *Orchestrator) finishDegraded(ctx context.Context, sessionID string, userInput string, result *RunResult, cause error) *RunResult {
	result.State = StateDone
	result.Degraded = true
	result.DegradedCause = cause
	result.Summary = degradedSummary

	if err := o.sessions.Append(ctx, sessionID,
		schema.UserMessage(userInput), schema.AssistantMessage(degradedSummary, nil)); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("回写会话历史失败")
	}
	return result
}

// renderRanking 渲染排名区块，逐条带公司、标题和链接
func renderRanking(matches []types.MatchResult) string {
	var b strings.Builder
	b.WriteString("Ranked matches:\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s at %s (score %d/100) - %s\n   %s\n",
			i+1, m.JobTitle, m.Company, m.MatchScore, m.JobPostURL, m.Reasons)
	}
	return strings.TrimRight(b.String(), "\n")
}

// toolMessage 构造回写历史用的工具消息
func toolMessage(toolCallID string, name string, content string) *schema.Message {
	return &schema.Message{
		Role:       schema.RoleType("tool"),
		ToolCallID: toolCallID,
		Name:       name,
		Content:    content,
	}
}
