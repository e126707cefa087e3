package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/types"
)

// CapEvaluateMatch 匹配评估能力名
const CapEvaluateMatch = "evaluate_job_match"

// MatchEvaluator 评估单个职位与候选人画像的匹配度
type MatchEvaluator interface {
	EvaluateMatch(ctx context.Context, profileText string, posting types.JobPosting) (*types.MatchResult, error)
}

// evaluateMatchTool 匹配评估能力：一次调用评估一个职位，
// 输出带分数和理由的匹配结果JSON。
type evaluateMatchTool struct {
	evaluator MatchEvaluator
}

var _ tool.InvokableTool = (*evaluateMatchTool)(nil)

type evaluateMatchArgs struct {
	Profile string           `json:"profile"`
	Job     types.JobPosting `json:"job"`
}

func (t *evaluateMatchTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return NewEvaluateMatchEntry(t.evaluator).ToolInfo(), nil
}

func (t *evaluateMatchTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args evaluateMatchArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("解析evaluate_job_match参数失败: %w", err)
	}
	if strings.TrimSpace(args.Profile) == "" {
		return "", fmt.Errorf("profile参数不能为空")
	}
	if args.Job.JobTitle == "" && args.Job.JobPostURL == "" {
		return "", fmt.Errorf("job参数缺少职位标识")
	}

	result, err := t.evaluator.EvaluateMatch(ctx, args.Profile, args.Job)
	if err != nil {
		return "", NewInvokeError(CapEvaluateMatch, ErrUnavailable, err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("序列化匹配结果失败: %w", err)
	}

	logger.Debug().
		Str("posting", result.PostingKey).
		Int("score", result.MatchScore).
		Msg("职位匹配评估完成")
	return string(out), nil
}

// NewEvaluateMatchEntry 组装匹配评估能力条目
func NewEvaluateMatchEntry(evaluator MatchEvaluator) *Entry {
	return &Entry{
		Name: CapEvaluateMatch,
		Desc: "Evaluate how well a single job posting matches the candidate profile, considering job title, skills, seniority, physical location and working location. Returns a match score between 0 and 100 with reasons.",
		Params: map[string]*schema.ParameterInfo{
			"profile": {
				Type:     "string",
				Desc:     "Formatted text of the candidate profile",
				Required: true,
			},
			"job": {
				Type:     "object",
				Desc:     "JSON card of the job posting to evaluate",
				Required: true,
			},
		},
		Tool: &evaluateMatchTool{evaluator: evaluator},
	}
}
