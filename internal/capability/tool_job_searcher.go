package capability

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/types"
)

// CapJobSearcher 职位搜索能力名
const CapJobSearcher = "job_searcher"

// JobSearcher 按职位名称搜索近期职位
type JobSearcher interface {
	SearchJobs(ctx context.Context, jobTitles []string) ([]types.JobPosting, error)
}

// jobSearcherTool 职位搜索能力：输出职位卡片JSON数组。
// 零结果是合法输出，返回空数组而不是错误。
type jobSearcherTool struct {
	searcher JobSearcher
}

var _ tool.InvokableTool = (*jobSearcherTool)(nil)

type jobSearcherArgs struct {
	JobTitles []string `json:"job_titles"`
}

func (t *jobSearcherTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return NewJobSearcherEntry(t.searcher).ToolInfo(), nil
}

func (t *jobSearcherTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args jobSearcherArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("解析job_searcher参数失败: %w", err)
	}
	if len(args.JobTitles) == 0 {
		return "", fmt.Errorf("job_titles参数不能为空")
	}

	postings, err := t.searcher.SearchJobs(ctx, args.JobTitles)
	if err != nil {
		return "", NewInvokeError(CapJobSearcher, ErrUnavailable, err)
	}
	if postings == nil {
		postings = []types.JobPosting{}
	}

	out, err := json.Marshal(postings)
	if err != nil {
		return "", fmt.Errorf("序列化职位列表失败: %w", err)
	}

	logger.Info().
		Strs("job_titles", args.JobTitles).
		Int("postings", len(postings)).
		Msg("职位搜索能力调用完成")
	return string(out), nil
}

// NewJobSearcherEntry 组装职位搜索能力条目
func NewJobSearcherEntry(searcher JobSearcher) *Entry {
	return &Entry{
		Name: CapJobSearcher,
		Desc: "Search the web for recent job postings matching the given job titles. Returns a JSON array of job cards with title, company, experience level, required skills, remote flag, location, salary and URL.",
		Params: map[string]*schema.ParameterInfo{
			"job_titles": {
				Type:     "array",
				Desc:     "Job titles to search postings for",
				ElemInfo: &schema.ParameterInfo{Type: "string"},
				Required: true,
			},
		},
		Tool: &jobSearcherTool{searcher: searcher},
	}
}
