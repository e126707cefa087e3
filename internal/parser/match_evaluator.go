package parser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-match-go/internal/types"
)

// matchEvaluatorSystemPrompt 匹配评估的系统提示词。
// 权重维度：职位名称相关性、技能重合、资历匹配、常驻地兼容、工作方式兼容。
const matchEvaluatorSystemPrompt = `You are a job matching assistant. Your task is to evaluate a job based on its match with the candidate's profile, taking into account the job title, the skills required, the seniority level, the physical location (where the company offering the work is based in) and the working location (remote/hybrid/on-site). You then have to produce a match score (between 0 and 100) and justify that match score explaining your reasons for that.

Output a single JSON object with exactly these fields:
- "match_score": integer between 0 and 100
- "reasons": string, the reasons for the evaluation

Output only the JSON object, no extra text or Markdown fences.`

// llmMatchEvaluation LLM评估输出的结构
type llmMatchEvaluation struct {
	MatchScore int    `json:"match_score"`
	Reasons    string `json:"reasons"`
}

// LLMMatchEvaluator 用LLM评估单个职位与候选人画像的匹配度。
// 每次调用只评估一个职位，不携带跨职位状态；输出不保证可复现，
// 调用方只应依赖契约（分数区间和理由非空）。
type LLMMatchEvaluator struct {
	llmModel model.ToolCallingChatModel
}

// NewLLMMatchEvaluator 创建匹配评估器
func NewLLMMatchEvaluator(llmModel model.ToolCallingChatModel) *LLMMatchEvaluator {
	return &LLMMatchEvaluator{llmModel: llmModel}
}

// EvaluateMatch 评估一个职位。分数越界时收拢到[0,100]。
func (e *LLMMatchEvaluator) EvaluateMatch(ctx context.Context, profileText string, posting types.JobPosting) (*types.MatchResult, error) {
	if e.llmModel == nil {
		return nil, fmt.Errorf("LLMMatchEvaluator: llmModel未初始化")
	}

	jobJSON, err := json.Marshal(posting)
	if err != nil {
		return nil, fmt.Errorf("序列化职位信息失败: %w", err)
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(matchEvaluatorSystemPrompt),
		einoschema.UserMessage(fmt.Sprintf("Here is my profile:\n\n'''\n%s\n'''", profileText)),
		einoschema.UserMessage(fmt.Sprintf("And here is the JSON card of a job that I found:\n\n'''\n%s\n'''\n\nCan you evaluate the match for me?", string(jobJSON))),
	}

	response, err := e.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("匹配评估LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("匹配评估LLM返回空响应")
	}

	jsonStr := ExtractJSONObject(response.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("匹配评估响应中未找到JSON对象")
	}

	var eval llmMatchEvaluation
	if err := json.Unmarshal([]byte(jsonStr), &eval); err != nil {
		return nil, fmt.Errorf("反序列化评估JSON失败: %w", err)
	}

	score := eval.MatchScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &types.MatchResult{
		PostingKey: posting.Key(),
		JobTitle:   posting.JobTitle,
		Company:    posting.Company,
		JobPostURL: posting.JobPostURL,
		MatchScore: score,
		Reasons:    eval.Reasons,
	}, nil
}
