package parser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/types"
)

// profileExtractionPrompt 结构化画像提取的提示词模板
const profileExtractionPrompt = `You are a resume parsing assistant. Extract a structured candidate profile from the resume text below.

Output a single JSON object with exactly these fields:
- "potential_job_titles": array of strings, job titles that would fit the candidate, ordered by relevance
- "seniority": string, one of "internship", "entry level", "junior", "mid-level", "senior"
- "skills": array of strings, the candidate's skills
- "based_in": string, where the candidate is based; empty string if the resume does not say
- "work_location": string, the preferred working arrangement (remote/hybrid/on-site); empty string if the resume does not say

Output only the JSON object, no extra text or Markdown fences.

Resume text:
"""
%s
"""`

// LLMProfileExtractor 用LLM把简历文本提炼成结构化候选人画像
type LLMProfileExtractor struct {
	llmModel model.ToolCallingChatModel
}

// NewLLMProfileExtractor 创建画像提取器
func NewLLMProfileExtractor(llmModel model.ToolCallingChatModel) *LLMProfileExtractor {
	return &LLMProfileExtractor{llmModel: llmModel}
}

// ExtractProfile 提取候选人画像。输出JSON解析失败视为提取失败。
func (e *LLMProfileExtractor) ExtractProfile(ctx context.Context, resumeText string) (*types.CandidateProfile, error) {
	if e.llmModel == nil {
		return nil, fmt.Errorf("LLMProfileExtractor: llmModel未初始化")
	}

	messages := []*einoschema.Message{
		einoschema.UserMessage(fmt.Sprintf(profileExtractionPrompt, resumeText)),
	}

	response, err := e.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("画像提取LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("画像提取LLM返回空响应")
	}

	jsonStr := ExtractJSONObject(response.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("画像提取响应中未找到JSON对象")
	}

	var profile types.CandidateProfile
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		return nil, fmt.Errorf("反序列化画像JSON失败: %w", err)
	}
	if len(profile.JobTitles) == 0 {
		return nil, fmt.Errorf("画像提取结果不含任何职位名称")
	}

	logger.Debug().
		Strs("job_titles", profile.JobTitles).
		Str("seniority", profile.Seniority).
		Int("skills", len(profile.Skills)).
		Msg("画像提取完成")
	return &profile, nil
}
