package types

import (
	"fmt"
	"strings"
)

// 资历级别的枚举值，与职位抓取源返回的标签保持一致
const (
	SeniorityInternship = "internship"
	SeniorityEntry      = "entry level"
	SeniorityJunior     = "junior"
	SeniorityMid        = "mid-level"
	SenioritySenior     = "senior"
)

// NotAvailableMarker 简历中缺失字段的占位文案，会原样出现在喂给下游的画像文本里
const NotAvailableMarker = "information not available"

// CandidateProfile 候选人画像，由简历解析能力一次性产出，单次运行内不可变
type CandidateProfile struct {
	// JobTitles 候选人可能匹配的职位名称，按相关度排序
	JobTitles []string `json:"potential_job_titles"`
	// Seniority 资历级别，自由文本（通常为上面的枚举之一）
	Seniority string `json:"seniority"`
	// Skills 技能列表
	Skills []string `json:"skills"`
	// BasedIn 常驻地，可选
	BasedIn string `json:"based_in,omitempty"`
	// WorkLocation 期望的工作方式（remote/hybrid/on-site），可选
	WorkLocation string `json:"work_location,omitempty"`
}

// FormatText 渲染为喂给搜索与评估能力的画像文本，缺失的可选字段用占位文案标注
func (p *CandidateProfile) FormatText() string {
	var b strings.Builder
	b.WriteString("Potential job titles: ")
	if len(p.JobTitles) > 0 {
		b.WriteString(strings.Join(p.JobTitles, ", "))
	} else {
		b.WriteString(NotAvailableMarker)
	}
	b.WriteString("\nSeniority: ")
	b.WriteString(orMarker(p.Seniority))
	b.WriteString("\nSkills: ")
	if len(p.Skills) > 0 {
		b.WriteString(strings.Join(p.Skills, ", "))
	} else {
		b.WriteString(NotAvailableMarker)
	}
	b.WriteString("\nBased in: ")
	b.WriteString(orMarker(p.BasedIn))
	b.WriteString("\nWork location: ")
	b.WriteString(orMarker(p.WorkLocation))
	return b.String()
}

func orMarker(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailableMarker
	}
	return s
}

// JobPosting 一条结构化的职位信息，由职位搜索能力返回
type JobPosting struct {
	JobTitle        string   `json:"job_title"`
	Company         string   `json:"company"`
	JobPostURL      string   `json:"job_post_url"`
	Remote          bool     `json:"remote"`
	Location        string   `json:"location,omitempty"`
	Salary          string   `json:"salary,omitempty"`
	RequiredSkills  []string `json:"required_skills"`
	ExperienceLevel string   `json:"experience_level"`
}

// Key 职位在单次运行内的唯一标识：优先用URL，缺失时退化为 标题@公司
func (j *JobPosting) Key() string {
	if j.JobPostURL != "" {
		return j.JobPostURL
	}
	return fmt.Sprintf("%s@%s", j.JobTitle, j.Company)
}

// MatchResult 单个职位的匹配评估结果，每个职位每次运行恰好一条
type MatchResult struct {
	// PostingKey 对应 JobPosting.Key()
	PostingKey string `json:"posting_key"`
	JobTitle   string `json:"job_title"`
	Company    string `json:"company"`
	JobPostURL string `json:"job_post_url"`
	// MatchScore 匹配分数，取值范围 [0,100]
	MatchScore int `json:"match_score"`
	// Reasons 评分理由
	Reasons string `json:"reasons"`
}
