// Package search 封装对Linkup结构化网页搜索API的访问，用于职位发现。
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var searchTracer = otel.Tracer("resume-match-go/search")

// jobAnnouncementsSchema 要求搜索API按此JSON Schema返回结构化职位列表
const jobAnnouncementsSchema = `{
  "type": "object",
  "properties": {
    "jobs": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "job_title": {"type": "string", "description": "Job Title sponsored in the job announcement"},
          "experience_level": {"type": "string", "enum": ["internship", "entry level", "junior", "mid-level", "senior"], "description": "Required experience level"},
          "required_skills": {"type": "array", "items": {"type": "string"}, "description": "List of required skills for the job"},
          "remote": {"type": "boolean", "description": "Whether the job is remote or not"},
          "location": {"type": "string", "description": "Location, if there is any location restriction in the job"},
          "salary": {"type": "string", "description": "Yearly salary, when available"},
          "job_post_url": {"type": "string", "description": "URL to the job announcement"},
          "company": {"type": "string", "description": "Company hiring for the job"}
        },
        "required": ["job_title", "experience_level", "required_skills", "remote", "job_post_url", "company"]
      }
    }
  },
  "required": ["jobs"]
}`

// Config 搜索客户端配置
type Config struct {
	APIKey  string
	BaseURL string
	// TopN 返回职位数量上限
	TopN int
	// RecencyDays 只要最近N天内发布的职位
	RecencyDays int
	// Regions 地域白名单提示，拼进查询文本
	Regions []string
	Timeout time.Duration
}

// Client Linkup搜索客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建搜索客户端
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.linkup.so/v1"
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.RecencyDays <= 0 {
		cfg.RecencyDays = 7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type searchRequest struct {
	Query                  string `json:"q"`
	Depth                  string `json:"depth"`
	OutputType             string `json:"outputType"`
	StructuredOutputSchema string `json:"structuredOutputSchema,omitempty"`
	IncludeImages          bool   `json:"includeImages"`
	FromDate               string `json:"fromDate,omitempty"`
}

type searchResponse struct {
	Jobs []types.JobPosting `json:"jobs"`
}

// SearchJobs 按职位名称搜索近期职位，按供应商排名截取前N条
func (c *Client) SearchJobs(ctx context.Context, jobTitles []string) ([]types.JobPosting, error) {
	if len(jobTitles) == 0 {
		return nil, fmt.Errorf("职位名称列表不能为空")
	}

	ctx, span := searchTracer.Start(ctx, "search.jobs")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("search.job_titles", jobTitles))

	fromDate := time.Now().AddDate(0, 0, -c.cfg.RecencyDays).Format("2006-01-02")

	query := fmt.Sprintf("Job postings published recently for the following roles: %s.",
		strings.Join(jobTitles, ", "))
	if len(c.cfg.Regions) > 0 {
		query += fmt.Sprintf(" Only include jobs located in: %s, or fully remote jobs available there.",
			strings.Join(c.cfg.Regions, ", "))
	}

	span.SetAttributes(attribute.String("search.query",
		tracing.SafeAttributeValue("search.query", query, tracing.DefaultMaxLength)))

	reqPayload := searchRequest{
		Query:                  query,
		Depth:                  "standard",
		OutputType:             "structured",
		StructuredOutputSchema: jobAnnouncementsSchema,
		IncludeImages:          false,
		FromDate:               fromDate,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化搜索请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建搜索请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeSearch)
		return nil, fmt.Errorf("搜索请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取搜索响应失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("搜索API返回状态 %s: %s", httpResp.Status, tracing.TruncateString(string(bodyBytes), 200))
		tracing.RecordHTTPError(span, err, httpResp.StatusCode)
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("解析搜索响应失败: %w", err)
	}

	jobs := resp.Jobs
	if len(jobs) > c.cfg.TopN {
		jobs = jobs[:c.cfg.TopN]
	}

	span.SetAttributes(attribute.Int("search.results", len(jobs)))
	logger.Info().Int("results", len(jobs)).Str("from_date", fromDate).Msg("职位搜索完成")
	return jobs, nil
}
