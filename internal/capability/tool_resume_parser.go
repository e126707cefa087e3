package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

// CapResumeParser 简历解析能力名
const CapResumeParser = "resume_parser"

// ResumeFetcher 按引用取回简历原始内容。
// 引用可以是本地路径，也可以是对象存储中的键。
type ResumeFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// LocalResumeFetcher 从本地文件系统读取简历
type LocalResumeFetcher struct{}

func (LocalResumeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("读取简历文件 %s 失败: %w", ref, err)
	}
	return data, nil
}

// PDFTextExtractor 从PDF内容提取纯文本
type PDFTextExtractor interface {
	ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

// ProfileExtractor 从简历文本提炼候选人画像
type ProfileExtractor interface {
	ExtractProfile(ctx context.Context, resumeText string) (*types.CandidateProfile, error)
}

// resumeParserTool 简历解析能力：取回简历、提取文本、产出画像JSON
type resumeParserTool struct {
	fetcher   ResumeFetcher
	pdf       PDFTextExtractor
	extractor ProfileExtractor
}

var _ tool.InvokableTool = (*resumeParserTool)(nil)

type resumeParserArgs struct {
	Resume string `json:"resume"`
}

func (t *resumeParserTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return NewResumeParserEntry(t.fetcher, t.pdf, t.extractor).ToolInfo(), nil
}

func (t *resumeParserTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args resumeParserArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("解析resume_parser参数失败: %w", err)
	}
	if strings.TrimSpace(args.Resume) == "" {
		return "", fmt.Errorf("resume参数不能为空")
	}

	data, err := t.fetcher.Fetch(ctx, args.Resume)
	if err != nil {
		return "", NewInvokeError(CapResumeParser, ErrUnavailable, err)
	}

	text, err := t.extractText(ctx, data, args.Resume)
	if err != nil {
		return "", NewInvokeError(CapResumeParser, ErrUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", NewInvokeError(CapResumeParser, ErrUnavailable, fmt.Errorf("简历内容为空"))
	}

	profile, err := t.extractor.ExtractProfile(ctx, text)
	if err != nil {
		return "", NewInvokeError(CapResumeParser, ErrUnavailable, err)
	}

	out, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("序列化画像失败: %w", err)
	}

	logger.Info().
		Str("resume", args.Resume).
		Int("text_chars", len(text)).
		Msg("简历解析完成")
	logger.Debug().
		Str("resume_preview", tracing.SafeResumeContent(text)).
		Msg("提取到的简历文本预览")
	return string(out), nil
}

var pdfMagic = []byte("%PDF")

// extractText PDF按魔数识别走PDF解析，其余按UTF-8纯文本处理
func (t *resumeParserTool) extractText(ctx context.Context, data []byte, uri string) (string, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		if t.pdf == nil {
			return "", fmt.Errorf("未配置PDF提取器，无法处理 %s", uri)
		}
		return t.pdf.ExtractFromBytes(ctx, data, uri)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("简历 %s 既不是PDF也不是有效的文本", uri)
	}
	return string(data), nil
}

// NewResumeParserEntry 组装简历解析能力条目
func NewResumeParserEntry(fetcher ResumeFetcher, pdf PDFTextExtractor, extractor ProfileExtractor) *Entry {
	return &Entry{
		Name: CapResumeParser,
		Desc: "Parse a resume and extract a structured candidate profile: potential job titles, seniority, skills, based-in location and preferred working location.",
		Params: map[string]*schema.ParameterInfo{
			"resume": {
				Type:     "string",
				Desc:     "Path or storage reference of the resume to parse",
				Required: true,
			},
		},
		Tool: &resumeParserTool{fetcher: fetcher, pdf: pdf, extractor: extractor},
	}
}
