package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"

	"resume-match-go/internal/logger"
)

// EinoPDFTextExtractor 使用 Eino PDF Parser 从简历PDF提取纯文本
type EinoPDFTextExtractor struct {
	parser *pdf.PDFParser
}

// NewEinoPDFTextExtractor 初始化PDF文本提取器。
// 不按页面分割，整个文档作为单个字符串返回。
func NewEinoPDFTextExtractor(ctx context.Context) (*EinoPDFTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("创建PDF解析器失败: %w", err)
	}
	return &EinoPDFTextExtractor{parser: p}, nil
}

// ExtractFromFile 从PDF文件提取文本
func (e *EinoPDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开PDF文件 %s 失败: %w", filePath, err)
	}
	defer file.Close()

	return e.ExtractFromReader(ctx, file, filePath)
}

// ExtractFromBytes 从内存中的PDF内容提取文本
func (e *EinoPDFTextExtractor) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractFromReader(ctx, bytes.NewReader(data), uri)
}

// ExtractFromReader 从 io.Reader 提取文本
func (e *EinoPDFTextExtractor) ExtractFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader, einoParser.WithURI(uri))
	if err != nil {
		return "", fmt.Errorf("PDF解析失败 (URI %s): %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("PDF解析未返回任何文档 (URI %s)", uri)
	}

	var fullContent string
	for i, doc := range docs {
		fullContent += doc.Content
		if i < len(docs)-1 {
			fullContent += "\n\n"
		}
	}

	logger.Debug().
		Str("uri", uri).
		Int("chars", len(fullContent)).
		Dur("duration", time.Since(start)).
		Msg("PDF文本提取完成")
	return fullContent, nil
}
