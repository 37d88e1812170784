package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"resume-insight-go/internal/logger"
)

// TextExtractor 简历文本提取器接口
type TextExtractor interface {
	// ExtractFromFile 从PDF文件提取纯文本
	ExtractFromFile(ctx context.Context, filePath string) (string, error)

	// ExtractFromReader 从io.Reader提取纯文本
	ExtractFromReader(ctx context.Context, reader io.Reader) (string, error)

	// ExtractFromBytes 从字节数组提取纯文本
	ExtractFromBytes(ctx context.Context, data []byte) (string, error)
}

// PDFTextExtractor 是基于ledongthuc/pdf的本地PDF解析器，不依赖外部服务
type PDFTextExtractor struct {
	// 单页提取失败时是否继续处理后续页面
	skipBrokenPages bool
	// 最大允许的PDF字节数，0表示不限制
	maxFileSize int64
}

// PDFOption 定义配置选项函数
type PDFOption func(*PDFTextExtractor)

// WithSkipBrokenPages 配置是否跳过解析失败的页面
func WithSkipBrokenPages(skip bool) PDFOption {
	return func(e *PDFTextExtractor) {
		e.skipBrokenPages = skip
	}
}

// WithMaxFileSize 配置最大允许的PDF字节数
func WithMaxFileSize(size int64) PDFOption {
	return func(e *PDFTextExtractor) {
		e.maxFileSize = size
	}
}

// 确保PDFTextExtractor实现了TextExtractor接口
var _ TextExtractor = (*PDFTextExtractor)(nil)

// NewPDFTextExtractor 创建一个新的本地PDF解析器
func NewPDFTextExtractor(options ...PDFOption) *PDFTextExtractor {
	extractor := &PDFTextExtractor{
		skipBrokenPages: true, // 默认跳过坏页，尽力提取剩余文本
		maxFileSize:     0,
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// ExtractFromFile 从PDF文件提取纯文本
func (e *PDFTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	startTime := time.Now()
	logger.Debug().Str("file", filePath).Msg("开始提取PDF文本")

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取PDF文件 %s 失败: %w", filePath, err)
	}

	text, err := e.ExtractFromBytes(ctx, data)
	if err != nil {
		return "", err
	}

	logger.Debug().
		Str("file", filePath).
		Int("chars", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("PDF文本提取完成")
	return text, nil
}

// ExtractFromReader 从io.Reader提取纯文本
func (e *PDFTextExtractor) ExtractFromReader(ctx context.Context, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取PDF内容失败: %w", err)
	}
	return e.ExtractFromBytes(ctx, data)
}

// ExtractFromBytes 从字节数组提取纯文本，逐页拼接
func (e *PDFTextExtractor) ExtractFromBytes(ctx context.Context, data []byte) (string, error) {
	if e.maxFileSize > 0 && int64(len(data)) > e.maxFileSize {
		return "", fmt.Errorf("PDF文件过大: %d 字节，上限 %d 字节", len(data), e.maxFileSize)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("解析PDF失败: %w", err)
	}

	var sb strings.Builder
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			if e.skipBrokenPages {
				logger.Warn().Int("page", pageNum).Err(err).Msg("页面文本提取失败，跳过")
				continue
			}
			return "", fmt.Errorf("提取第 %d 页文本失败: %w", pageNum, err)
		}

		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
