package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofrs/uuid/v5"

	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/parser"
	"resume-insight-go/internal/processor"
	"resume-insight-go/internal/ratelimit"
	"resume-insight-go/internal/storage"
	"resume-insight-go/internal/types"
)

// ResumeHandler 简历处理器，负责协调上传、解析与分析流程
// 方法与传输层无关：路由层负责从hertz上下文取出参数再调用这里
type ResumeHandler struct {
	store         *storage.Storage
	textExtractor parser.TextExtractor
	extractor     *parser.FieldExtractor
	pipeline      *processor.Pipeline
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(store *storage.Storage, textExtractor parser.TextExtractor, extractor *parser.FieldExtractor, pipeline *processor.Pipeline) *ResumeHandler {
	return &ResumeHandler{
		store:         store,
		textExtractor: textExtractor,
		extractor:     extractor,
		pipeline:      pipeline,
	}
}

// UploadResponse 上传响应：成功消息加完整的解析记录（字段平铺）
type UploadResponse struct {
	Message string `json:"message"`
	types.ParsedResume
}

// HandleResumeUpload 处理简历上传：校验媒体类型、持久化原始文件、
// 提取文本、运行启发式抽取、持久化解析结果
// 媒体类型校验失败时不写入任何blob；原始文件落盘后提取失败则保留原始blob
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, filename, mediaType string) (*UploadResponse, error) {
	if reader == nil || filename == "" {
		return nil, NewAPIError(400, "No file uploaded")
	}

	lowerType := strings.ToLower(mediaType)
	if !strings.Contains(lowerType, "pdf") && !strings.Contains(lowerType, "word") {
		logger.Info().Str("media_type", mediaType).Str("filename", filename).Msg("拒绝不支持的文件类型")
		return nil, NewAPIError(400, "Please upload a PDF file")
	}

	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		logger.Error().Err(err).Msg("读取上传文件内容失败")
		return nil, NewAPIError(500, "Error processing file")
	}

	// 提交ID只用于日志串联，不进入响应
	submissionID := ""
	if uuidV7, err := uuid.NewV7(); err == nil {
		submissionID = uuidV7.String()
	}
	logger.Info().
		Str("submission_id", submissionID).
		Str("filename", filename).
		Str("media_type", mediaType).
		Int("bytes", len(fileBytes)).
		Msg("收到简历上传")

	rawName, err := h.store.SaveUpload(ctx, filename, fileBytes, mediaType)
	if err != nil {
		logger.Error().Str("submission_id", submissionID).Err(err).Msg("保存原始文件失败")
		return nil, NewAPIError(500, "Error processing file")
	}

	text, err := h.textExtractor.ExtractFromBytes(ctx, fileBytes)
	if err != nil {
		logger.Error().Str("submission_id", submissionID).Err(err).Msg("PDF文本提取失败")
		return nil, NewAPIError(400, "Error processing PDF file. Please make sure you uploaded a valid PDF.")
	}

	parsed := h.extractor.ParseResume(text)

	parsedName, err := h.store.SaveParsed(ctx, parsed)
	if err != nil {
		logger.Error().Str("submission_id", submissionID).Err(err).Msg("保存解析结果失败")
		return nil, NewAPIError(500, "Error processing file")
	}

	logger.Ctx(ctx).Info().
		Str("submission_id", submissionID).
		Str("raw_blob", rawName).
		Str("parsed_blob", parsedName).
		Int("text_chars", len(text)).
		Int("skills", len(parsed.Skills)).
		Msg("简历上传解析完成")

	return &UploadResponse{
		Message:      "File uploaded and parsed successfully",
		ParsedResume: *parsed,
	}, nil
}

// HandleAnalyze 处理AI分析请求：校验输入后运行完整流水线
func (h *ResumeHandler) HandleAnalyze(ctx context.Context, resumeText string) (*types.AnalysisResult, error) {
	if resumeText == "" {
		return nil, NewAPIError(400, "Resume text is required")
	}
	if strings.TrimSpace(resumeText) == "" {
		return nil, NewAPIError(400, "Resume text cannot be empty")
	}

	result, err := h.pipeline.Run(ctx, resumeText)
	if err != nil {
		if errors.Is(err, ratelimit.ErrServiceBusy) {
			return nil, NewAPIError(503, "The AI service is currently busy. Please try again in a few minutes.")
		}
		logger.Error().Err(err).Msg("分析流水线失败")
		return nil, NewAPIError(500, "Analysis failed: "+err.Error())
	}
	return result, nil
}

// HandleGetResume 返回最近一次的解析记录
func (h *ResumeHandler) HandleGetResume(ctx context.Context) (*types.ParsedResume, error) {
	parsed, err := h.store.LatestParsed(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewAPIError(404, "No resume uploaded yet")
		}
		logger.Error().Err(err).Msg("读取解析记录失败")
		return nil, NewAPIError(500, "Failed to fetch resume data")
	}

	if parsed.Text == "" {
		return nil, NewAPIError(400, "Invalid resume data format")
	}
	return parsed, nil
}
