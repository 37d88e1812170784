package router

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-insight-go/internal/api/handler"
	"resume-insight-go/internal/logger"
)

// AnalyzeRequest 分析请求体
type AnalyzeRequest struct {
	ResumeText string `json:"resumeText"`
}

// RegisterRoutes 注册API路由
// 路由层只做传输适配：取参数、调处理器、按错误类型映射状态码
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, jobHandler *handler.JobHandler) {
	api := h.Group("/api/v1")

	api.POST("/resume/upload", func(c context.Context, ctx *app.RequestContext) {
		c = logger.WithContext(c)
		fileHeader, err := ctx.FormFile("resume")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "No file uploaded"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "Error processing file"})
			return
		}
		defer file.Close()

		mediaType := fileHeader.Header.Get("Content-Type")
		resp, err := resumeHandler.HandleResumeUpload(c, file, fileHeader.Filename, mediaType)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/resume/analyze", func(c context.Context, ctx *app.RequestContext) {
		var req AnalyzeRequest
		if err := json.Unmarshal(ctx.Request.Body(), &req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "Invalid request body format"})
			return
		}

		result, err := resumeHandler.HandleAnalyze(c, req.ResumeText)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, result)
	})

	api.GET("/resume", func(c context.Context, ctx *app.RequestContext) {
		parsed, err := resumeHandler.HandleGetResume(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, parsed)
	})

	api.GET("/job-matches", func(c context.Context, ctx *app.RequestContext) {
		matches, err := jobHandler.HandleJobMatches(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, matches)
	})

	api.GET("/jobs", func(c context.Context, ctx *app.RequestContext) {
		skills, err := jobHandler.HandleJobs(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, skills)
	})

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}

// writeError 把业务错误映射为 {"error": msg} 响应
// 未知错误一律按500处理，不向客户端泄露内部细节
func writeError(ctx *app.RequestContext, err error) {
	var apiErr *handler.APIError
	if errors.As(err, &apiErr) {
		ctx.JSON(apiErr.Status, utils.H{"error": apiErr.Message})
		return
	}
	ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "Internal server error"})
}
