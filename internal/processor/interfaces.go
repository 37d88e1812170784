package processor

import (
	"context"

	"resume-insight-go/internal/types"
)

// ResumeAnalyzer 简历AI分析能力接口
// 三个操作对应三次独立的LLM调用，流水线按固定顺序编排它们
type ResumeAnalyzer interface {
	// AnalyzeResume 把原始简历文本归一化为结构化事实
	AnalyzeResume(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error)

	// RecommendJobs 基于结构化分析产出岗位推荐列表
	RecommendJobs(ctx context.Context, analysis *types.ResumeAnalysis) ([]types.JobRecommendation, error)

	// ScoreThreshold 计算一个(简历, 岗位)对的契合度评分
	// 返回的评分永远非nil：最终失败时给出降级评分，error仅作为降级原因的信号
	ScoreThreshold(ctx context.Context, analysis *types.ResumeAnalysis, jobTitle string) (*types.ThresholdScore, error)
}
