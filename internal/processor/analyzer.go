package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-insight-go/internal/agent"
	"resume-insight-go/internal/config"
	"resume-insight-go/internal/constants"
	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/parser"
	"resume-insight-go/internal/ratelimit"
	"resume-insight-go/internal/types"
)

// errInvalidStructure 模型返回了合法JSON但形状不对，按整次失败重试
var errInvalidStructure = errors.New("无效的响应结构")

// GeminiAnalyzer 基于LLM的简历分析器，实现ResumeAnalyzer接口
// 每个操作都是：限流等待 -> 生成（退避重试容量错误）-> JSON修复 -> 字段矫正，
// 整个链路失败时按整次重试，上限maxAttempts
type GeminiAnalyzer struct {
	generator   agent.ContentGenerator
	backoff     *ratelimit.Backoff
	maxAttempts int
	// 阈值评分使用更低的温度，0表示跟随生成器默认值
	scoreTemp float64
	// 每个操作开始前的固定间隔，避免连续调用触发限流
	preCallDelay time.Duration
	// 整次重试之间的固定等待
	attemptDelay time.Duration

	// 可注入的睡眠实现，测试用
	sleep func(ctx context.Context, d time.Duration) error
}

// 确保GeminiAnalyzer实现了ResumeAnalyzer接口
var _ ResumeAnalyzer = (*GeminiAnalyzer)(nil)

// AnalyzerOption GeminiAnalyzer的配置选项
type AnalyzerOption func(*GeminiAnalyzer)

// WithBackoff 替换容量错误退避策略
func WithBackoff(b *ratelimit.Backoff) AnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.backoff = b
	}
}

// WithMaxAttempts 设置整次重试上限
func WithMaxAttempts(n int) AnalyzerOption {
	return func(a *GeminiAnalyzer) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithScoreTemperature 设置阈值评分的采样温度
func WithScoreTemperature(t float64) AnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.scoreTemp = t
	}
}

// WithPreCallDelay 设置每个操作开始前的固定间隔
func WithPreCallDelay(d time.Duration) AnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.preCallDelay = d
	}
}

// WithAttemptDelay 设置整次重试之间的等待
func WithAttemptDelay(d time.Duration) AnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.attemptDelay = d
	}
}

// WithSleepFunc 替换睡眠实现（测试中不真正等待）
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) AnalyzerOption {
	return func(a *GeminiAnalyzer) {
		a.sleep = fn
	}
}

// NewGeminiAnalyzer 创建分析器
func NewGeminiAnalyzer(generator agent.ContentGenerator, cfg *config.Config, options ...AnalyzerOption) *GeminiAnalyzer {
	a := &GeminiAnalyzer{
		generator:    generator,
		maxAttempts:  constants.DefaultMaxCallAttempts,
		preCallDelay: 3 * time.Second,
		attemptDelay: 2 * time.Second,
	}

	if cfg != nil {
		a.backoff = ratelimit.NewBackoff(
			cfg.Backoff.MaxRetries,
			time.Duration(cfg.Backoff.InitialDelayMS)*time.Millisecond,
			cfg.Backoff.Multiplier,
			time.Duration(cfg.Backoff.MaxDelayMS)*time.Millisecond,
			time.Duration(cfg.Backoff.JitterMS)*time.Millisecond,
		)
		if cfg.Pipeline.MaxCallAttempts > 0 {
			a.maxAttempts = cfg.Pipeline.MaxCallAttempts
		}
		a.scoreTemp = cfg.Gemini.ScoreTemp
	} else {
		a.backoff = ratelimit.NewBackoff(0, 0, 0, 0, 2*time.Second)
	}
	a.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	for _, opt := range options {
		opt(a)
	}
	return a
}

// generate 一次带退避的模型调用
func (a *GeminiAnalyzer) generate(ctx context.Context, prompt string, opts ...agent.CallOption) (string, error) {
	var response string
	err := a.backoff.Do(ctx, func() error {
		var genErr error
		response, genErr = a.generator.Generate(ctx, prompt, opts...)
		return genErr
	})
	return response, err
}

// callWithRetries 整次重试循环：每次失败（调用失败或JSON坏掉）等待后重来
// decode闭包负责修复JSON并做结构校验，返回errInvalidStructure同样触发整次重试
func (a *GeminiAnalyzer) callWithRetries(ctx context.Context, operation, prompt string, decode func(raw map[string]interface{}) error, opts ...agent.CallOption) error {
	if a.preCallDelay > 0 {
		if err := a.sleep(ctx, a.preCallDelay); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		response, err := a.generate(ctx, prompt, opts...)
		if err == nil {
			raw := map[string]interface{}{}
			if decodeErr := parser.DecodeModelJSON(response, &raw); decodeErr != nil {
				err = decodeErr
			} else if structErr := decode(raw); structErr != nil {
				err = structErr
			} else {
				return nil
			}
		}

		lastErr = err
		logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", a.maxAttempts).
			Err(err).
			Msg("LLM调用失败")

		if attempt == a.maxAttempts {
			break
		}
		if sleepErr := a.sleep(ctx, a.attemptDelay); sleepErr != nil {
			return sleepErr
		}
	}
	return fmt.Errorf("%s在%d次尝试后仍然失败: %w", operation, a.maxAttempts, lastErr)
}

// AnalyzeResume 把原始简历文本归一化为结构化事实
// 字段逐个矫正：类型不符的值退化为空值，绝不让单个坏字段拖垮整体
func (a *GeminiAnalyzer) AnalyzeResume(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error) {
	prompt := fmt.Sprintf(analyzePromptTemplate, resumeText)

	var analysis *types.ResumeAnalysis
	err := a.callWithRetries(ctx, "简历分析", prompt, func(raw map[string]interface{}) error {
		analysis = &types.ResumeAnalysis{
			Name:       parser.CoerceString(raw["name"]),
			Email:      parser.CoerceString(raw["email"]),
			Phone:      parser.CoerceString(raw["phone"]),
			Education:  coerceEducation(raw["education"]),
			Experience: coerceExperience(raw["experience"]),
			Skills:     parser.CoerceStringSlice(raw["skills"]),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// RecommendJobs 基于结构化分析产出岗位推荐
// 提示词要求恰好5条，但不强制校验数量；matchScore钳制到[0,100]
func (a *GeminiAnalyzer) RecommendJobs(ctx context.Context, analysis *types.ResumeAnalysis) ([]types.JobRecommendation, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("序列化简历分析失败: %w", err)
	}
	prompt := fmt.Sprintf(recommendPromptTemplate, string(analysisJSON))

	var recommendations []types.JobRecommendation
	err = a.callWithRetries(ctx, "岗位推荐", prompt, func(raw map[string]interface{}) error {
		items, ok := raw["recommendations"].([]interface{})
		if !ok {
			return errInvalidStructure
		}

		recommendations = make([]types.JobRecommendation, 0, len(items))
		for _, item := range items {
			rec, ok := item.(map[string]interface{})
			if !ok {
				continue
			}

			jobTitle := parser.CoerceString(rec["jobTitle"])
			if jobTitle == "" {
				jobTitle = "Unknown Position"
			}
			reasoning := parser.CoerceString(rec["reasoning"])
			if reasoning == "" {
				reasoning = "No reasoning provided"
			}

			recommendations = append(recommendations, types.JobRecommendation{
				JobTitle:       jobTitle,
				MatchScore:     clamp(parser.CoerceFloat(rec["matchScore"])),
				Reasoning:      reasoning,
				RequiredSkills: parser.CoerceStringSlice(rec["requiredSkills"]),
				MissingSkills:  parser.CoerceStringSlice(rec["missingSkills"]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recommendations, nil
}

// ScoreThreshold 计算契合度评分，所有数值钳制到[0,100]
// rejectionPercentage保持服务商给出的原值，不强制等于100-selectionPercentage：
// 两者不一致本身是有用的信号
// 最终失败时返回降级评分而不是nil，error仅向调用方说明降级原因
func (a *GeminiAnalyzer) ScoreThreshold(ctx context.Context, analysis *types.ResumeAnalysis, jobTitle string) (*types.ThresholdScore, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fallbackScore(), fmt.Errorf("序列化简历分析失败: %w", err)
	}
	prompt := fmt.Sprintf(scorePromptTemplate, jobTitle, string(analysisJSON))

	opts := []agent.CallOption{}
	if a.scoreTemp > 0 {
		opts = append(opts, agent.WithTemperature(a.scoreTemp))
	}

	var score *types.ThresholdScore
	err = a.callWithRetries(ctx, "阈值评分", prompt, func(raw map[string]interface{}) error {
		metrics, ok := raw["barGraphMetrics"].(map[string]interface{})
		if !ok {
			return errInvalidStructure
		}
		if _, ok := raw["selectionPercentage"].(float64); !ok {
			return errInvalidStructure
		}
		if _, ok := raw["rejectionPercentage"].(float64); !ok {
			return errInvalidStructure
		}

		detailed := parser.CoerceString(raw["detailedAnalysis"])
		if detailed == "" {
			detailed = "No detailed analysis provided"
		}

		score = &types.ThresholdScore{
			OverallScore:        clamp(parser.CoerceFloat(raw["overallScore"])),
			SelectionPercentage: clamp(parser.CoerceFloat(raw["selectionPercentage"])),
			RejectionPercentage: clamp(parser.CoerceFloat(raw["rejectionPercentage"])),
			BarGraphMetrics: types.BarGraphMetrics{
				SkillMatch:      clamp(parser.CoerceFloat(metrics["skillMatch"])),
				ExperienceMatch: clamp(parser.CoerceFloat(metrics["experienceMatch"])),
				EducationMatch:  clamp(parser.CoerceFloat(metrics["educationMatch"])),
				OverallMatch:    clamp(parser.CoerceFloat(metrics["overallMatch"])),
			},
			DetailedAnalysis: detailed,
		}
		return nil
	}, opts...)
	if err != nil {
		logger.Error().Str("job_title", jobTitle).Err(err).Msg("阈值评分最终失败，返回降级评分")
		return fallbackScore(), err
	}
	return score, nil
}

// fallbackScore 评分失败时的降级结果
func fallbackScore() *types.ThresholdScore {
	return &types.ThresholdScore{
		OverallScore:        0,
		SelectionPercentage: 0,
		RejectionPercentage: 100,
		BarGraphMetrics:     types.BarGraphMetrics{},
		DetailedAnalysis:    "The AI service is currently busy. Please try again in a few minutes.",
	}
}

// clamp 把数值钳制到[0,100]
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// coerceEducation 宽容地把任意JSON值转成学历条目列表
func coerceEducation(v interface{}) []types.EducationEntry {
	items, ok := v.([]interface{})
	if !ok {
		return []types.EducationEntry{}
	}

	entries := make([]types.EducationEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, types.EducationEntry{
			Degree:      parser.CoerceString(m["degree"]),
			Institution: parser.CoerceString(m["institution"]),
			Year:        parser.CoerceString(m["year"]),
		})
	}
	return entries
}

// coerceExperience 宽容地把任意JSON值转成经历条目列表
func coerceExperience(v interface{}) []types.ExperienceEntry {
	items, ok := v.([]interface{})
	if !ok {
		return []types.ExperienceEntry{}
	}

	entries := make([]types.ExperienceEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		entries = append(entries, types.ExperienceEntry{
			Company:     parser.CoerceString(m["company"]),
			Position:    parser.CoerceString(m["position"]),
			Duration:    parser.CoerceString(m["duration"]),
			Description: parser.CoerceString(m["description"]),
		})
	}
	return entries
}
