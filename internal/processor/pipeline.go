package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-insight-go/internal/config"
	"resume-insight-go/internal/constants"
	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/ratelimit"
	"resume-insight-go/internal/storage"
	"resume-insight-go/internal/types"
)

// Pipeline 分析流水线：analyze -> recommend -> score批次，严格串行
// 整个流水线同一时刻只对服务商保持一个在途请求
type Pipeline struct {
	analyzer ResumeAnalyzer
	store    *storage.Storage

	// score批次的节流参数
	scoreInterval       time.Duration
	rateLimitedInterval time.Duration

	// 可注入的睡眠与时钟，测试用
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// PipelineOption Pipeline的配置选项
type PipelineOption func(*Pipeline)

// WithScoreInterval 设置批次内每次score调用前的间隔
func WithScoreInterval(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.scoreInterval = d
	}
}

// WithRateLimitedInterval 设置命中限流后下一次调用前的加长间隔
func WithRateLimitedInterval(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.rateLimitedInterval = d
	}
}

// WithPipelineSleepFunc 替换睡眠实现（测试中记录而不等待）
func WithPipelineSleepFunc(fn func(ctx context.Context, d time.Duration) error) PipelineOption {
	return func(p *Pipeline) {
		p.sleep = fn
	}
}

// WithClock 替换时钟实现（测试中固定时间戳）
func WithClock(fn func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = fn
	}
}

// NewPipeline 创建分析流水线
func NewPipeline(analyzer ResumeAnalyzer, store *storage.Storage, cfg *config.Config, options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		analyzer:            analyzer,
		store:               store,
		scoreInterval:       constants.DefaultScoreCallInterval,
		rateLimitedInterval: constants.DefaultRateLimitedInterval,
		now:                 time.Now,
	}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}

	if cfg != nil {
		p.scoreInterval = config.GetDuration(cfg.Pipeline.ScoreCallInterval, constants.DefaultScoreCallInterval)
		p.rateLimitedInterval = config.GetDuration(cfg.Pipeline.RateLimitedInterval, constants.DefaultRateLimitedInterval)
	}

	for _, opt := range options {
		opt(p)
	}
	return p
}

// Run 执行完整分析：结构化归一化、岗位推荐、逐岗位评分，
// 结果持久化为分析blob并镜像到会话状态
// blob与会话写入失败只记录不中断，分析结果本身照常返回
func (p *Pipeline) Run(ctx context.Context, resumeText string) (*types.AnalysisResult, error) {
	analysis, err := p.analyzer.AnalyzeResume(ctx, resumeText)
	if err != nil {
		return nil, fmt.Errorf("简历分析失败: %w", err)
	}

	recommendations, err := p.analyzer.RecommendJobs(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("岗位推荐失败: %w", err)
	}

	// 逐岗位评分，严格串行：第一个岗位立即评分，此后每次调用前先等待；
	// 上一次评分命中限流时下一次等待加长
	nextPause := p.scoreInterval
	for i := range recommendations {
		if i > 0 {
			if err := p.sleep(ctx, nextPause); err != nil {
				return nil, err
			}
		}
		nextPause = p.scoreInterval

		score, scoreErr := p.analyzer.ScoreThreshold(ctx, analysis, recommendations[i].JobTitle)
		if scoreErr != nil {
			logger.Warn().
				Str("job_title", recommendations[i].JobTitle).
				Err(scoreErr).
				Msg("阈值评分降级")
			if ratelimit.IsRateLimited(scoreErr) || errors.Is(scoreErr, ratelimit.ErrServiceBusy) {
				nextPause = p.rateLimitedInterval
			}
		}
		if score == nil {
			// 防御：分析器承诺非nil，这里仍然兜底
			score = &types.ThresholdScore{
				DetailedAnalysis: "Failed to calculate threshold score due to rate limiting",
			}
		}
		recommendations[i].ThresholdScore = score
	}

	iso := p.now().UTC().Format("2006-01-02T15:04:05.000Z")
	timestamp := strings.NewReplacer(":", "-", ".", "-").Replace(iso)

	result := &types.AnalysisResult{
		ResumeAnalysis:     analysis,
		JobRecommendations: recommendations,
		Timestamp:          timestamp,
	}

	if p.store != nil {
		if name, saveErr := p.store.SaveAnalysis(ctx, result); saveErr != nil {
			logger.Error().Err(saveErr).Msg("保存分析结果失败，继续返回结果")
		} else {
			logger.Info().Str("blob", name).Msg("分析结果已持久化")
		}
		p.mirrorToSession(ctx, result)
	}

	return result, nil
}

// mirrorToSession 把分析结果镜像到会话状态，失败只记录
func (p *Pipeline) mirrorToSession(ctx context.Context, result *types.AnalysisResult) {
	if analysisJSON, err := json.Marshal(result.ResumeAnalysis); err == nil {
		if err := p.store.Sessions.Set(ctx, constants.SessionKeyResumeAnalysis, string(analysisJSON)); err != nil {
			logger.Warn().Err(err).Msg("写入会话状态resumeAnalysis失败")
		}
	}
	if recsJSON, err := json.Marshal(result.JobRecommendations); err == nil {
		if err := p.store.Sessions.Set(ctx, constants.SessionKeyJobRecommendations, string(recsJSON)); err != nil {
			logger.Warn().Err(err).Msg("写入会话状态jobRecommendations失败")
		}
	}
}
