package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insight-go/internal/agent"
	"resume-insight-go/internal/ratelimit"
	"resume-insight-go/internal/types"
)

// minimalAnalysis 提供一个最小的结构化分析结果作为后续调用的输入
func minimalAnalysis() *types.ResumeAnalysis {
	return &types.ResumeAnalysis{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Skills: []string{"java", "sql"},
	}
}

// noopSleep 测试中跳过所有等待
func noopSleep(ctx context.Context, d time.Duration) error {
	return nil
}

// newTestAnalyzer 创建一个不产生真实等待的分析器
func newTestAnalyzer(gen agent.ContentGenerator, options ...AnalyzerOption) *GeminiAnalyzer {
	base := []AnalyzerOption{
		WithPreCallDelay(0),
		WithAttemptDelay(0),
		WithSleepFunc(noopSleep),
		WithBackoff(ratelimit.NewBackoff(8, 2*time.Second, 1.5, 30*time.Second, 0,
			ratelimit.WithSleepFunc(noopSleep),
			ratelimit.WithJitterFunc(func() time.Duration { return 0 }),
		)),
	}
	return NewGeminiAnalyzer(gen, nil, append(base, options...)...)
}

func TestAnalyzeResumeParsesFencedResponse(t *testing.T) {
	gen := agent.NewMockGenerator("```json\n"+`{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"phone": "555-123-4567",
		"education": [{"degree": "B.TECH", "institution": "State University", "year": "2024"}],
		"experience": [{"company": "DevElet", "position": "Web Development Intern", "duration": "May 2024 - July 2024", "description": "Built dashboards"}],
		"skills": ["Java", "SQL"]
	}`+"\n```", nil)
	analyzer := newTestAnalyzer(gen)

	analysis, err := analyzer.AnalyzeResume(context.Background(), "resume text")
	require.NoError(t, err)
	require.NotNil(t, analysis)

	assert.Equal(t, "Jane Doe", analysis.Name)
	assert.Equal(t, "jane@example.com", analysis.Email)
	assert.Equal(t, "555-123-4567", analysis.Phone)
	require.Len(t, analysis.Education, 1)
	assert.Equal(t, "B.TECH", analysis.Education[0].Degree)
	require.Len(t, analysis.Experience, 1)
	assert.Equal(t, "DevElet", analysis.Experience[0].Company)
	assert.Equal(t, []string{"Java", "SQL"}, analysis.Skills)
	assert.Equal(t, 1, gen.CallCount())
}

func TestAnalyzeResumeCoercesMalformedFields(t *testing.T) {
	// 字段类型全错：数字姓名、字符串学历、混合类型技能
	gen := agent.NewMockGenerator(`{
		"name": 42,
		"email": null,
		"education": "none",
		"experience": [{"company": "X"}, "garbage"],
		"skills": ["go", 7, ""]
	}`, nil)
	analyzer := newTestAnalyzer(gen)

	analysis, err := analyzer.AnalyzeResume(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, "42", analysis.Name)
	assert.Equal(t, "", analysis.Email)
	assert.Empty(t, analysis.Education)
	require.Len(t, analysis.Experience, 1)
	assert.Equal(t, "X", analysis.Experience[0].Company)
	assert.Equal(t, []string{"go", "7"}, analysis.Skills)
}

func TestAnalyzeResumeExhaustsAttempts(t *testing.T) {
	gen := agent.NewMockGenerator("no json here at all", nil)
	analyzer := newTestAnalyzer(gen, WithMaxAttempts(3))

	analysis, err := analyzer.AnalyzeResume(context.Background(), "text")
	require.Error(t, err)
	assert.Nil(t, analysis)
	// 坏JSON触发整次重试，共3次调用
	assert.Equal(t, 3, gen.CallCount())
}

func TestRecommendJobsAppliesDefaultsAndClamp(t *testing.T) {
	gen := agent.NewMockGenerator(`{"recommendations": [
		{"jobTitle": "Backend Engineer", "matchScore": 150, "reasoning": "Strong fit", "requiredSkills": ["go"], "missingSkills": []},
		{"matchScore": -5}
	]}`, nil)
	analyzer := newTestAnalyzer(gen)

	recs, err := analyzer.RecommendJobs(context.Background(), minimalAnalysis())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Backend Engineer", recs[0].JobTitle)
	assert.Equal(t, float64(100), recs[0].MatchScore)
	assert.Equal(t, "Strong fit", recs[0].Reasoning)

	assert.Equal(t, "Unknown Position", recs[1].JobTitle)
	assert.Equal(t, float64(0), recs[1].MatchScore)
	assert.Equal(t, "No reasoning provided", recs[1].Reasoning)
}

func TestRecommendJobsRetriesOnInvalidStructure(t *testing.T) {
	// 第一次返回合法JSON但缺recommendations字段，整次重试后成功
	gen := agent.NewMockGeneratorSequential([]agent.MockResponse{
		{Content: `{"jobs": []}`},
		{Content: `{"recommendations": [{"jobTitle": "Data Analyst", "matchScore": 80, "reasoning": "ok"}]}`},
	})
	analyzer := newTestAnalyzer(gen)

	recs, err := analyzer.RecommendJobs(context.Background(), minimalAnalysis())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Data Analyst", recs[0].JobTitle)
	assert.Equal(t, 2, gen.CallCount())
}

func TestScoreThresholdSuccess(t *testing.T) {
	gen := agent.NewMockGenerator(`{
		"overallScore": 85,
		"selectionPercentage": 70,
		"rejectionPercentage": 30,
		"barGraphMetrics": {"skillMatch": 90, "experienceMatch": 110, "educationMatch": -3, "overallMatch": 85},
		"detailedAnalysis": "Solid candidate"
	}`, nil)
	analyzer := newTestAnalyzer(gen)

	score, err := analyzer.ScoreThreshold(context.Background(), minimalAnalysis(), "Frontend Developer")
	require.NoError(t, err)
	require.NotNil(t, score)

	assert.Equal(t, float64(85), score.OverallScore)
	assert.Equal(t, float64(70), score.SelectionPercentage)
	assert.Equal(t, float64(30), score.RejectionPercentage)
	assert.Equal(t, float64(90), score.BarGraphMetrics.SkillMatch)
	assert.Equal(t, float64(100), score.BarGraphMetrics.ExperienceMatch)
	assert.Equal(t, float64(0), score.BarGraphMetrics.EducationMatch)
	assert.Equal(t, "Solid candidate", score.DetailedAnalysis)
}

func TestScoreThresholdRejectsMissingMetrics(t *testing.T) {
	gen := agent.NewMockGenerator(`{"overallScore": 85, "selectionPercentage": 70, "rejectionPercentage": 30}`, nil)
	analyzer := newTestAnalyzer(gen, WithMaxAttempts(2))

	score, err := analyzer.ScoreThreshold(context.Background(), minimalAnalysis(), "Backend Engineer")
	require.Error(t, err)
	// 缺barGraphMetrics按结构错误整次重试，耗尽后降级
	assert.Equal(t, 2, gen.CallCount())
	require.NotNil(t, score)
	assert.Equal(t, float64(100), score.RejectionPercentage)
}

func TestScoreThresholdFallbackOnFailure(t *testing.T) {
	gen := agent.NewMockGenerator("", errors.New("invalid api key"))
	analyzer := newTestAnalyzer(gen, WithMaxAttempts(3))

	score, err := analyzer.ScoreThreshold(context.Background(), minimalAnalysis(), "Java Developer")
	require.Error(t, err)
	require.NotNil(t, score)

	assert.Equal(t, float64(0), score.OverallScore)
	assert.Equal(t, float64(0), score.SelectionPercentage)
	assert.Equal(t, float64(100), score.RejectionPercentage)
	assert.Equal(t, float64(0), score.BarGraphMetrics.SkillMatch)
	assert.Equal(t, "The AI service is currently busy. Please try again in a few minutes.", score.DetailedAnalysis)
}

func TestAnalyzeResumeRecoversFromRateLimits(t *testing.T) {
	// 前两次429由退避策略消化，第三次成功，整次尝试计数不消耗
	gen := agent.NewMockGeneratorSequential([]agent.MockResponse{
		{Error: errors.New("429 Too Many Requests")},
		{Error: errors.New("429 Too Many Requests")},
		{Content: `{"name": "Third Try", "skills": ["go"]}`},
	})

	var sleeps []time.Duration
	backoff := ratelimit.NewBackoff(8, 2*time.Second, 1.5, 30*time.Second, 0,
		ratelimit.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
		ratelimit.WithJitterFunc(func() time.Duration { return 0 }),
	)
	analyzer := newTestAnalyzer(gen, WithBackoff(backoff))

	analysis, err := analyzer.AnalyzeResume(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Third Try", analysis.Name)
	assert.Equal(t, 3, gen.CallCount())

	require.Len(t, sleeps, 2)
	total := sleeps[0] + sleeps[1]
	assert.GreaterOrEqual(t, total, 2*time.Second+3*time.Second)
}
