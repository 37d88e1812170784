package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insight-go/internal/constants"
	"resume-insight-go/internal/ratelimit"
	"resume-insight-go/internal/storage"
	"resume-insight-go/internal/types"
)

// fakeAnalyzer 脚本化的ResumeAnalyzer，按岗位名返回预设评分
type fakeAnalyzer struct {
	analysis    *types.ResumeAnalysis
	analysisErr error
	recs        []types.JobRecommendation
	recsErr     error
	scoreFn     func(jobTitle string) (*types.ThresholdScore, error)

	scoredTitles []string
}

var _ ResumeAnalyzer = (*fakeAnalyzer)(nil)

func (f *fakeAnalyzer) AnalyzeResume(ctx context.Context, resumeText string) (*types.ResumeAnalysis, error) {
	return f.analysis, f.analysisErr
}

func (f *fakeAnalyzer) RecommendJobs(ctx context.Context, analysis *types.ResumeAnalysis) ([]types.JobRecommendation, error) {
	return f.recs, f.recsErr
}

func (f *fakeAnalyzer) ScoreThreshold(ctx context.Context, analysis *types.ResumeAnalysis, jobTitle string) (*types.ThresholdScore, error) {
	f.scoredTitles = append(f.scoredTitles, jobTitle)
	if f.scoreFn != nil {
		return f.scoreFn(jobTitle)
	}
	return &types.ThresholdScore{OverallScore: 80, DetailedAnalysis: "ok"}, nil
}

// failingBlobStore 所有写入都失败的blob存储
type failingBlobStore struct{}

func (failingBlobStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	return errors.New("磁盘已满")
}

func (failingBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	return nil, storage.ErrNotFound
}

func (failingBlobStore) LatestBySuffix(ctx context.Context, suffix string) (string, []byte, error) {
	return "", nil, storage.ErrNotFound
}

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	return storage.NewStorageWith(blobs, storage.NewMemorySessionStore())
}

func newTestPipeline(analyzer ResumeAnalyzer, store *storage.Storage, sleeps *[]time.Duration) *Pipeline {
	return NewPipeline(analyzer, store, nil,
		WithPipelineSleepFunc(func(ctx context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		}),
		WithClock(func() time.Time {
			return time.Date(2026, 9, 1, 12, 30, 45, 123_000_000, time.UTC)
		}),
	)
}

func TestPipelineRunHappyPath(t *testing.T) {
	fake := &fakeAnalyzer{
		analysis: minimalAnalysis(),
		recs: []types.JobRecommendation{
			{JobTitle: "Frontend Developer", MatchScore: 85},
			{JobTitle: "Java Developer", MatchScore: 75},
		},
	}
	store := newTestStore(t)
	var sleeps []time.Duration
	p := newTestPipeline(fake, store, &sleeps)

	result, err := p.Run(context.Background(), "resume text")
	require.NoError(t, err)
	require.NotNil(t, result)

	// 每条推荐都带上评分，评分顺序与推荐顺序一致
	assert.Equal(t, []string{"Frontend Developer", "Java Developer"}, fake.scoredTitles)
	for _, rec := range result.JobRecommendations {
		require.NotNil(t, rec.ThresholdScore)
		assert.Equal(t, float64(80), rec.ThresholdScore.OverallScore)
	}

	// 第一个岗位立即评分，第二个岗位前等待默认间隔
	assert.Equal(t, []time.Duration{constants.DefaultScoreCallInterval}, sleeps)

	// 时间戳为ISO格式去掉冒号和点
	assert.Equal(t, "2026-09-01T12-30-45-123Z", result.Timestamp)

	// 分析blob以timestamp为前缀持久化，内容可完整读回
	data, err := store.Blobs.Get(context.Background(), result.Timestamp+constants.AnalysisBlobSuffix)
	require.NoError(t, err)
	var saved types.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, result.Timestamp, saved.Timestamp)
	assert.Equal(t, "Jane Doe", saved.ResumeAnalysis.Name)

	// 会话状态被镜像
	mirrored, err := store.Sessions.Get(context.Background(), constants.SessionKeyResumeAnalysis)
	require.NoError(t, err)
	var mirroredAnalysis types.ResumeAnalysis
	require.NoError(t, json.Unmarshal([]byte(mirrored), &mirroredAnalysis))
	assert.Equal(t, "Jane Doe", mirroredAnalysis.Name)

	recsMirrored, err := store.Sessions.Get(context.Background(), constants.SessionKeyJobRecommendations)
	require.NoError(t, err)
	var mirroredRecs []types.JobRecommendation
	require.NoError(t, json.Unmarshal([]byte(recsMirrored), &mirroredRecs))
	assert.Len(t, mirroredRecs, 2)
}

func TestPipelineStretchesPauseAfterRateLimit(t *testing.T) {
	fake := &fakeAnalyzer{
		analysis: minimalAnalysis(),
		recs: []types.JobRecommendation{
			{JobTitle: "Job A"},
			{JobTitle: "Job B"},
			{JobTitle: "Job C"},
		},
	}
	fake.scoreFn = func(jobTitle string) (*types.ThresholdScore, error) {
		if jobTitle == "Job A" {
			return &types.ThresholdScore{RejectionPercentage: 100},
				fmt.Errorf("阈值评分在3次尝试后仍然失败: %w", ratelimit.ErrServiceBusy)
		}
		return &types.ThresholdScore{OverallScore: 70}, nil
	}

	var sleeps []time.Duration
	p := newTestPipeline(fake, newTestStore(t), &sleeps)

	result, err := p.Run(context.Background(), "text")
	require.NoError(t, err)

	// Job A限流降级后，Job B前的等待被加长；Job C前恢复默认间隔
	assert.Equal(t, []time.Duration{
		constants.DefaultRateLimitedInterval,
		constants.DefaultScoreCallInterval,
	}, sleeps)

	// 降级评分照常挂在推荐上，流水线不失败
	require.NotNil(t, result.JobRecommendations[0].ThresholdScore)
	assert.Equal(t, float64(100), result.JobRecommendations[0].ThresholdScore.RejectionPercentage)
}

func TestPipelineAnalyzeFailurePropagates(t *testing.T) {
	fake := &fakeAnalyzer{analysisErr: errors.New("简历分析在3次尝试后仍然失败")}
	p := newTestPipeline(fake, newTestStore(t), nil)

	result, err := p.Run(context.Background(), "text")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, fake.scoredTitles)
}

func TestPipelineSaveFailureSwallowed(t *testing.T) {
	fake := &fakeAnalyzer{
		analysis: minimalAnalysis(),
		recs:     []types.JobRecommendation{{JobTitle: "Job A"}},
	}
	store := storage.NewStorageWith(failingBlobStore{}, storage.NewMemorySessionStore())
	p := newTestPipeline(fake, store, nil)

	// blob写入失败只记录，分析结果照常返回
	result, err := p.Run(context.Background(), "text")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.JobRecommendations[0].ThresholdScore)
}

func TestPipelineNilScoreFallback(t *testing.T) {
	fake := &fakeAnalyzer{
		analysis: minimalAnalysis(),
		recs:     []types.JobRecommendation{{JobTitle: "Job A"}},
	}
	fake.scoreFn = func(jobTitle string) (*types.ThresholdScore, error) {
		return nil, errors.New("429 Too Many Requests")
	}
	p := newTestPipeline(fake, newTestStore(t), nil)

	result, err := p.Run(context.Background(), "text")
	require.NoError(t, err)
	score := result.JobRecommendations[0].ThresholdScore
	require.NotNil(t, score)
	assert.Equal(t, "Failed to calculate threshold score due to rate limiting", score.DetailedAnalysis)
}
