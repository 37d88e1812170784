package constants

import "time"

const (
	// 解析后JSON与分析结果的文件名后缀（目录扫描按后缀过滤）
	ParsedBlobSuffix   = "-parsed.json"
	AnalysisBlobSuffix = "-gemini-analysis.json"

	// 会话状态存储的固定键
	SessionKeyResumeAnalysis     = "resumeAnalysis"
	SessionKeyJobRecommendations = "jobRecommendations"

	// 打分批次的节流参数：每次score调用前的固定间隔，
	// 命中限流错误后下一次调用前的加长间隔
	DefaultScoreCallInterval   = 10 * time.Second
	DefaultRateLimitedInterval = 30 * time.Second

	// 单次业务操作（analyze/recommend/score）的整次重试上限
	DefaultMaxCallAttempts = 3

	// 名字未识别时的占位值
	UnknownName = "Unknown"
)
