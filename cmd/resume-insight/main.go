package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"resume-insight-go/internal/agent"
	"resume-insight-go/internal/api/handler"
	"resume-insight-go/internal/api/router"
	"resume-insight-go/internal/config"
	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/parser"
	"resume-insight-go/internal/processor"
	"resume-insight-go/internal/storage"
)

func main() {
	// .env文件存在则加载（GEMINI_API_KEY等敏感配置的本地开发入口）
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var configPath string
	var initConfig string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.StringVar(&initConfig, "init-config", "", "在指定路径生成示例配置文件后退出")
	pflag.Parse()

	if initConfig != "" {
		if err := config.CreateSampleConfig(initConfig); err != nil {
			logger.Init(logger.Config{Level: "info", Format: "pretty"})
			logger.Fatal().Err(err).Msg("生成示例配置失败")
		}
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Init(logger.Config{Level: "info", Format: "pretty"})
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	initLogger(cfg)
	logger.Info().Str("config", configPath).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 存储管理器：blob存储 + 会话状态
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}

	// Gemini生成器，外面包一层QPM限流
	geminiGenerator, err := agent.NewGeminiGenerator(ctx, cfg.Gemini)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化Gemini生成器失败")
	}
	generator := agent.NewLimitedGenerator(geminiGenerator, cfg.Gemini.QPM)
	logger.Info().Str("model", geminiGenerator.Model()).Int("qpm", cfg.Gemini.QPM).Msg("Gemini生成器已就绪")

	// 分析器与流水线
	analyzer := processor.NewGeminiAnalyzer(generator, cfg)
	pipeline := processor.NewPipeline(analyzer, storageManager, cfg)

	// 启发式抽取器：识别锚点来自配置
	extractor := newExtractorFromConfig(cfg)
	textExtractor := parser.NewPDFTextExtractor()

	resumeHandler := handler.NewResumeHandler(storageManager, textExtractor, extractor, pipeline)
	jobHandler := handler.NewJobHandler(storageManager)

	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
	)
	router.RegisterRoutes(h, resumeHandler, jobHandler)

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器已启动")

	// 等待终止信号后优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统并桥接hertz内部日志
func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	logger.Logger = logger.Logger.With().
		Str("app", "resume-insight").
		Logger()

	glog.SetLogger(hertzadapter.From(logger.Logger))
	glog.SetLevel(glog.LevelInfo)
}

// newExtractorFromConfig 把配置中的识别锚点装配进抽取器
// 配置缺省的锚点保持抽取器自身的默认值
func newExtractorFromConfig(cfg *config.Config) *parser.FieldExtractor {
	options := []parser.FieldExtractorOption{}
	if len(cfg.Extractor.CanonicalNames) > 0 {
		options = append(options, parser.WithCanonicalNames(cfg.Extractor.CanonicalNames))
	}
	if len(cfg.Extractor.KnownEmployers) > 0 {
		options = append(options, parser.WithKnownEmployers(cfg.Extractor.KnownEmployers))
	}
	if cfg.Extractor.PositionKeyword != "" {
		options = append(options, parser.WithPositionKeyword(cfg.Extractor.PositionKeyword))
	}
	if len(cfg.Extractor.DurationYears) > 0 {
		options = append(options, parser.WithDurationYears(cfg.Extractor.DurationYears))
	}
	if len(cfg.Extractor.SkillVocabulary) > 0 {
		options = append(options, parser.WithSkillVocabulary(cfg.Extractor.SkillVocabulary))
	}
	return parser.NewFieldExtractor(options...)
}
