package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"resume-insight-go/internal/config"
	"resume-insight-go/internal/logger"
)

const defaultModel = "gemini-1.5-flash"

// ContentGenerator 是文本生成的统一抽象
// 编排层只依赖这个接口，测试时用脚本化的mock替换真实模型
type ContentGenerator interface {
	// Generate 发送提示词并返回模型的文本响应
	Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error)
}

// callOptions 单次调用的可覆盖参数
type callOptions struct {
	temperature *float64
}

// CallOption 单次调用级别的配置选项
type CallOption func(*callOptions)

// WithTemperature 覆盖本次调用的采样温度
// 打分调用用更低的温度换取数值稳定性
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) {
		o.temperature = &t
	}
}

// GeminiGenerator 封装Google GenAI客户端
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
	genConfig config.GeminiConfig
}

// 确保GeminiGenerator实现了ContentGenerator接口
var _ ContentGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator 创建Gemini生成器
func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig) (*GeminiGenerator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("缺少Gemini API密钥")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建genai客户端失败: %w", err)
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultModel
	}

	return &GeminiGenerator{
		client:    client,
		modelName: modelName,
		genConfig: cfg,
	}, nil
}

// Generate 发送提示词到Gemini并返回拼接后的文本响应
// 这里不做重试，容量类错误原样向上抛，由调用方的退避策略处理
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("Gemini生成器未初始化")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("提示词不能为空")
	}

	options := &callOptions{}
	for _, opt := range opts {
		opt(options)
	}

	temperature := g.genConfig.Temperature
	if options.temperature != nil {
		temperature = *options.temperature
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(temperature)),
		TopK:            genai.Ptr(float32(g.genConfig.TopK)),
		TopP:            genai.Ptr(float32(g.genConfig.TopP)),
		MaxOutputTokens: int32(g.genConfig.MaxOutputTokens),
		SafetySettings:  defaultSafetySettings(),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("Gemini生成内容失败: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("Gemini返回了空响应")
	}

	logger.Debug().
		Str("model", g.modelName).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(output)).
		Msg("Gemini调用完成")
	return output, nil
}

// Model 返回当前使用的模型名
func (g *GeminiGenerator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

// defaultSafetySettings 四个危害类别统一设置为中等以上拦截
func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	}
}
