package agent

import (
	"context"

	"resume-insight-go/internal/logger"
	"resume-insight-go/internal/ratelimit"
)

// LimitedGenerator 给底层生成器加一层QPM限流
// 在调用外部API前先从令牌桶取令牌，保证整个进程对服务商的调用频率可控
type LimitedGenerator struct {
	inner  ContentGenerator
	bucket *ratelimit.TokenBucket
}

// 确保LimitedGenerator实现了ContentGenerator接口
var _ ContentGenerator = (*LimitedGenerator)(nil)

// NewLimitedGenerator 包装生成器并按QPM限流
// qpm<=0时不限流，直接返回原生成器
func NewLimitedGenerator(inner ContentGenerator, qpm int) ContentGenerator {
	if qpm <= 0 {
		return inner
	}
	return &LimitedGenerator{
		inner:  inner,
		bucket: ratelimit.NewTokenBucket(qpm, qpm),
	}
}

// Generate 先获取令牌再转发给底层生成器
func (g *LimitedGenerator) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	if err := g.bucket.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("等待限流令牌时取消")
		return "", err
	}
	return g.inner.Generate(ctx, prompt, opts...)
}
