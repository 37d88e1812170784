package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrServiceBusy 容量错误重试耗尽后对外暴露的统一错误
// 调用方用errors.Is判断，向用户返回"稍后再试"类消息
var ErrServiceBusy = errors.New("AI服务当前繁忙，请稍后再试")

// retryDelayPattern 服务商错误消息中嵌入的建议重试时长，例如 retryDelay":"7s"
var retryDelayPattern = regexp.MustCompile(`retryDelay":"(\d+)s"`)

// Backoff 针对容量错误(429/503)的指数退避策略
// 非容量错误立即透传，不消耗重试次数
type Backoff struct {
	MaxRetries   int           // 重试上限（不含首次调用）
	InitialDelay time.Duration // 首次等待时长
	Multiplier   float64       // 每次重试后延迟的放大系数
	MaxDelay     time.Duration // 计算延迟的上限
	MaxJitter    time.Duration // 随机抖动上限

	// 可注入的睡眠与抖动实现，测试用
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// BackoffOption Backoff的配置选项
type BackoffOption func(*Backoff)

// WithSleepFunc 替换睡眠实现（测试中记录延迟而不真正等待）
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) BackoffOption {
	return func(b *Backoff) {
		b.sleep = fn
	}
}

// WithJitterFunc 替换抖动实现（测试中返回确定值）
func WithJitterFunc(fn func() time.Duration) BackoffOption {
	return func(b *Backoff) {
		b.jitter = fn
	}
}

// NewBackoff 创建退避策略，零值参数回退到默认值
func NewBackoff(maxRetries int, initialDelay time.Duration, multiplier float64, maxDelay, maxJitter time.Duration, options ...BackoffOption) *Backoff {
	if maxRetries <= 0 {
		maxRetries = 8
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	if multiplier <= 1.0 {
		multiplier = 1.5
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	b := &Backoff{
		MaxRetries:   maxRetries,
		InitialDelay: initialDelay,
		Multiplier:   multiplier,
		MaxDelay:     maxDelay,
		MaxJitter:    maxJitter,
	}
	b.sleep = sleepContext
	b.jitter = func() time.Duration {
		if b.MaxJitter <= 0 {
			return 0
		}
		return time.Duration(rand.Int63n(int64(b.MaxJitter)))
	}

	for _, opt := range options {
		opt(b)
	}
	return b
}

// Do 执行操作，容量错误按退避策略重试
// 重试耗尽：容量错误包装为ErrServiceBusy，其他错误原样返回
func (b *Backoff) Do(ctx context.Context, op func() error) error {
	delay := b.InitialDelay

	for retries := 0; ; retries++ {
		err := op()
		if err == nil {
			return nil
		}

		if retries >= b.MaxRetries {
			if IsCapacityError(err) {
				return fmt.Errorf("%w: %s", ErrServiceBusy, err.Error())
			}
			return err
		}

		if !IsCapacityError(err) {
			return err
		}

		// 服务商在错误消息里给出建议时长时，本次等待以其为准
		wait := delay
		if suggested, ok := suggestedRetryDelay(err); ok {
			wait = suggested
		}

		if sleepErr := b.sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}

		// 指数退避加抖动，封顶MaxDelay
		next := time.Duration(float64(delay)*b.Multiplier) + b.jitter()
		if next > b.MaxDelay {
			next = b.MaxDelay
		}
		delay = next
	}
}

// IsCapacityError 判断错误消息是否表示服务商容量问题（限流或暂不可用）
func IsCapacityError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "Service Unavailable")
}

// IsRateLimited 判断错误是否为限流(429)类错误，批次节流据此加长间隔
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}

// suggestedRetryDelay 从服务商错误消息中提取建议的重试时长
func suggestedRetryDelay(err error) (time.Duration, bool) {
	matches := retryDelayPattern.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0, false
	}
	seconds, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// sleepContext 可被上下文取消的睡眠
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
