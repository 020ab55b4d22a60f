package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryableFunc 可重试的操作，返回 nil 表示成功
type RetryableFunc func() error

type retryConfig struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	retryIf      func(error) bool
	onRetry      func(attempt int, err error)
}

// Option 重试选项
type Option func(*retryConfig)

// WithMaxRetries 首次调用之后最多重试 n 次，默认 3
func WithMaxRetries(n int) Option {
	return func(c *retryConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialDelay 第一次重试前的等待，之后每次翻倍，默认 1s
func WithInitialDelay(d time.Duration) Option {
	return func(c *retryConfig) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay 单次等待上限，默认 30s
func WithMaxDelay(d time.Duration) Option {
	return func(c *retryConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithRetryIf 只重试 fn 返回 true 的错误，其余错误原样返回
func WithRetryIf(fn func(error) bool) Option {
	return func(c *retryConfig) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

// WithOnRetry 每次重试前回调
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *retryConfig) {
		c.onRetry = fn
	}
}

// Do 按指数退避执行 fn，ctx 取消时立即停止
// 重试耗尽时用 %w 包装最后一次错误
func Do(ctx context.Context, fn RetryableFunc, opts ...Option) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	cfg := &retryConfig{
		maxRetries:   3,
		initialDelay: time.Second,
		maxDelay:     30 * time.Second,
		retryIf:      func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	err := fn()
	for attempt := 1; err != nil && cfg.retryIf(err); attempt++ {
		if attempt > cfg.maxRetries {
			return fmt.Errorf("retry failed after %d attempts: %w", cfg.maxRetries+1, err)
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err)
		}

		timer := time.NewTimer(backoff(attempt, cfg.initialDelay, cfg.maxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff (attempt %d/%d): %w", attempt, cfg.maxRetries, ctx.Err())
		case <-timer.C:
		}

		err = fn()
	}
	return err
}

// backoff 第 attempt 次重试的等待时间: initial * 2^(attempt-1)，不超过 limit
func backoff(attempt int, initial, limit time.Duration) time.Duration {
	d := initial
	for i := 1; i < attempt && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}
