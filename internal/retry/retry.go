// Package retry 为不可靠的网络调用提供有界指数退避重试。
// Package retry wraps an unreliable network call with bounded
// exponential-backoff retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited 限流重试耗尽后的终态错误
	// ErrRateLimited is the terminal error after exhausting attempts on rate limits.
	ErrRateLimited = errors.New("rate limit exceeded after max retries")

	// ErrExhausted 非限流的可重试错误耗尽后的终态错误
	// ErrExhausted is the terminal error after exhausting attempts on other transient failures.
	ErrExhausted = errors.New("retries exhausted")
)

// RateLimitError 标记限流（HTTP 429 等价）失败，可重试
// RateLimitError marks a rate-limit failure (HTTP 429 equivalent). Retryable.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return "rate limited: " + e.Err.Error()
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError 标记瞬时传输层失败，可重试
// TransientError marks a transient transport-level failure. Retryable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return "transient failure: " + e.Err.Error()
	}
	return "transient failure"
}

func (e *TransientError) Unwrap() error { return e.Err }

// StatusError 携带状态码和响应体的确定性失败，不重试
// StatusError is a definitive non-2xx failure carrying status and body for
// diagnostics. Never retried.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: status=%d body=%s", e.Status, e.Body)
}

// IsRetryable 判断错误是否可重试 / IsRetryable reports whether err may be retried.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}

// Options 重试参数 / Options configure a retry run.
type Options struct {
	// MaxAttempts 总尝试次数上限，默认 5 / Total attempt cap, default 5.
	MaxAttempts int
	// InitialDelay 首次重试前的等待，之后每次翻倍，默认 1s
	// InitialDelay is the wait before the first retry, doubled after each
	// retryable failure. Default 1s. No jitter.
	InitialDelay time.Duration
	// Sleep 可注入的等待实现，nil 则真实等待；等待期间响应 ctx 取消
	// Sleep is injectable for tests; nil means a real context-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do 执行 op，限流/瞬时错误按指数退避重试，其余错误立即返回。
// 耗尽后返回区分限流与其他原因的终态错误。
// Do runs op, retrying rate-limit and transient failures with exponential
// backoff. Non-retryable failures propagate immediately without consuming
// further attempts. Exhaustion yields ErrRateLimited when the final failure
// was a rate limit, ErrExhausted otherwise.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := opts.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	var rl *RateLimitError
	if errors.As(lastErr, &rl) {
		return fmt.Errorf("%w (%d attempts): %v", ErrRateLimited, attempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrExhausted, attempts, lastErr)
}

// sleepContext 等待 d，或在 ctx 取消时提前返回。等待只挂起当前调用方，
// 不阻塞其他并发工作。
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
