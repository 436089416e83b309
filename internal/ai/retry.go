package ai

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultRetryBackoff = 500 * time.Millisecond

type retryCompleter struct {
	inner    ICompleter
	attempts int
	backoff  time.Duration
}

// WithRetry wraps a completer so that ErrUnavailable is retried up to
// attempts times with doubling backoff. Other errors surface immediately.
func WithRetry(inner ICompleter, attempts int) ICompleter {
	if attempts <= 1 {
		return inner
	}
	return &retryCompleter{inner: inner, attempts: attempts, backoff: defaultRetryBackoff}
}

func (r *retryCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, r.backoff<<(attempt-1)); err != nil {
				return nil, err
			}
			logutil.GetLogger(ctx).Warn("retrying completion", zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}
		res, err := r.inner.Complete(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

type retryEmbedder struct {
	inner    IEmbedder
	attempts int
	backoff  time.Duration
}

func WithEmbedRetry(inner IEmbedder, attempts int) IEmbedder {
	if attempts <= 1 {
		return inner
	}
	return &retryEmbedder{inner: inner, attempts: attempts, backoff: defaultRetryBackoff}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) (*EmbedResult, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, r.backoff<<(attempt-1)); err != nil {
				return nil, err
			}
			logutil.GetLogger(ctx).Warn("retrying embedding", zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}
		res, err := r.inner.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *retryEmbedder) ModelName() string {
	return r.inner.ModelName()
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
