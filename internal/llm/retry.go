package llm

import (
	"context"
	"log/slog"
	"time"
)

type retrying struct {
	next     Completer
	attempts int
	delay    time.Duration
}

// WithRetry wraps c so that a failed round trip is retried up to attempts
// times in total, sleeping delay between tries. Context cancellation stops
// retrying immediately. attempts <= 1 returns c unchanged.
func WithRetry(c Completer, attempts int, delay time.Duration) Completer {
	if attempts <= 1 {
		return c
	}
	return &retrying{next: c, attempts: attempts, delay: delay}
}

func (r *retrying) Complete(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	var lastErr error
	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.delay):
			}
		}
		out, err := r.next.Complete(ctx, prompt, opts...)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		slog.Warn("LLM call failed, retrying", "attempt", i+1, "of", r.attempts, "error", err)
	}
	return "", lastErr
}
