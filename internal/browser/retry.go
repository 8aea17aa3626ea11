package browser

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig shapes the exponential backoff applied by RetryWithBackoff.
type RetryConfig struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     bool
}

// DefaultRetryConfig matches the crawl-side retry policy: 3 retries starting
// at 2s, capped at 30s, with jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Jitter: true}
}

// RetryWithBackoff runs op until it succeeds or the retry budget is spent,
// doubling the delay between attempts. Context cancellation is terminal;
// every other error is retried.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var out T

	b := retry.NewExponential(cfg.BaseDelay)
	if cfg.Jitter {
		b = retry.WithJitterPercent(50, b)
	}
	b = retry.WithCappedDuration(cfg.MaxDelay, b)
	b = retry.WithMaxRetries(cfg.MaxRetries, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})
	return out, err
}
