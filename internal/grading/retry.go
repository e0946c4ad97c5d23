package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/takeda-juku/tensaku/internal/common"
)

const (
	maxAttempts       = 3
	rateLimitBackoff  = 30 * time.Second
	transientBackoff  = 15 * time.Second
	parseRetryBackoff = 5 * time.Second
)

// Grader drives a Caller through the grade-parse-retry loop.
type Grader struct {
	caller Caller
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

func NewGrader(caller Caller, logger *slog.Logger) *Grader {
	return &Grader{
		caller: caller,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Grade sends the content blocks and parses the reply into a Result.
// Rate limits, transient service failures and malformed replies are each
// retried with their own backoff; after maxAttempts the last error is
// wrapped in ErrGradingFailed.
func (g *Grader) Grade(ctx context.Context, blocks []ContentBlock) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := g.caller.Complete(ctx, blocks)
		if err == nil {
			res, perr := ParseResult(raw)
			if perr == nil {
				return res, nil
			}
			err = perr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		delay := backoffFor(err, attempt)
		g.logger.Warn("grading.retry",
			"attempt", attempt,
			"delay", delay.String(),
			"error", err)
		if serr := g.sleep(ctx, delay); serr != nil {
			return nil, serr
		}
	}
	return nil, fmt.Errorf("%w: %w", common.ErrGradingFailed, lastErr)
}

func backoffFor(err error, attempt int) time.Duration {
	var rl *common.RateLimitError
	switch {
	case errors.As(err, &rl):
		if rl.RetryAfter > 0 {
			return rl.RetryAfter
		}
		return rateLimitBackoff * time.Duration(attempt)
	case errors.Is(err, common.ErrRateLimited):
		return rateLimitBackoff * time.Duration(attempt)
	case errors.Is(err, common.ErrMalformedResponse):
		return parseRetryBackoff
	default:
		return transientBackoff
	}
}
