package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FiftySentinel/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// GuardOptions configures the resilience wrapper around a provider.
type GuardOptions struct {
	Timeout         time.Duration // per attempt
	RequestsPerSec  float64       // <= 0 disables rate limiting
	Burst           int
	MaxRetries      int
	RetryWait       time.Duration // initial backoff interval
	BreakerFailures uint32        // consecutive failures before the breaker opens
	BreakerOpen     time.Duration // how long the breaker stays open
}

// Guard wraps a Fetcher with a per-attempt timeout, a rate limiter, bounded retries
// and a circuit breaker. It is safe for concurrent use.
type Guard struct {
	next    Fetcher
	opts    GuardOptions
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewGuard wraps next. Zero options fall back to conservative defaults.
func NewGuard(next Fetcher, opts GuardOptions) *Guard {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}

	g := &Guard{
		next:    next,
		opts:    opts,
		limiter: rate.NewLimiter(limit, opts.Burst),
		logger:  log.With().Str("component", "guard").Str("provider", next.Name()).Logger(),
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    next.Name(),
		Timeout: opts.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// Unknown symbols and empty histories say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !transient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return g
}

func (g *Guard) Name() string { return g.next.Name() }

// FetchBars implements Fetcher.
func (g *Guard) FetchBars(ctx context.Context, symbol string, gran model.Granularity, period time.Duration) ([]model.OHLCV, error) {
	var bars []model.OHLCV
	operation := func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		res, err := g.breaker.Execute(func() (interface{}, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
			defer cancel()
			return g.next.FetchBars(attemptCtx, symbol, gran, period)
		})
		if err != nil {
			if !transient(err) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}
		bars, _ = res.([]model.OHLCV)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.opts.RetryWait
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(g.opts.MaxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		g.logger.Debug().Err(err).Str("symbol", symbol).Str("granularity", gran.String()).
			Dur("wait", wait).Msg("retrying fetch")
	}
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, err
	}
	return bars, nil
}

// transient reports whether err may clear on retry.
func transient(err error) bool {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return se.Temporary()
	case errors.Is(err, model.ErrInvalidGranularity), errors.Is(err, model.ErrDataUnavailable):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
