package collector

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"FiftySentinel/internal/model"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyFetcher struct {
	failures int32
	err      error
	calls    atomic.Int32
}

func (f *flakyFetcher) Name() string { return "flaky" }

func (f *flakyFetcher) FetchBars(_ context.Context, _ string, _ model.Granularity, _ time.Duration) ([]model.OHLCV, error) {
	if n := f.calls.Add(1); n <= f.failures {
		return nil, f.err
	}
	return []model.OHLCV{{Close: 1}}, nil
}

func fastGuard(next Fetcher, retries int) *Guard {
	return NewGuard(next, GuardOptions{
		Timeout:         time.Second,
		MaxRetries:      retries,
		RetryWait:       time.Millisecond,
		BreakerFailures: 100,
	})
}

func TestGuard_RetriesTransientErrors(t *testing.T) {
	f := &flakyFetcher{failures: 2, err: &StatusError{Provider: "flaky", Code: http.StatusServiceUnavailable}}
	bars, err := fastGuard(f, 2).FetchBars(context.Background(), "AAPL", model.Daily, time.Hour)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestGuard_GivesUpAfterMaxRetries(t *testing.T) {
	f := &flakyFetcher{failures: 10, err: errors.New("connection reset")}
	_, err := fastGuard(f, 2).FetchBars(context.Background(), "AAPL", model.Daily, time.Hour)
	require.Error(t, err)
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestGuard_DoesNotRetryPermanentErrors(t *testing.T) {
	f := &flakyFetcher{failures: 10, err: &StatusError{Provider: "flaky", Code: http.StatusNotFound}}
	_, err := fastGuard(f, 3).FetchBars(context.Background(), "NOPE", model.Daily, time.Hour)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestGuard_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	f := &flakyFetcher{failures: 10, err: errors.New("connection refused")}
	g := NewGuard(f, GuardOptions{
		Timeout:         time.Second,
		RetryWait:       time.Millisecond,
		BreakerFailures: 2,
		BreakerOpen:     time.Minute,
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := g.FetchBars(ctx, "AAPL", model.Daily, time.Hour)
		require.Error(t, err)
	}
	_, err := g.FetchBars(ctx, "MSFT", model.Daily, time.Hour)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestGuard_NotFoundDoesNotTripBreaker(t *testing.T) {
	f := &flakyFetcher{failures: 3, err: &StatusError{Provider: "flaky", Code: http.StatusNotFound}}
	g := NewGuard(f, GuardOptions{Timeout: time.Second, RetryWait: time.Millisecond, BreakerFailures: 2})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := g.FetchBars(ctx, "NOPE", model.Daily, time.Hour)
		require.Error(t, err)
	}
	bars, err := g.FetchBars(ctx, "AAPL", model.Daily, time.Hour)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestGuard_PerAttemptTimeout(t *testing.T) {
	mock := &MockFetcher{Latency: 500 * time.Millisecond}
	g := NewGuard(mock, GuardOptions{Timeout: 20 * time.Millisecond, RetryWait: time.Millisecond})
	start := time.Now()
	_, err := g.FetchBars(context.Background(), "AAPL", model.Daily, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}
