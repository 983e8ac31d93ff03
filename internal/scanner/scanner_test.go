package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"FiftySentinel/internal/collector"
	"FiftySentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ohlc(t time.Time, o, h, l, c float64) model.OHLCV {
	return model.OHLCV{Time: t, Open: o, High: h, Low: l, Close: c}
}

var (
	// Previous week 90..110 (level 100); current week breaks the low and trades above the level.
	weeklySignal = []model.OHLCV{
		ohlc(at(2026, 10, 5), 100, 110, 90, 104),
		ohlc(at(2026, 10, 12), 95, 105, 85, 100),
	}
	weeklyInside = []model.OHLCV{
		ohlc(at(2026, 10, 5), 100, 110, 90, 104),
		ohlc(at(2026, 10, 12), 95, 108, 92, 100),
	}
	monthlySignal = []model.OHLCV{
		ohlc(at(2026, 9, 1), 100, 110, 90, 104),
		ohlc(at(2026, 10, 1), 95, 115, 95, 100),
	}
	monthlyInside = []model.OHLCV{
		ohlc(at(2026, 9, 1), 100, 110, 90, 104),
		ohlc(at(2026, 10, 1), 105, 109, 91, 100),
	}
	// Starts below 100, breaks 90, then recrosses 100.
	dailyUp = []model.OHLCV{
		ohlc(at(2026, 10, 1), 95, 99, 92, 93),
		ohlc(at(2026, 10, 12), 95, 99, 92, 93),
		ohlc(at(2026, 10, 13), 93, 96, 88, 90),
		ohlc(at(2026, 10, 14), 90, 101, 89, 100),
	}
)

func fixture() *collector.MockFetcher {
	return &collector.MockFetcher{
		Bars: map[string]map[model.Granularity][]model.OHLCV{
			"AAPL": {model.Weekly: weeklySignal, model.Monthly: monthlySignal, model.Daily: dailyUp},
			"MSFT": {model.Weekly: weeklySignal, model.Monthly: monthlyInside, model.Daily: dailyUp},
			"TSLA": {model.Weekly: weeklyInside, model.Monthly: monthlySignal, model.Daily: dailyUp},
		},
		Errors: map[string]error{"BAD": errors.New("connection reset")},
	}
}

func mustChecks(t *testing.T, specs ...string) []model.Check {
	t.Helper()
	checks := make([]model.Check, 0, len(specs))
	for _, s := range specs {
		c, err := model.ParseCheck(s)
		require.NoError(t, err)
		checks = append(checks, c)
	}
	return checks
}

func TestRun_SignalsAndIntersection(t *testing.T) {
	s := New(fixture(), Options{Concurrency: 4})
	report, err := s.Run(context.Background(), []string{"TSLA", "AAPL", "MSFT", "BAD"},
		mustChecks(t, "signal:weekly", "signal:monthly"))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.Tickers)
	assert.Equal(t, []string{"AAPL", "MSFT"}, report.Signals[model.Weekly])
	assert.Equal(t, []string{"AAPL", "TSLA"}, report.Signals[model.Monthly])
	assert.Equal(t, []string{"AAPL"}, report.SignalIntersection)
	assert.Equal(t, []string{"BAD"}, report.Failed)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRun_IntersectionMatchesPerGranularitySets(t *testing.T) {
	mock := fixture()
	symbols := []string{"AAPL", "MSFT", "TSLA", "BAD"}
	report, err := New(mock, Options{}).Run(context.Background(), symbols, mustChecks(t, "signal:weekly", "signal:monthly"))
	require.NoError(t, err)

	for _, sym := range symbols {
		both := contains(report.Signals[model.Weekly], sym) && contains(report.Signals[model.Monthly], sym)
		assert.Equal(t, both, contains(report.SignalIntersection, sym), sym)
	}
}

func TestRun_Directions(t *testing.T) {
	report, err := New(fixture(), Options{}).Run(context.Background(), []string{"AAPL", "MSFT"},
		mustChecks(t, "direction:weekly", "direction:monthly"))
	require.NoError(t, err)

	assert.Equal(t, map[string]model.Direction{"AAPL": model.DirectionUp, "MSFT": model.DirectionUp}, report.Directions[model.Weekly])
	// MSFT opened the month above the level and then traded below it without breaking the high.
	assert.Equal(t, map[string]model.Direction{"AAPL": model.DirectionUp}, report.Directions[model.Monthly])
	assert.Equal(t, []string{"AAPL - up"}, report.DirectionIntersection)
	assert.Empty(t, report.Failed)
}

func TestJoinDirections(t *testing.T) {
	grans := []model.Granularity{model.Weekly, model.Monthly}
	dirs := map[model.Granularity]map[string]model.Direction{
		model.Weekly:  {"AAPL": model.DirectionUp, "MSFT": model.DirectionDown},
		model.Monthly: {"AAPL": model.DirectionUp, "MSFT": model.DirectionUp},
	}
	assert.Equal(t, "up", joinDirections("AAPL", grans, dirs))
	assert.Equal(t, "down/up", joinDirections("MSFT", grans, dirs))
}

func TestRun_SharesFetchesAcrossChecks(t *testing.T) {
	mock := fixture()
	_, err := New(mock, Options{Concurrency: 8}).Run(context.Background(), []string{"AAPL", "AAPL", "MSFT"},
		mustChecks(t, "signal:weekly", "direction:weekly", "direction:monthly", "signal:monthly"))
	require.NoError(t, err)

	for _, sym := range []string{"AAPL", "MSFT"} {
		for _, g := range model.Granularities {
			assert.Equal(t, 1, mock.Calls(sym, g), "%s %s", sym, g)
		}
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	mock := &collector.MockFetcher{Latency: 10 * time.Millisecond}
	symbols := make([]string, 20)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("T%02d", i)
	}
	report, err := New(mock, Options{Concurrency: 3}).Run(context.Background(), symbols, mustChecks(t, "signal:daily"))
	require.NoError(t, err)

	assert.LessOrEqual(t, mock.MaxInFlight(), 3)
	assert.Equal(t, 20, report.Tickers)
	assert.Empty(t, report.Failed)
}

func TestRun_RejectsInvalidChecksBeforeFetching(t *testing.T) {
	mock := fixture()
	s := New(mock, Options{})

	_, err := s.Run(context.Background(), []string{"AAPL"}, []model.Check{{Variant: model.VariantDirection, Granularity: model.Daily}})
	assert.ErrorIs(t, err, model.ErrInvalidGranularity)

	_, err = s.Run(context.Background(), []string{"AAPL"}, []model.Check{{Variant: "momentum", Granularity: model.Weekly}})
	assert.ErrorIs(t, err, model.ErrInvalidVariant)

	_, err = s.Run(context.Background(), []string{"AAPL"}, nil)
	assert.Error(t, err)

	assert.Zero(t, mock.Calls("AAPL", model.Daily))
	assert.Zero(t, mock.Calls("AAPL", model.Weekly))
}

func TestRun_EmptyBatch(t *testing.T) {
	report, err := New(fixture(), Options{}).Run(context.Background(), nil, mustChecks(t, "signal:weekly"))
	require.NoError(t, err)
	assert.Empty(t, report.Signals[model.Weekly])
	assert.Empty(t, report.SignalIntersection)
	assert.Zero(t, report.Tickers)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
