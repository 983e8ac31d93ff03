package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"FiftySentinel/internal/model"
)

// Fetcher retrieves raw bar series from a market-data provider.
type Fetcher interface {
	// FetchBars returns bars for symbol at granularity g covering at least period, oldest first.
	FetchBars(ctx context.Context, symbol string, g model.Granularity, period time.Duration) ([]model.OHLCV, error)
	Name() string
}

// StatusError is returned when a provider answers with a non-200 status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Provider, e.Code, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// barsFor estimates how many bars of granularity g cover period.
func barsFor(g model.Granularity, period time.Duration) int {
	days := int(period.Hours() / 24)
	if days < 1 {
		days = 1
	}
	switch g {
	case model.Daily:
		return days
	case model.Weekly:
		return days/7 + 1
	case model.Monthly:
		return days/30 + 1
	default:
		return days
	}
}
