package model

import (
	"fmt"
	"strings"
	"time"
)

// OHLCV represents a single candlestick bar. Bars are never mutated once produced.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Granularity is the period length a bar represents.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Granularities lists every supported granularity, finest first.
var Granularities = []Granularity{Daily, Weekly, Monthly}

// ParseGranularity accepts the canonical names and the provider interval codes (1d, 1wk, 1mo).
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "d", "1d":
		return Daily, nil
	case "weekly", "week", "wk", "w", "1wk":
		return Weekly, nil
	case "monthly", "month", "mo", "m", "1mo":
		return Monthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

func (g Granularity) String() string { return string(g) }

// Series is an ascending run of bars of a single granularity.
type Series struct {
	Symbol      string
	Granularity Granularity
	Bars        []OHLCV
	FetchedAt   time.Time
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Bars) }

// Empty reports whether the series holds no bars.
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// Last returns the most recent bar, which represents the still-open current period.
func (s Series) Last() (OHLCV, bool) {
	if len(s.Bars) == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
