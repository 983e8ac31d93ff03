package calculator

import (
	"time"

	"FiftySentinel/internal/model"
)

// BarsSince returns the bars whose calendar date, in start's location, is on or after start's date.
// It confines a daily series to the coarse period opened by start.
func BarsSince(bars []model.OHLCV, start time.Time) []model.OHLCV {
	y, m, d := start.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	for i, b := range bars {
		by, bm, bd := b.Time.In(start.Location()).Date()
		if !time.Date(by, bm, bd, 0, 0, 0, 0, start.Location()).Before(first) {
			return bars[i:]
		}
	}
	return nil
}
