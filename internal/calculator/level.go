package calculator

import (
	"fmt"

	"FiftySentinel/internal/model"
)

// FiftyPercentLevel returns the midpoint of the previous period's range. The previous period
// is the second-to-last bar; the last bar is the still-open current period.
// With fewer than two bars it returns the undefined level and model.ErrInsufficientData.
func FiftyPercentLevel(bars []model.OHLCV) (model.Level, error) {
	prev, _, err := PreviousAndCurrent(bars)
	if err != nil {
		return model.UndefinedLevel, err
	}
	return model.NewLevel(prev.Low + (prev.High-prev.Low)/2), nil
}

// PreviousAndCurrent returns the last two bars of an ascending series.
func PreviousAndCurrent(bars []model.OHLCV) (prev, cur model.OHLCV, err error) {
	n := len(bars)
	if n < 2 {
		return prev, cur, fmt.Errorf("%w: need 2 periods, have %d", model.ErrInsufficientData, n)
	}
	return bars[n-2], bars[n-1], nil
}
