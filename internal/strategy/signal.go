package strategy

import (
	"FiftySentinel/internal/calculator"
	"FiftySentinel/internal/model"
)

// IsSignal reports whether the current period broke one extreme of the previous period while
// still straddling the level: a new low with the high above the level, or a new high with the
// low below it. An undefined level or fewer than two bars never signal.
func IsSignal(bars []model.OHLCV, level model.Level) bool {
	if !level.Defined() {
		return false
	}
	prev, cur, err := calculator.PreviousAndCurrent(bars)
	if err != nil {
		return false
	}
	lv := level.Price
	return (cur.Low < prev.Low && cur.High > lv) ||
		(cur.High > prev.High && cur.Low < lv)
}
