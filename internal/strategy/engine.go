package strategy

import (
	"fmt"

	"FiftySentinel/internal/calculator"
	"FiftySentinel/internal/model"
)

// EvaluateSignal runs the boolean evaluator over a coarse series. The error explains a
// negative result caused by missing data; it is never a reason to abort.
func EvaluateSignal(series model.Series) (bool, model.Level, error) {
	if series.Empty() {
		return false, model.UndefinedLevel, fmt.Errorf("%s %s: %w", series.Symbol, series.Granularity, model.ErrDataUnavailable)
	}
	level, err := calculator.FiftyPercentLevel(series.Bars)
	if err != nil {
		return false, level, fmt.Errorf("%s %s: %w", series.Symbol, series.Granularity, err)
	}
	return IsSignal(series.Bars, level), level, nil
}

// EvaluateDirection runs the directional evaluator: the coarse series supplies the level, the
// previous period's extremes and the current opening; daily supplies the bars to scan.
// It panics when coarse is not weekly or monthly.
func EvaluateDirection(coarse, daily model.Series) (model.Direction, model.Level, error) {
	switch coarse.Granularity {
	case model.Weekly, model.Monthly:
	default:
		panic(fmt.Sprintf("strategy: %v: %q for direction variant", model.ErrInvalidGranularity, coarse.Granularity))
	}

	if coarse.Empty() {
		return model.DirectionNone, model.UndefinedLevel,
			fmt.Errorf("%s %s: %w", coarse.Symbol, coarse.Granularity, model.ErrDataUnavailable)
	}
	level, err := calculator.FiftyPercentLevel(coarse.Bars)
	if err != nil {
		return model.DirectionNone, level, fmt.Errorf("%s %s: %w", coarse.Symbol, coarse.Granularity, err)
	}
	prev, cur, _ := calculator.PreviousAndCurrent(coarse.Bars)

	bars := calculator.BarsSince(daily.Bars, cur.Time)
	if len(bars) == 0 {
		return model.DirectionNone, level,
			fmt.Errorf("%s daily bars for current %s: %w", coarse.Symbol, coarse.Granularity, model.ErrDataUnavailable)
	}

	opening := cur.Open
	if opening == 0 {
		opening = bars[0].Open
	}
	dir := ScanDirection(DirectionInput{
		Opening:  opening,
		Level:    level,
		PrevHigh: prev.High,
		PrevLow:  prev.Low,
		Daily:    bars,
	})
	return dir, level, nil
}
