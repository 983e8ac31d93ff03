package strategy

import "FiftySentinel/internal/model"

type scanState int

const (
	notCrossed scanState = iota
	crossed
	confirmed
	void
)

func (s scanState) String() string {
	switch s {
	case notCrossed:
		return "not_crossed"
	case crossed:
		return "crossed"
	case confirmed:
		return "confirmed"
	case void:
		return "void"
	default:
		return "unknown"
	}
}

// DirectionInput is everything the directional scan needs for one coarse period.
type DirectionInput struct {
	Opening  float64 // opening price of the current coarse period
	Level    model.Level
	PrevHigh float64
	PrevLow  float64
	Daily    []model.OHLCV // daily bars of the current coarse period, oldest first
}

// crossRule is one side of the scan: the extreme that must break first, then the metric
// that must recross the level.
type crossRule struct {
	direction model.Direction
	breaks    func(bar model.OHLCV) bool
	recrosses func(bar model.OHLCV) bool
}

// ruleFor picks the side from where the period opened. An opening exactly at the level
// takes the down side.
func ruleFor(in DirectionInput) crossRule {
	lv := in.Level.Price
	if in.Opening < lv {
		return crossRule{
			direction: model.DirectionUp,
			breaks:    func(b model.OHLCV) bool { return b.Low < in.PrevLow },
			recrosses: func(b model.OHLCV) bool { return b.High > lv },
		}
	}
	return crossRule{
		direction: model.DirectionDown,
		breaks:    func(b model.OHLCV) bool { return b.High > in.PrevHigh },
		recrosses: func(b model.OHLCV) bool { return b.Low < lv },
	}
}

// step advances the scan by one bar. Confirmed and void are terminal; at most one
// transition happens per bar.
func (r crossRule) step(s scanState, bar model.OHLCV) scanState {
	switch s {
	case notCrossed:
		if r.breaks(bar) {
			return crossed
		}
		if r.recrosses(bar) {
			return void
		}
	case crossed:
		if r.recrosses(bar) {
			return confirmed
		}
	}
	return s
}

// ScanDirection walks the daily bars through not_crossed -> crossed -> confirmed and returns the
// candidate direction on confirmation. A recross before the break voids the period; running out
// of bars first yields none.
func ScanDirection(in DirectionInput) model.Direction {
	if !in.Level.Defined() || len(in.Daily) == 0 {
		return model.DirectionNone
	}
	r := ruleFor(in)
	state := notCrossed
	for _, bar := range in.Daily {
		state = r.step(state, bar)
		switch state {
		case confirmed:
			return r.direction
		case void:
			return model.DirectionNone
		}
	}
	return model.DirectionNone
}
