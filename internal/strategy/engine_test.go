package strategy

import (
	"testing"
	"time"

	"FiftySentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func bar(t time.Time, o, h, l, c float64) model.OHLCV {
	return model.OHLCV{Time: t, Open: o, High: h, Low: l, Close: c}
}

func weekly(prev, cur model.OHLCV) []model.OHLCV {
	prev.Time = day(2026, 10, 5)
	cur.Time = day(2026, 10, 12)
	return []model.OHLCV{prev, cur}
}

func TestIsSignal_Scenarios(t *testing.T) {
	prev := model.OHLCV{Low: 90, High: 110}
	level := model.NewLevel(100)

	tests := []struct {
		name string
		cur  model.OHLCV
		want bool
	}{
		{"new low, high above level", model.OHLCV{Low: 85, High: 105}, true},
		{"inside bar", model.OHLCV{Low: 92, High: 108}, false},
		{"new high, low below level", model.OHLCV{Low: 95, High: 115}, true},
		{"new low, high below level", model.OHLCV{Low: 80, High: 99}, false},
		{"new high, low above level", model.OHLCV{Low: 101, High: 120}, false},
		{"outside bar", model.OHLCV{Low: 80, High: 120}, true},
		{"equal extremes do not break", model.OHLCV{Low: 90, High: 110}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSignal(weekly(prev, tt.cur), level))
		})
	}
}

func TestIsSignal_NoBreakoutIgnoresLevel(t *testing.T) {
	prev := model.OHLCV{Low: 90, High: 110}
	cur := model.OHLCV{Low: 91, High: 109}
	for lv := 80.0; lv <= 120; lv += 2.5 {
		assert.False(t, IsSignal(weekly(prev, cur), model.NewLevel(lv)), "level %.1f", lv)
	}
}

func TestIsSignal_NegativeWithoutData(t *testing.T) {
	bars := weekly(model.OHLCV{Low: 90, High: 110}, model.OHLCV{Low: 85, High: 105})
	assert.False(t, IsSignal(bars, model.UndefinedLevel))
	assert.False(t, IsSignal(bars[1:], model.NewLevel(100)))
	assert.False(t, IsSignal(nil, model.NewLevel(100)))
}

func TestEvaluateSignal(t *testing.T) {
	series := model.Series{
		Symbol:      "AAPL",
		Granularity: model.Weekly,
		Bars:        weekly(model.OHLCV{Low: 90, High: 110}, model.OHLCV{Low: 85, High: 105}),
	}
	ok, level, err := EvaluateSignal(series)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100.0, level.Price)

	series.Bars = series.Bars[1:]
	ok, level, err = EvaluateSignal(series)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	assert.False(t, ok)
	assert.False(t, level.Defined())

	ok, _, err = EvaluateSignal(model.Series{Symbol: "AAPL", Granularity: model.Weekly})
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.False(t, ok)
}

func upInput(daily ...model.OHLCV) DirectionInput {
	return DirectionInput{Opening: 95, Level: model.NewLevel(100), PrevHigh: 110, PrevLow: 90, Daily: daily}
}

func TestScanDirection_UpConfirmed(t *testing.T) {
	in := upInput(
		bar(day(2026, 10, 1), 95, 99, 92, 93),
		bar(day(2026, 10, 2), 93, 96, 88, 90),   // low breaks 90
		bar(day(2026, 10, 5), 90, 101, 89, 100), // high recrosses 100
	)
	assert.Equal(t, model.DirectionUp, ScanDirection(in))
}

func TestScanDirection_UpVoidedBeforeBreak(t *testing.T) {
	in := upInput(
		bar(day(2026, 10, 1), 95, 101, 93, 99), // high above level first
		bar(day(2026, 10, 2), 99, 99, 85, 86),
		bar(day(2026, 10, 5), 86, 104, 85, 103),
	)
	assert.Equal(t, model.DirectionNone, ScanDirection(in))
}

func TestScanDirection_ExhaustedWithoutConfirmation(t *testing.T) {
	notBroken := upInput(
		bar(day(2026, 10, 1), 95, 99, 92, 93),
		bar(day(2026, 10, 2), 93, 98, 91, 95),
	)
	assert.Equal(t, model.DirectionNone, ScanDirection(notBroken))

	brokenOnly := upInput(
		bar(day(2026, 10, 1), 95, 99, 92, 93),
		bar(day(2026, 10, 2), 93, 96, 88, 90),
		bar(day(2026, 10, 5), 90, 99, 87, 97),
	)
	assert.Equal(t, model.DirectionNone, ScanDirection(brokenOnly))
}

func TestScanDirection_BreakAndRecrossSameBarNeedsNextBar(t *testing.T) {
	in := upInput(bar(day(2026, 10, 1), 95, 102, 88, 100))
	assert.Equal(t, model.DirectionNone, ScanDirection(in))

	in.Daily = append(in.Daily, bar(day(2026, 10, 2), 100, 103, 98, 101))
	assert.Equal(t, model.DirectionUp, ScanDirection(in))
}

func TestScanDirection_Down(t *testing.T) {
	in := DirectionInput{
		Opening:  105,
		Level:    model.NewLevel(100),
		PrevHigh: 110,
		PrevLow:  90,
		Daily: []model.OHLCV{
			bar(day(2026, 10, 1), 105, 108, 102, 107),
			bar(day(2026, 10, 2), 107, 112, 104, 111), // high breaks 110
			bar(day(2026, 10, 5), 111, 111, 99, 100),  // low recrosses 100
		},
	}
	assert.Equal(t, model.DirectionDown, ScanDirection(in))

	in.Daily = []model.OHLCV{
		bar(day(2026, 10, 1), 105, 106, 98, 99), // low below level before any break
		bar(day(2026, 10, 2), 99, 115, 97, 114),
		bar(day(2026, 10, 5), 114, 114, 95, 96),
	}
	assert.Equal(t, model.DirectionNone, ScanDirection(in))
}

func TestScanDirection_OpeningAtLevelTakesDownSide(t *testing.T) {
	in := DirectionInput{Opening: 100, Level: model.NewLevel(100), PrevHigh: 110, PrevLow: 90}
	assert.Equal(t, model.DirectionDown, ruleFor(in).direction)
}

func TestScanDirection_UndefinedInputs(t *testing.T) {
	in := upInput(bar(day(2026, 10, 1), 95, 99, 88, 93))
	in.Level = model.UndefinedLevel
	assert.Equal(t, model.DirectionNone, ScanDirection(in))
	assert.Equal(t, model.DirectionNone, ScanDirection(upInput()))
}

func TestStep_VoidIsAbsorbing(t *testing.T) {
	rules := []crossRule{
		ruleFor(upInput()),
		ruleFor(DirectionInput{Opening: 105, Level: model.NewLevel(100), PrevHigh: 110, PrevLow: 90}),
	}
	bars := []model.OHLCV{
		{High: 120, Low: 80},
		{High: 101, Low: 99},
		{High: 95, Low: 85},
		{High: 115, Low: 105},
		{High: 100, Low: 100},
	}
	for _, r := range rules {
		state := void
		for i := 0; i < 50; i++ {
			state = r.step(state, bars[i%len(bars)])
			require.Equal(t, void, state, "%s rule left void at bar %d", r.direction, i)
		}
		// Confirmed is terminal as well.
		assert.Equal(t, confirmed, r.step(confirmed, bars[2]))
	}
}

func TestEvaluateDirection_ConfinesToCurrentPeriod(t *testing.T) {
	coarse := model.Series{
		Symbol:      "MSFT",
		Granularity: model.Monthly,
		Bars: []model.OHLCV{
			bar(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), 100, 110, 90, 104),
			bar(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), 95, 101, 88, 99),
		},
	}
	daily := model.Series{
		Symbol:      "MSFT",
		Granularity: model.Daily,
		Bars: []model.OHLCV{
			bar(day(2026, 9, 29), 97, 105, 95, 99), // previous month; would void the scan if included
			bar(day(2026, 9, 30), 99, 99, 96, 97),
			bar(day(2026, 10, 1), 95, 99, 92, 93),
			bar(day(2026, 10, 2), 93, 96, 88, 90),
			bar(day(2026, 10, 5), 90, 101, 89, 100),
		},
	}
	dir, level, err := EvaluateDirection(coarse, daily)
	require.NoError(t, err)
	assert.Equal(t, 100.0, level.Price)
	assert.Equal(t, model.DirectionUp, dir)
}

func TestEvaluateDirection_DegradesOnMissingData(t *testing.T) {
	coarse := model.Series{
		Symbol:      "MSFT",
		Granularity: model.Weekly,
		Bars:        weekly(model.OHLCV{Low: 90, High: 110}, model.OHLCV{Open: 95, Low: 88, High: 101}),
	}

	dir, _, err := EvaluateDirection(coarse, model.Series{Granularity: model.Daily})
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.Equal(t, model.DirectionNone, dir)

	short := coarse
	short.Bars = coarse.Bars[1:]
	dir, level, err := EvaluateDirection(short, model.Series{})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
	assert.False(t, level.Defined())
	assert.Equal(t, model.DirectionNone, dir)
}

func TestEvaluateDirection_PanicsOnUnsupportedGranularity(t *testing.T) {
	assert.Panics(t, func() {
		_, _, _ = EvaluateDirection(model.Series{Granularity: model.Daily}, model.Series{})
	})
	assert.Panics(t, func() {
		_, _, _ = EvaluateDirection(model.Series{Granularity: "hourly"}, model.Series{})
	})
}
