package collector

import (
	"fmt"
	"sort"
	"time"

	"FiftySentinel/internal/model"
)

// AnchorBars sorts bars ascending, drops duplicate timestamps, and keeps only bars on the
// granularity's canonical anchor: every bar for daily, Mondays for weekly, and the first
// bar of each calendar month for monthly. The input slice is not modified.
func AnchorBars(g model.Granularity, bars []model.OHLCV) []model.OHLCV {
	sorted := make([]model.OHLCV, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := make([]model.OHLCV, 0, len(sorted))
	for i, b := range sorted {
		if i > 0 && b.Time.Equal(sorted[i-1].Time) {
			continue
		}
		switch g {
		case model.Daily:
			out = append(out, b)
		case model.Weekly:
			if b.Time.Weekday() == time.Monday {
				out = append(out, b)
			}
		case model.Monthly:
			if len(out) == 0 || !sameMonth(out[len(out)-1].Time, b.Time) {
				out = append(out, b)
			}
		default:
			panic(fmt.Sprintf("collector: %v: %q", model.ErrInvalidGranularity, g))
		}
	}
	return out
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// mondayOf returns midnight of the Monday starting t's week, in t's location.
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AggregateDaily converts daily bars into weekly (Mon-Fri) or monthly bars. Weekly bars are
// stamped on the week's Monday; monthly bars keep the time of the month's first trading day.
func AggregateDaily(daily []model.OHLCV, g model.Granularity) []model.OHLCV {
	if len(daily) == 0 || g == model.Daily {
		return daily
	}
	bucket := func(t time.Time) int {
		switch g {
		case model.Weekly:
			year, isoWeek := t.ISOWeek()
			return year*100 + isoWeek
		case model.Monthly:
			return t.Year()*100 + int(t.Month())
		default:
			panic(fmt.Sprintf("collector: %v: %q", model.ErrInvalidGranularity, g))
		}
	}
	open := func(d model.OHLCV) model.OHLCV {
		bar := d
		if g == model.Weekly {
			bar.Time = mondayOf(d.Time)
		}
		return bar
	}

	var out []model.OHLCV
	cur := open(daily[0])
	currentKey := bucket(daily[0].Time)

	for _, d := range daily[1:] {
		if key := bucket(d.Time); key != currentKey {
			out = append(out, cur)
			cur = open(d)
			currentKey = key
			continue
		}
		if d.High > cur.High {
			cur.High = d.High
		}
		if d.Low < cur.Low {
			cur.Low = d.Low
		}
		cur.Close = d.Close
		cur.Volume += d.Volume
	}
	return append(out, cur)
}
