package scanner

import (
	"errors"
	"sort"
	"strings"

	"FiftySentinel/internal/model"
)

// aggregator folds outcomes into a report. It is only touched by the collecting goroutine.
type aggregator struct {
	checks     []model.Check
	signals    map[model.Granularity]map[string]bool
	directions map[model.Granularity]map[string]model.Direction
	failed     map[string]bool
}

func newAggregator(checks []model.Check) *aggregator {
	return &aggregator{
		checks:     checks,
		signals:    make(map[model.Granularity]map[string]bool),
		directions: make(map[model.Granularity]map[string]model.Direction),
		failed:     make(map[string]bool),
	}
}

func (a *aggregator) add(o model.Outcome) {
	if errors.Is(o.Err, model.ErrDataUnavailable) {
		a.failed[o.Symbol] = true
	}
	if !o.Truthy() {
		return
	}
	g := o.Check.Granularity
	switch o.Check.Variant {
	case model.VariantSignal:
		if a.signals[g] == nil {
			a.signals[g] = make(map[string]bool)
		}
		a.signals[g][o.Symbol] = true
	case model.VariantDirection:
		if a.directions[g] == nil {
			a.directions[g] = make(map[string]model.Direction)
		}
		a.directions[g][o.Symbol] = o.Direction
	}
}

func (a *aggregator) report() *model.Report {
	r := &model.Report{
		Checks:     a.checks,
		Signals:    make(map[model.Granularity][]string),
		Directions: make(map[model.Granularity]map[string]model.Direction),
	}

	signalGrans := r.GranularitiesFor(model.VariantSignal)
	for _, g := range signalGrans {
		r.Signals[g] = sortedKeys(a.signals[g])
	}
	if len(signalGrans) > 0 {
		for _, sym := range r.Signals[signalGrans[0]] {
			if inAll(sym, signalGrans, func(g model.Granularity, s string) bool { return a.signals[g][s] }) {
				r.SignalIntersection = append(r.SignalIntersection, sym)
			}
		}
	}

	dirGrans := r.GranularitiesFor(model.VariantDirection)
	for _, g := range dirGrans {
		r.Directions[g] = make(map[string]model.Direction, len(a.directions[g]))
		for sym, d := range a.directions[g] {
			r.Directions[g][sym] = d
		}
	}
	if len(dirGrans) > 0 {
		for _, sym := range sortedKeys(a.directions[dirGrans[0]]) {
			has := func(g model.Granularity, s string) bool { _, ok := a.directions[g][s]; return ok }
			if !inAll(sym, dirGrans, has) {
				continue
			}
			r.DirectionIntersection = append(r.DirectionIntersection, sym+" - "+joinDirections(sym, dirGrans, a.directions))
		}
	}

	r.Failed = sortedKeys(a.failed)
	return r
}

func inAll(sym string, grans []model.Granularity, has func(model.Granularity, string) bool) bool {
	for _, g := range grans {
		if !has(g, sym) {
			return false
		}
	}
	return true
}

// joinDirections returns the shared direction, or the per-granularity directions joined by "/".
func joinDirections(sym string, grans []model.Granularity, dirs map[model.Granularity]map[string]model.Direction) string {
	parts := make([]string, 0, len(grans))
	same := true
	for i, g := range grans {
		d := string(dirs[g][sym])
		if i > 0 && d != parts[0] {
			same = false
		}
		parts = append(parts, d)
	}
	if same {
		return parts[0]
	}
	return strings.Join(parts, "/")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
