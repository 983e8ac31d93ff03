package model

import "time"

// Report aggregates the truthy outcomes of one batch run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Tickers    int
	Checks     []Check

	// Signals holds, per granularity, the sorted tickers the boolean evaluator flagged.
	Signals map[Granularity][]string
	// SignalIntersection holds tickers flagged at every granularity requested for the boolean variant.
	SignalIntersection []string

	// Directions holds, per granularity, the tickers with an up/down direction.
	Directions map[Granularity]map[string]Direction
	// DirectionIntersection holds "<symbol> - <direction>" for tickers directional at every requested granularity.
	DirectionIntersection []string

	// Failed lists tickers with at least one failed evaluation, sorted.
	Failed []string
}

// GranularitiesFor returns the granularities requested for variant, in check order.
func (r *Report) GranularitiesFor(v Variant) []Granularity {
	var out []Granularity
	seen := make(map[Granularity]bool)
	for _, c := range r.Checks {
		if c.Variant == v && !seen[c.Granularity] {
			seen[c.Granularity] = true
			out = append(out, c.Granularity)
		}
	}
	return out
}
