package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FiftySentinel/internal/collector"
	"FiftySentinel/internal/model"
	"FiftySentinel/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultLookback is the history window fetched per granularity.
var DefaultLookback = map[model.Granularity]time.Duration{
	model.Daily:   45 * 24 * time.Hour,
	model.Weekly:  120 * 24 * time.Hour,
	model.Monthly: 400 * 24 * time.Hour,
}

// Options tunes a Scanner.
type Options struct {
	Concurrency int                                 // max tasks in flight; defaults to 8
	Lookback    map[model.Granularity]time.Duration // missing entries use DefaultLookback
}

// Scanner evaluates every (ticker, check) pair of a batch on a bounded pool of workers.
type Scanner struct {
	fetcher collector.Fetcher
	opts    Options
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Scanner that reads history through fetcher.
func New(fetcher collector.Fetcher, opts Options) *Scanner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Scanner{
		fetcher: fetcher,
		opts:    opts,
		logger:  log.With().Str("component", "scanner").Logger(),
		now:     time.Now,
	}
}

func (s *Scanner) lookback(g model.Granularity) time.Duration {
	if d, ok := s.opts.Lookback[g]; ok && d > 0 {
		return d
	}
	return DefaultLookback[g]
}

// Run evaluates checks for every symbol and aggregates the truthy outcomes. Data problems
// degrade single outcomes; only an invalid check is returned as an error, before any task runs.
// Each run owns a fresh history cache that is dropped when the run returns.
func (s *Scanner) Run(ctx context.Context, symbols []string, checks []model.Check) (*model.Report, error) {
	if len(checks) == 0 {
		return nil, errors.New("no checks requested")
	}
	for _, c := range checks {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("check %s: %w", c, err)
		}
	}
	symbols = uniqueSymbols(symbols)

	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()
	started := s.now()
	logger.Info().Int("tickers", len(symbols)).Int("checks", len(checks)).
		Int("concurrency", s.opts.Concurrency).Msg("batch started")

	cache := collector.NewHistoryCache(s.fetcher)
	results := make(chan model.Outcome)

	go func() {
		var g errgroup.Group
		g.SetLimit(s.opts.Concurrency)
		for _, sym := range symbols {
			for _, c := range checks {
				sym, c := sym, c
				g.Go(func() error {
					results <- s.evaluate(ctx, logger, cache, sym, c)
					return nil
				})
			}
		}
		_ = g.Wait()
		close(results)
	}()

	agg := newAggregator(checks)
	for o := range results {
		agg.add(o)
	}

	report := agg.report()
	report.RunID = runID
	report.StartedAt = started
	report.FinishedAt = s.now()
	report.Tickers = len(symbols)

	stats := cache.Stats()
	logger.Info().
		Int64("fetches", stats.Fetches).Int64("hits", stats.Hits).Int64("shared", stats.Shared).
		Int64("fetch_failures", stats.Failures).Int("failed_tickers", len(report.Failed)).
		Dur("elapsed", report.FinishedAt.Sub(started)).Msg("batch finished")
	return report, nil
}

// evaluate runs one check for one symbol. Errors become negative outcomes.
func (s *Scanner) evaluate(ctx context.Context, logger zerolog.Logger, cache *collector.HistoryCache, sym string, c model.Check) model.Outcome {
	out := model.Outcome{Symbol: sym, Check: c, Direction: model.DirectionNone}
	coarse := cache.Fetch(ctx, sym, c.Granularity, s.lookback(c.Granularity), false)

	switch c.Variant {
	case model.VariantSignal:
		out.Signal, out.Level, out.Err = strategy.EvaluateSignal(coarse)
	case model.VariantDirection:
		var daily model.Series
		if !coarse.Empty() {
			daily = cache.Fetch(ctx, sym, model.Daily, s.lookback(model.Daily), false)
		}
		out.Direction, out.Level, out.Err = strategy.EvaluateDirection(coarse, daily)
	default:
		panic(fmt.Sprintf("scanner: %v: %q", model.ErrInvalidVariant, c.Variant))
	}

	ev := logger.Debug().Str("symbol", sym).Str("check", c.String()).Str("level", out.Level.String())
	if out.Err != nil {
		ev.Err(out.Err).Msg("evaluation degraded")
	} else {
		ev.Bool("signal", out.Signal).Str("direction", string(out.Direction)).Msg("evaluated")
	}
	return out
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
