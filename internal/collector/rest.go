package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"FiftySentinel/internal/httpclient"
	"FiftySentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// restPaths maps each granularity to its bars endpoint.
var restPaths = map[model.Granularity]string{
	model.Daily:   "daily",
	model.Weekly:  "weekly",
	model.Monthly: "monthly",
}

// RESTFetcher implements Fetcher against a generic bars REST API.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	logger  zerolog.Logger
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  httpclient.New(proxyURL, timeout),
		logger:  log.With().Str("component", "rest_fetcher").Logger(),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchBars implements Fetcher. Coarse granularities fall back to aggregated daily bars.
func (f *RESTFetcher) FetchBars(ctx context.Context, symbol string, g model.Granularity, period time.Duration) ([]model.OHLCV, error) {
	path, ok := restPaths[g]
	if !ok {
		return nil, fmt.Errorf("rest: %w: %q", model.ErrInvalidGranularity, g)
	}
	bars, err := f.fetchBars(ctx, path, symbol, barsFor(g, period))
	if err == nil || g == model.Daily {
		return bars, err
	}

	f.logger.Debug().Err(err).Str("symbol", symbol).Str("granularity", g.String()).
		Msg("coarse endpoint failed, aggregating daily bars")
	// A monthly fallback needs the whole first month, so widen the daily window by one.
	dailyBars, dailyErr := f.fetchBars(ctx, restPaths[model.Daily], symbol, barsFor(model.Daily, period)+31)
	if dailyErr != nil {
		return nil, fmt.Errorf("%s fetch failed: %w; daily fallback also failed: %w", g, err, dailyErr)
	}
	return AggregateDaily(dailyBars, g), nil
}

func (f *RESTFetcher) fetchBars(ctx context.Context, path, symbol string, limit int) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d", f.BaseURL, path, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Provider: "rest", Code: resp.StatusCode, Body: string(body)}
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("rest: %w: no %s bars for %s", model.ErrDataUnavailable, path, symbol)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
