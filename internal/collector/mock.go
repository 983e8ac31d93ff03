package collector

import (
	"context"
	"sync"
	"time"

	"FiftySentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Bars    map[string]map[model.Granularity][]model.OHLCV // per symbol; "" applies to every symbol
	Errors  map[string]error                               // per symbol
	Latency time.Duration

	mu          sync.Mutex
	calls       map[string]int
	inFlight    int
	maxInFlight int
}

func (m *MockFetcher) Name() string { return "mock" }

// FetchBars implements Fetcher.
func (m *MockFetcher) FetchBars(ctx context.Context, symbol string, g model.Granularity, period time.Duration) ([]model.OHLCV, error) {
	m.enter(symbol, g)
	defer m.leave()

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol][g]; ok {
		return bars, nil
	}
	if bars, ok := m.Bars[""][g]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, g, barsFor(g, period)), nil
}

// Calls returns how many times (symbol, g) was requested.
func (m *MockFetcher) Calls(symbol string, g model.Granularity) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol+"|"+string(g)]
}

// MaxInFlight returns the highest number of concurrent FetchBars calls observed.
func (m *MockFetcher) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

func (m *MockFetcher) enter(symbol string, g model.Granularity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol+"|"+string(g)]++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
}

func (m *MockFetcher) leave() {
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
}

func generateMockBars(basePrice float64, g model.Granularity, count int) []model.OHLCV {
	if basePrice == 0 {
		basePrice = 100
	}
	end := time.Now().UTC()
	step := func(i int) time.Time {
		switch g {
		case model.Weekly:
			return mondayOf(end).AddDate(0, 0, -7*i)
		case model.Monthly:
			return time.Date(end.Year(), end.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		default:
			return end.AddDate(0, 0, -i)
		}
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   step(count - 1 - i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
