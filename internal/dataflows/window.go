package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/KaneLin1217/TradingAgents/internal/config"
)

// seriesKey is the unit of caching and of mutual exclusion: one maximal
// series per (ticker, mode) for the lifetime of the process.
type seriesKey struct {
	Ticker string
	Mode   config.DataSourceMode
}

// SeriesStore memoizes the maximal PriceSeries per (ticker, mode).
// Entries are append-only: never evicted or overwritten within a run, so
// repeated windowed queries cost one provider fetch per distinct ticker.
type SeriesStore struct {
	fetcher     Fetcher
	mode        config.DataSourceMode
	snapshotDir string

	mu      sync.Mutex
	series  map[seriesKey]PriceSeries
	pending map[seriesKey]chan struct{}
}

// NewSeriesStore creates a store backed by the given fetcher for online
// mode and by snapshotDir for offline mode.
func NewSeriesStore(fetcher Fetcher, cfg *Config) *SeriesStore {
	return &SeriesStore{
		fetcher:     fetcher,
		mode:        cfg.DataSourceMode,
		snapshotDir: cfg.SnapshotDir,
		series:      make(map[seriesKey]PriceSeries),
		pending:     make(map[seriesKey]chan struct{}),
	}
}

// Series returns the maximal available series for a ticker, fetching or
// loading it on first use. Concurrent callers for the same key collapse
// to a single fetch.
func (ss *SeriesStore) Series(ctx context.Context, ticker string) (PriceSeries, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	key := seriesKey{Ticker: ticker, Mode: ss.mode}

	for {
		ss.mu.Lock()
		if s, ok := ss.series[key]; ok {
			ss.mu.Unlock()
			return s, nil
		}
		if wait, ok := ss.pending[key]; ok {
			ss.mu.Unlock()
			select {
			case <-wait:
				continue // loser of the race re-reads the map
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		ss.pending[key] = done
		ss.mu.Unlock()

		series, err := ss.load(ctx, ticker)

		ss.mu.Lock()
		delete(ss.pending, key)
		if err == nil {
			ss.series[key] = series
		}
		ss.mu.Unlock()
		close(done)

		return series, err
	}
}

func (ss *SeriesStore) load(ctx context.Context, ticker string) (PriceSeries, error) {
	if ss.mode == config.ModeOffline {
		return ss.loadSnapshot(ticker)
	}
	return ss.fetcher.HistoricalBars(ctx, ticker)
}

// loadSnapshot reads a previously persisted per-ticker series. Snapshots
// are written by an external data-preparation step; this layer only reads.
func (ss *SeriesStore) loadSnapshot(ticker string) (PriceSeries, error) {
	path := filepath.Join(ss.snapshotDir, ticker+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &CacheMissError{Ticker: ticker, Path: path}
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var series PriceSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// WindowedBars returns the closed sub-sequence of the ticker's series
// whose dates fall inside w. A window outside the available range yields
// an empty series, not an error.
func (ss *SeriesStore) WindowedBars(ctx context.Context, ticker string, w DateWindow) (PriceSeries, error) {
	series, err := ss.Series(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return Window(series, w), nil
}

// Window selects the bars of an ascending series with Start <= date <= End.
func Window(series PriceSeries, w DateWindow) PriceSeries {
	lo := sort.Search(len(series), func(i int) bool { return series[i].Date >= w.Start })
	hi := sort.Search(len(series), func(i int) bool { return series[i].Date > w.End })
	if lo >= hi {
		return PriceSeries{}
	}
	return series[lo:hi]
}
