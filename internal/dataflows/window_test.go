package dataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaneLin1217/TradingAgents/internal/config"
)

// fakeFetcher serves a canned series and counts upstream fetches.
type fakeFetcher struct {
	series PriceSeries
	err    error
	calls  int
}

func (f *fakeFetcher) HistoricalBars(ctx context.Context, ticker string) (PriceSeries, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

// tenDaySeries builds ascending daily bars for 2024-01-01 .. 2024-01-10.
func tenDaySeries() PriceSeries {
	var series PriceSeries
	for day := 1; day <= 10; day++ {
		series = append(series, PriceBar{
			Date:   fmt.Sprintf("2024-01-%02d", day),
			Open:   100 + float64(day),
			High:   101 + float64(day),
			Low:    99 + float64(day),
			Close:  100.5 + float64(day),
			Volume: 1000 * int64(day),
		})
	}
	return series
}

func onlineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataSourceMode: config.ModeOnline,
		SnapshotDir:    t.TempDir(),
		RequestTimeout: 5 * time.Second,
	}
}

func TestWindowSelectsInclusiveRange(t *testing.T) {
	series := tenDaySeries()

	w, err := NewDateWindow("2024-01-03", "2024-01-07")
	if err != nil {
		t.Fatalf("NewDateWindow failed: %v", err)
	}

	got := Window(series, w)
	if len(got) != 5 {
		t.Fatalf("Expected 5 bars, got %d", len(got))
	}
	if got[0].Date != "2024-01-03" {
		t.Errorf("First bar date = %s, want 2024-01-03", got[0].Date)
	}
	if got[len(got)-1].Date != "2024-01-07" {
		t.Errorf("Last bar date = %s, want 2024-01-07", got[len(got)-1].Date)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Date >= got[i].Date {
			t.Errorf("Bars out of order: %s before %s", got[i-1].Date, got[i].Date)
		}
	}
}

func TestWindowOutsideRangeIsEmpty(t *testing.T) {
	series := tenDaySeries()

	w, err := NewDateWindow("2023-05-01", "2023-05-31")
	if err != nil {
		t.Fatalf("NewDateWindow failed: %v", err)
	}

	got := Window(series, w)
	if len(got) != 0 {
		t.Fatalf("Expected empty result, got %d bars", len(got))
	}
}

func TestNewDateWindowRejectsReversedRange(t *testing.T) {
	_, err := NewDateWindow("2024-02-01", "2024-01-01")
	var winErr *InvalidWindowError
	if !errors.As(err, &winErr) {
		t.Fatalf("Expected InvalidWindowError, got %v", err)
	}
}

func TestWindowBackRejectsNegativeLookback(t *testing.T) {
	_, err := WindowBack("2024-01-10", -5)
	var inputErr *InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("Expected InvalidInputError, got %v", err)
	}
}

func TestSeriesStoreFetchesOncePerTicker(t *testing.T) {
	fetcher := &fakeFetcher{series: tenDaySeries()}
	store := NewSeriesStore(fetcher, onlineConfig(t))

	ctx := context.Background()
	w, _ := NewDateWindow("2024-01-01", "2024-01-05")

	for i := 0; i < 3; i++ {
		bars, err := store.WindowedBars(ctx, "AAPL", w)
		if err != nil {
			t.Fatalf("WindowedBars failed on call %d: %v", i+1, err)
		}
		if len(bars) != 5 {
			t.Fatalf("Expected 5 bars, got %d", len(bars))
		}
	}

	if fetcher.calls != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", fetcher.calls)
	}

	// A different ticker triggers its own fetch.
	if _, err := store.Series(ctx, "MSFT"); err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("Expected 2 upstream fetches, got %d", fetcher.calls)
	}
}

func TestSeriesStoreDoesNotCacheFailures(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	store := NewSeriesStore(fetcher, onlineConfig(t))

	ctx := context.Background()
	if _, err := store.Series(ctx, "AAPL"); err == nil {
		t.Fatal("Expected error from failing fetcher")
	}

	// Recovery: the next call retries instead of serving a cached error.
	fetcher.err = nil
	fetcher.series = tenDaySeries()
	series, err := store.Series(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Series failed after recovery: %v", err)
	}
	if len(series) != 10 {
		t.Fatalf("Expected 10 bars, got %d", len(series))
	}
	if fetcher.calls != 2 {
		t.Errorf("Expected 2 upstream fetches, got %d", fetcher.calls)
	}
}

func TestSeriesStoreOfflineMissingSnapshot(t *testing.T) {
	cfg := onlineConfig(t)
	cfg.DataSourceMode = config.ModeOffline

	fetcher := &fakeFetcher{series: tenDaySeries()}
	store := NewSeriesStore(fetcher, cfg)

	_, err := store.Series(context.Background(), "AAPL")
	var missErr *CacheMissError
	if !errors.As(err, &missErr) {
		t.Fatalf("Expected CacheMissError, got %v", err)
	}
	if missErr.Ticker != "AAPL" {
		t.Errorf("CacheMissError ticker = %s, want AAPL", missErr.Ticker)
	}
	if fetcher.calls != 0 {
		t.Errorf("Offline mode must not hit the fetcher, got %d calls", fetcher.calls)
	}
}

func TestSeriesStoreOfflineSnapshot(t *testing.T) {
	cfg := onlineConfig(t)
	cfg.DataSourceMode = config.ModeOffline

	// Persist a deliberately unsorted snapshot.
	series := tenDaySeries()
	series[0], series[9] = series[9], series[0]
	payload, err := json.Marshal(series)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	path := filepath.Join(cfg.SnapshotDir, "AAPL.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	store := NewSeriesStore(&fakeFetcher{}, cfg)
	got, err := store.Series(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("Expected 10 bars, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Date >= got[i].Date {
			t.Errorf("Snapshot not sorted: %s before %s", got[i-1].Date, got[i].Date)
		}
	}
}
