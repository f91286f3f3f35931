package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
)

func TestDescribeBar(t *testing.T) {
	bar := PriceBar{
		Date:   "2024-03-15",
		Open:   149.5,
		High:   151,
		Low:    149,
		Close:  150.334,
		Volume: 52000000,
	}

	want := "2024-03-15 | 149.50 | 151.00 | 149.00 | 150.33 | 52000000"
	if got := describeBar(bar); got != want {
		t.Errorf("describeBar = %q, want %q", got, want)
	}
}

// pointYahooBackendAt routes finance-go at a test server and restores the
// real backend when the test finishes.
func pointYahooBackendAt(t *testing.T, srv *httptest.Server) {
	t.Helper()
	finance.SetBackend(finance.YFinBackend, &finance.BackendConfiguration{
		Type:       finance.YFinBackend,
		URL:        srv.URL,
		HTTPClient: srv.Client(),
	})
	t.Cleanup(func() {
		finance.SetBackend(finance.YFinBackend, &finance.BackendConfiguration{
			Type:       finance.YFinBackend,
			URL:        finance.YFinURL,
			HTTPClient: http.DefaultClient,
		})
	})
}

func TestHistoricalBarsBoundedByConfiguredTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	pointYahooBackendAt(t, srv)

	cfg := onlineConfig(t)
	cfg.RequestTimeout = 50 * time.Millisecond
	yc := NewYahooClient(cfg)

	began := time.Now()
	_, err := yc.HistoricalBars(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("HistoricalBars returned nil error against a stalled endpoint")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.Provider != "yahoo" {
		t.Errorf("Provider = %q, want %q", provErr.Provider, "yahoo")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(began); elapsed > 2*time.Second {
		t.Errorf("fetch was not interrupted by the timeout, took %v", elapsed)
	}
}

func TestHistoricalBarsCancelledContext(t *testing.T) {
	yc := NewYahooClient(onlineConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := yc.HistoricalBars(ctx, "AAPL")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
}
