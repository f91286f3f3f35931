package dataflows

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KaneLin1217/TradingAgents/internal/config"
)

func newTestFinnhub(t *testing.T, handler http.HandlerFunc) *FinnhubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fc := NewFinnhubClient(&config.Config{
		FinnhubAPIKey:  "test-key",
		RequestTimeout: 5 * time.Second,
	})
	fc.client.SetBaseURL(srv.URL)
	return fc
}

func TestFinnhubGetQuote(t *testing.T) {
	fc := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("symbol = %s, want AAPL", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("token") != "test-key" {
			t.Errorf("token = %s, want test-key", r.URL.Query().Get("token"))
		}
		w.Write([]byte(`{"c":150.00,"d":1.25,"dp":0.84,"h":151.0,"l":149.0,"o":149.5,"pc":148.75}`))
	})

	quote, err := fc.GetQuote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Ticker != "AAPL" {
		t.Errorf("Ticker = %s, want AAPL", quote.Ticker)
	}
	if quote.Current.StringFixed(2) != "150.00" {
		t.Errorf("Current = %s, want 150.00", quote.Current.StringFixed(2))
	}
	if quote.PercentChange.StringFixed(2) != "0.84" {
		t.Errorf("PercentChange = %s, want 0.84", quote.PercentChange.StringFixed(2))
	}
}

func TestFinnhubGetQuoteUnknownSymbol(t *testing.T) {
	fc := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"c":0,"d":0,"dp":0,"h":0,"l":0,"o":0,"pc":0}`))
	})

	_, err := fc.GetQuote(context.Background(), "ZZZZZ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if provErr.Provider != "finnhub" {
		t.Errorf("Provider = %s, want finnhub", provErr.Provider)
	}
}

func TestFinnhubStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{401, ErrAuthFailed},
		{403, ErrAuthFailed},
		{404, ErrNotFound},
		{429, ErrRateLimited},
	}

	for _, tc := range cases {
		fc := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := fc.GetQuote(context.Background(), "AAPL")
		if !errors.Is(err, tc.want) {
			t.Errorf("Status %d: got %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestFinnhubMissingAPIKey(t *testing.T) {
	fc := NewFinnhubClient(&config.Config{RequestTimeout: 5 * time.Second})

	_, err := fc.GetQuote(context.Background(), "AAPL")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("Expected ErrAuthFailed, got %v", err)
	}
}

func TestFinnhubGetCompanyNews(t *testing.T) {
	fc := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company-news" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("from") != "2024-03-01" || r.URL.Query().Get("to") != "2024-03-15" {
			t.Errorf("Window = %s..%s", r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		}
		w.Write([]byte(`[
			{"category":"company","datetime":1710460800,"headline":"Apple beats expectations","source":"Reuters","summary":"Strong quarter.","url":"https://example.com/a"},
			{"category":"company","datetime":1710374400,"headline":"Apple event scheduled","source":"CNBC","summary":"","url":"https://example.com/b"}
		]`))
	})

	w, _ := NewDateWindow("2024-03-01", "2024-03-15")
	items, err := fc.GetCompanyNews(context.Background(), "AAPL", w)
	if err != nil {
		t.Fatalf("GetCompanyNews failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Title != "Apple beats expectations" {
		t.Errorf("Title = %s", items[0].Title)
	}
	if items[0].Source != "Reuters" {
		t.Errorf("Source = %s, want Reuters", items[0].Source)
	}
	if items[0].PublishedAt.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("PublishedAt = %s, want 2024-03-15", items[0].PublishedAt.Format("2006-01-02"))
	}
}

func TestFinnhubGetInsiderSentiment(t *testing.T) {
	fc := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/insider-sentiment" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"symbol":"AAPL","year":2024,"month":2,"change":-1250,"mspr":-12.5}]}`))
	})

	w, _ := NewDateWindow("2024-01-01", "2024-03-01")
	records, err := fc.GetInsiderSentiment(context.Background(), "AAPL", w)
	if err != nil {
		t.Fatalf("GetInsiderSentiment failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Change != -1250 {
		t.Errorf("Change = %d, want -1250", records[0].Change)
	}
	if records[0].MSPR.StringFixed(2) != "-12.50" {
		t.Errorf("MSPR = %s, want -12.50", records[0].MSPR.StringFixed(2))
	}
}

func TestFinnhubGetInsiderTransactions(t *testing.T) {
	fc := newTestFinnhub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"symbol":"AAPL","name":"Jane Doe","share":5000,"change":-2000,"filingDate":"2024-03-10","transactionDate":"2024-03-08","transactionCode":"S","transactionPrice":172.4}]}`))
	})

	w, _ := NewDateWindow("2024-03-01", "2024-03-15")
	records, err := fc.GetInsiderTransactions(context.Background(), "AAPL", w)
	if err != nil {
		t.Fatalf("GetInsiderTransactions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].PersonName != "Jane Doe" {
		t.Errorf("PersonName = %s, want Jane Doe", records[0].PersonName)
	}
	if records[0].TransactionCode != "S" {
		t.Errorf("TransactionCode = %s, want S", records[0].TransactionCode)
	}
}
