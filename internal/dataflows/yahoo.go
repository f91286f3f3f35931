package dataflows

import (
	"context"
	"fmt"
	"sort"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// YahooClient retrieves historical daily OHLCV bars from Yahoo Finance.
type YahooClient struct {
	timeout time.Duration
}

// NewYahooClient creates a new Yahoo Finance client.
func NewYahooClient(cfg *Config) *YahooClient {
	return &YahooClient{timeout: cfg.RequestTimeout}
}

const yahooProvider = "yahoo"

// earliestBarDate bounds the maximal series request. Yahoo serves daily
// bars well past this for every US listing that matters here.
var earliestBarDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// HistoricalBars fetches the maximal available daily series for a ticker,
// ascending by date. Null bars (holidays) are skipped, never synthesized.
func (yc *YahooClient) HistoricalBars(ctx context.Context, ticker string) (PriceSeries, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Provider: yahooProvider, Ticker: ticker, Cause: err}
	}

	// Bound the whole fetch by the configured timeout; finance-go carries
	// the context through to the underlying HTTP requests.
	ctx, cancel := context.WithTimeout(ctx, yc.timeout)
	defer cancel()

	start := earliestBarDate
	end := time.Now()
	params := &chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	series := make(PriceSeries, 0, 256)
	for iter.Next() {
		bar := iter.Bar()

		open := bar.Open.InexactFloat64()
		high := bar.High.InexactFloat64()
		low := bar.Low.InexactFloat64()
		closePx := bar.Close.InexactFloat64()
		if open == 0 && high == 0 && low == 0 && closePx == 0 {
			continue
		}

		series = append(series, PriceBar{
			Date:     time.Unix(int64(bar.Timestamp), 0).UTC().Format(dateLayout),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePx,
			AdjClose: bar.AdjClose.InexactFloat64(),
			Volume:   int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, &ProviderError{Provider: yahooProvider, Ticker: ticker, Cause: err}
	}
	if len(series) == 0 {
		return nil, &ProviderError{Provider: yahooProvider, Ticker: ticker, Cause: ErrNotFound}
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// Fetcher is the series source the windowing layer depends on.
// YahooClient is the production implementation.
type Fetcher interface {
	HistoricalBars(ctx context.Context, ticker string) (PriceSeries, error)
}

var _ Fetcher = (*YahooClient)(nil)

// describeBar renders one bar for textual reports.
func describeBar(b PriceBar) string {
	return fmt.Sprintf("%s | %.2f | %.2f | %.2f | %.2f | %d",
		b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
}
