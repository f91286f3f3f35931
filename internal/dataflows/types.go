package dataflows

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KaneLin1217/TradingAgents/internal/config"
)

// Config is an alias for the main application config
type Config = config.Config

const dateLayout = "2006-01-02"

// Quote is a point-in-time snapshot for a ticker.
type Quote struct {
	Ticker        string          `json:"ticker"`
	Current       decimal.Decimal `json:"current"`
	Change        decimal.Decimal `json:"change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// PriceBar is one daily OHLCV observation. Dates are YYYY-MM-DD strings,
// which compare correctly with < for ordering.
type PriceBar struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Volume   int64   `json:"volume"`
}

// PriceSeries is ascending by date, one bar per trading day. Non-trading
// days are simply absent; no bar is ever synthesized.
type PriceSeries []PriceBar

// IndicatorPoint is one indicator value aligned to a PriceSeries date.
// Valid is false inside the warm-up prefix where the indicator has
// insufficient history.
type IndicatorPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// IndicatorSeries aligns one point to every bar of the source series.
type IndicatorSeries struct {
	Indicator string           `json:"indicator"`
	Points    []IndicatorPoint `json:"points"`
}

// NewsItem is a normalized news or discussion item from any source.
type NewsItem struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// SentimentRecord aggregates signed sentiment over a window. Sources
// contributing zero items are absent from SourceCounts.
type SentimentRecord struct {
	Ticker       string         `json:"ticker"`
	Window       DateWindow     `json:"window"`
	Score        float64        `json:"score"`
	Positive     int            `json:"positive"`
	Negative     int            `json:"negative"`
	Neutral      int            `json:"neutral"`
	SourceCounts map[string]int `json:"source_counts"`
}

// Statement types and reporting periods for fundamentals.
const (
	StatementBalanceSheet = "balance_sheet"
	StatementCashFlow     = "cash_flow"
	StatementIncome       = "income_statement"

	PeriodAnnual    = "annual"
	PeriodQuarterly = "quarterly"
)

// FinancialStatement maps line-item names to values for one report.
type FinancialStatement struct {
	Ticker        string                     `json:"ticker"`
	StatementType string                     `json:"statement_type"`
	Period        string                     `json:"period"`
	ReportDate    string                     `json:"report_date"`
	Currency      string                     `json:"currency"`
	Items         map[string]decimal.Decimal `json:"items"`
}

// InsiderSentiment is Finnhub's monthly aggregate insider signal.
type InsiderSentiment struct {
	Ticker string          `json:"ticker"`
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Change int64           `json:"change"`
	MSPR   decimal.Decimal `json:"mspr"` // Monthly Share Purchase Ratio
}

// InsiderTransaction is a single insider filing.
type InsiderTransaction struct {
	Ticker           string          `json:"ticker"`
	PersonName       string          `json:"person_name"`
	Share            int64           `json:"share"`
	Change           int64           `json:"change"`
	FilingDate       string          `json:"filing_date"`
	TransactionDate  string          `json:"transaction_date"`
	TransactionCode  string          `json:"transaction_code"`
	TransactionPrice decimal.Decimal `json:"transaction_price"`
}

// DateWindow is a closed calendar range in YYYY-MM-DD form.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewDateWindow validates both dates and their order before any I/O.
func NewDateWindow(start, end string) (DateWindow, error) {
	if err := validateDate(start); err != nil {
		return DateWindow{}, err
	}
	if err := validateDate(end); err != nil {
		return DateWindow{}, err
	}
	if start > end {
		return DateWindow{}, &InvalidWindowError{Start: start, End: end}
	}
	return DateWindow{Start: start, End: end}, nil
}

// WindowBack builds a window ending at anchor and reaching lookbackDays
// into the past.
func WindowBack(anchor string, lookbackDays int) (DateWindow, error) {
	if err := validateDate(anchor); err != nil {
		return DateWindow{}, err
	}
	if lookbackDays < 0 {
		return DateWindow{}, &InvalidInputError{
			Field:  "lookback_days",
			Value:  "",
			Reason: "must be >= 0",
		}
	}
	end, _ := time.Parse(dateLayout, anchor)
	start := end.AddDate(0, 0, -lookbackDays)
	return DateWindow{Start: start.Format(dateLayout), End: anchor}, nil
}

// Contains reports whether date falls inside the closed window.
func (w DateWindow) Contains(date string) bool {
	return w.Start <= date && date <= w.End
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return &InvalidInputError{Field: "date", Value: date, Reason: "want YYYY-MM-DD"}
	}
	return nil
}

// ValidateTicker checks a ticker is non-empty and letters only, and
// returns the normalized upper-case form.
func ValidateTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return "", &InvalidInputError{Field: "ticker", Value: ticker, Reason: "cannot be empty"}
	}
	for _, r := range t {
		if r < 'A' || r > 'Z' {
			return "", &InvalidInputError{Field: "ticker", Value: ticker, Reason: "letters only"}
		}
	}
	return t, nil
}
