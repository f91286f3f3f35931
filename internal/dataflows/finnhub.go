package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// FinnhubClient handles Finnhub API operations: real-time quotes, company
// and market news, and insider activity.
type FinnhubClient struct {
	client *resty.Client
	apiKey string
}

// NewFinnhubClient creates a new Finnhub client.
func NewFinnhubClient(cfg *Config) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(cfg.RequestTimeout)

	return &FinnhubClient{
		client: client,
		apiKey: cfg.FinnhubAPIKey,
	}
}

const finnhubProvider = "finnhub"

// finnhubQuote is the /quote response shape.
type finnhubQuote struct {
	C  float64 `json:"c"`  // current
	D  float64 `json:"d"`  // change
	DP float64 `json:"dp"` // percent change
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
}

// GetQuote gets the live snapshot quote for a ticker.
func (fc *FinnhubClient) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if fc.apiKey == "" {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: ErrAuthFailed}
	}

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"token":  fc.apiKey,
		}).
		Get("/quote")
	if err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}
	if err := fc.checkStatus(resp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}

	var q finnhubQuote
	if err := json.Unmarshal(resp.Body(), &q); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker,
			Cause: fmt.Errorf("parse quote response: %w", err)}
	}

	// Finnhub answers unknown symbols with an all-zero quote.
	if q.C == 0 && q.PC == 0 && q.H == 0 && q.L == 0 {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: ErrNotFound}
	}

	return &Quote{
		Ticker:        ticker,
		Current:       decimal.NewFromFloat(q.C),
		Change:        decimal.NewFromFloat(q.D),
		PercentChange: decimal.NewFromFloat(q.DP),
		High:          decimal.NewFromFloat(q.H),
		Low:           decimal.NewFromFloat(q.L),
		Open:          decimal.NewFromFloat(q.O),
		PreviousClose: decimal.NewFromFloat(q.PC),
		FetchedAt:     time.Now(),
	}, nil
}

// finnhubNews is one /company-news or /news entry.
type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetCompanyNews gets news articles for a specific company in a window.
func (fc *FinnhubClient) GetCompanyNews(ctx context.Context, ticker string, w DateWindow) ([]NewsItem, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if fc.apiKey == "" {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: ErrAuthFailed}
	}

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"from":   w.Start,
			"to":     w.End,
			"token":  fc.apiKey,
		}).
		Get("/company-news")
	if err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}
	if err := fc.checkStatus(resp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}

	return fc.parseNews(resp.Body(), ticker)
}

// GetMarketNews gets aggregate market news for a category ("general",
// "forex", "crypto", "merger").
func (fc *FinnhubClient) GetMarketNews(ctx context.Context, category string) ([]NewsItem, error) {
	if fc.apiKey == "" {
		return nil, &ProviderError{Provider: finnhubProvider, Cause: ErrAuthFailed}
	}
	if category == "" {
		category = "general"
	}

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": category,
			"token":    fc.apiKey,
		}).
		Get("/news")
	if err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Cause: err}
	}
	if err := fc.checkStatus(resp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Cause: err}
	}

	return fc.parseNews(resp.Body(), "")
}

func (fc *FinnhubClient) parseNews(body []byte, ticker string) ([]NewsItem, error) {
	var raw []finnhubNews
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker,
			Cause: fmt.Errorf("parse news response: %w", err)}
	}

	items := make([]NewsItem, 0, len(raw))
	for _, n := range raw {
		items = append(items, NewsItem{
			Source:      n.Source,
			Title:       n.Headline,
			Snippet:     n.Summary,
			URL:         n.URL,
			PublishedAt: time.Unix(n.DateTime, 0).UTC(),
		})
	}
	return items, nil
}

// finnhubInsiderSentiment is one /stock/insider-sentiment data entry.
type finnhubInsiderSentiment struct {
	Symbol string  `json:"symbol"`
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Change int64   `json:"change"`
	MSPR   float64 `json:"mspr"`
}

// GetInsiderSentiment gets monthly insider sentiment for a company.
func (fc *FinnhubClient) GetInsiderSentiment(ctx context.Context, ticker string, w DateWindow) ([]InsiderSentiment, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if fc.apiKey == "" {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: ErrAuthFailed}
	}

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"from":   w.Start,
			"to":     w.End,
			"token":  fc.apiKey,
		}).
		Get("/stock/insider-sentiment")
	if err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}
	if err := fc.checkStatus(resp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}

	var apiResp struct {
		Data []finnhubInsiderSentiment `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker,
			Cause: fmt.Errorf("parse insider sentiment response: %w", err)}
	}

	result := make([]InsiderSentiment, 0, len(apiResp.Data))
	for _, s := range apiResp.Data {
		result = append(result, InsiderSentiment{
			Ticker: s.Symbol,
			Year:   s.Year,
			Month:  s.Month,
			Change: s.Change,
			MSPR:   decimal.NewFromFloat(s.MSPR),
		})
	}
	return result, nil
}

// finnhubInsiderTransaction is one /stock/insider-transactions data entry.
type finnhubInsiderTransaction struct {
	Symbol           string  `json:"symbol"`
	PersonName       string  `json:"name"`
	Share            int64   `json:"share"`
	Change           int64   `json:"change"`
	FilingDate       string  `json:"filingDate"`
	TransactionDate  string  `json:"transactionDate"`
	TransactionCode  string  `json:"transactionCode"`
	TransactionPrice float64 `json:"transactionPrice"`
}

// GetInsiderTransactions gets insider filings for a company in a window.
func (fc *FinnhubClient) GetInsiderTransactions(ctx context.Context, ticker string, w DateWindow) ([]InsiderTransaction, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if fc.apiKey == "" {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: ErrAuthFailed}
	}

	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"from":   w.Start,
			"to":     w.End,
			"token":  fc.apiKey,
		}).
		Get("/stock/insider-transactions")
	if err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}
	if err := fc.checkStatus(resp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker, Cause: err}
	}

	var apiResp struct {
		Data []finnhubInsiderTransaction `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, &ProviderError{Provider: finnhubProvider, Ticker: ticker,
			Cause: fmt.Errorf("parse insider transactions response: %w", err)}
	}

	result := make([]InsiderTransaction, 0, len(apiResp.Data))
	for _, t := range apiResp.Data {
		result = append(result, InsiderTransaction{
			Ticker:           t.Symbol,
			PersonName:       t.PersonName,
			Share:            t.Share,
			Change:           t.Change,
			FilingDate:       t.FilingDate,
			TransactionDate:  t.TransactionDate,
			TransactionCode:  t.TransactionCode,
			TransactionPrice: decimal.NewFromFloat(t.TransactionPrice),
		})
	}
	return result, nil
}

// checkStatus maps Finnhub HTTP statuses to sentinel causes.
func (fc *FinnhubClient) checkStatus(resp *resty.Response) error {
	switch resp.StatusCode() {
	case 200:
		return nil
	case 401, 403:
		return ErrAuthFailed
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}
}
