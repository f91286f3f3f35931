package dataflows

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// SimFinClient retrieves fundamental statements from SimFin.
type SimFinClient struct {
	client *resty.Client
	apiKey string
}

// NewSimFinClient creates a new SimFin client.
func NewSimFinClient(cfg *Config) *SimFinClient {
	client := resty.New()
	client.SetBaseURL("https://backend.simfin.com/api/v3")
	client.SetTimeout(cfg.RequestTimeout)

	return &SimFinClient{
		client: client,
		apiKey: cfg.SimFinAPIKey,
	}
}

const simfinProvider = "simfin"

// statementCodes maps the shared statement types to SimFin query codes.
var statementCodes = map[string]string{
	StatementBalanceSheet: "bs",
	StatementCashFlow:     "cf",
	StatementIncome:       "pl",
}

// simfinStatementResponse is the /companies/statements/compact shape.
type simfinStatementResponse struct {
	Found      bool   `json:"found"`
	Currency   string `json:"currency"`
	Statements []struct {
		Statement string   `json:"statement"`
		Columns   []string `json:"columns"`
		// Rows mix dates (strings) and figures (numbers).
		Data [][]any `json:"data"`
	} `json:"statements"`
}

// GetStatement gets the most recent statement of the given type and
// period for a ticker.
func (sc *SimFinClient) GetStatement(ctx context.Context, ticker, statementType, period string) (*FinancialStatement, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	code, ok := statementCodes[statementType]
	if !ok {
		return nil, &InvalidInputError{Field: "statement_type", Value: statementType,
			Reason: fmt.Sprintf("want %s, %s or %s", StatementBalanceSheet, StatementCashFlow, StatementIncome)}
	}
	if period != PeriodAnnual && period != PeriodQuarterly {
		return nil, &InvalidInputError{Field: "period", Value: period,
			Reason: fmt.Sprintf("want %s or %s", PeriodAnnual, PeriodQuarterly)}
	}
	if sc.apiKey == "" {
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: ErrAuthFailed}
	}

	periodCode := "fy"
	if period == PeriodQuarterly {
		periodCode = "quarters"
	}

	resp, err := sc.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "api-key "+sc.apiKey).
		SetQueryParams(map[string]string{
			"ticker":     ticker,
			"statements": code,
			"period":     periodCode,
		}).
		Get("/companies/statements/compact")
	if err != nil {
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: err}
	}
	switch resp.StatusCode() {
	case 200:
	case 401, 403:
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: ErrAuthFailed}
	case 404:
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: ErrNotFound}
	case 429:
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: ErrRateLimited}
	default:
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker,
			Cause: fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())}
	}

	var companies []simfinStatementResponse
	if err := json.Unmarshal(resp.Body(), &companies); err != nil {
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker,
			Cause: fmt.Errorf("parse statement response: %w", err)}
	}
	if len(companies) == 0 || !companies[0].Found || len(companies[0].Statements) == 0 {
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: ErrNotFound}
	}

	company := companies[0]
	stmt := company.Statements[0]
	if len(stmt.Data) == 0 {
		return nil, &ProviderError{Provider: simfinProvider, Ticker: ticker, Cause: ErrNotFound}
	}

	// The newest report is the last data row; columns label the cells.
	row := stmt.Data[len(stmt.Data)-1]

	out := &FinancialStatement{
		Ticker:        ticker,
		StatementType: statementType,
		Period:        period,
		Currency:      company.Currency,
		Items:         make(map[string]decimal.Decimal, len(stmt.Columns)),
	}
	for i, col := range stmt.Columns {
		if i >= len(row) {
			break
		}
		switch col {
		case "Report Date":
			if s, ok := row[i].(string); ok {
				out.ReportDate = s
			}
		case "Fiscal Period", "Fiscal Year", "Currency", "Publish Date", "Source", "TTM", "Value Check":
			// bookkeeping columns, not line items
		default:
			switch v := row[i].(type) {
			case float64:
				out.Items[col] = decimal.NewFromFloat(v)
			case string:
				if d, err := decimal.NewFromString(v); err == nil {
					out.Items[col] = d
				}
			}
		}
	}

	return out, nil
}
