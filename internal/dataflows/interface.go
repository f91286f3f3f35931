package dataflows

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/KaneLin1217/TradingAgents/internal/config"
	"github.com/shopspring/decimal"
)

// DataFlows provides high-level access to all data sources: quotes and
// company news from Finnhub, historical bars from Yahoo Finance,
// fundamentals from SimFin, and social/news feeds from Reddit and
// Google News. Report methods return plain-text summaries; the
// structured getters return typed records.
type DataFlows struct {
	config  *config.Config
	finnhub *FinnhubClient
	simfin  *SimFinClient
	yahoo   *YahooClient
	reddit  *RedditClient
	google  *GoogleNewsClient
	store   *SeriesStore
}

// New builds a DataFlows facade from a validated configuration.
func New(cfg *config.Config) (*DataFlows, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	yahoo := NewYahooClient(cfg)
	return &DataFlows{
		config:  cfg,
		finnhub: NewFinnhubClient(cfg),
		simfin:  NewSimFinClient(cfg),
		yahoo:   yahoo,
		reddit:  NewRedditClient(cfg),
		google:  NewGoogleNewsClient(cfg),
		store:   NewSeriesStore(yahoo, cfg),
	}, nil
}

// Market Data Functions

// GetQuote fetches the current Finnhub quote for a ticker.
func (f *DataFlows) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	return f.finnhub.GetQuote(ctx, ticker)
}

// GetQuoteReport renders the current quote as a fixed two-decimal
// summary. When the live fetch fails the report degrades to zero values
// under an explicit warning instead of returning an error; malformed
// input still errors.
func (f *DataFlows) GetQuoteReport(ctx context.Context, ticker string) (string, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return "", err
	}

	quote, err := f.finnhub.GetQuote(ctx, ticker)
	degraded := false
	if err != nil {
		log.Printf("quote fetch failed for %s, emitting degraded report: %v", ticker, err)
		quote = &Quote{Ticker: ticker}
		degraded = true
	}

	var b strings.Builder
	if degraded {
		b.WriteString("WARNING: live quote unavailable, values are placeholders\n")
	}
	fmt.Fprintf(&b, "Current price: $%s\n", quote.Current.StringFixed(2))
	fmt.Fprintf(&b, "Change: $%s\n", quote.Change.StringFixed(2))
	fmt.Fprintf(&b, "Percent change: %s%%\n", quote.PercentChange.StringFixed(2))
	fmt.Fprintf(&b, "High price of the day: $%s\n", quote.High.StringFixed(2))
	fmt.Fprintf(&b, "Low price of the day: $%s\n", quote.Low.StringFixed(2))
	fmt.Fprintf(&b, "Open price of the day: $%s\n", quote.Open.StringFixed(2))
	fmt.Fprintf(&b, "Previous close price: $%s\n", quote.PreviousClose.StringFixed(2))
	return b.String(), nil
}

// GetYFinData returns historical bars between two dates, inclusive. The
// full history is fetched once per ticker and sliced locally.
func (f *DataFlows) GetYFinData(ctx context.Context, ticker, startDate, endDate string) (PriceSeries, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	w, err := NewDateWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}
	return f.store.WindowedBars(ctx, ticker, w)
}

// GetYFinDataWindow returns bars for the lookbackDays days ending at
// currDate.
func (f *DataFlows) GetYFinDataWindow(ctx context.Context, ticker, currDate string, lookbackDays int) (PriceSeries, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return nil, err
	}
	return f.store.WindowedBars(ctx, ticker, w)
}

// GetYFinDataReport renders a windowed bar table.
func (f *DataFlows) GetYFinDataReport(ctx context.Context, ticker, startDate, endDate string) (string, error) {
	bars, err := f.GetYFinData(ctx, ticker, startDate, endDate)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Stock data for %s from %s to %s:\n\n", ticker, startDate, endDate)
	b.WriteString("Date | Open | High | Low | Close | Volume\n")
	for _, bar := range bars {
		b.WriteString(describeBar(bar))
		b.WriteByte('\n')
	}
	if len(bars) == 0 {
		b.WriteString("No trading days in range.\n")
	}
	return b.String(), nil
}

// GetYFinDataWindowReport renders a bar table for a rolling window
// ending at currDate.
func (f *DataFlows) GetYFinDataWindowReport(ctx context.Context, ticker, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	return f.GetYFinDataReport(ctx, ticker, w.Start, w.End)
}

// Technical Analysis Functions

// GetIndicator computes an indicator over the ticker's full history and
// returns the points inside the window, still aligned by date. Warm-up
// positions are present but marked invalid.
func (f *DataFlows) GetIndicator(ctx context.Context, ticker, indicator, startDate, endDate string) (IndicatorSeries, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return IndicatorSeries{}, err
	}
	w, err := NewDateWindow(startDate, endDate)
	if err != nil {
		return IndicatorSeries{}, err
	}

	series, err := f.store.Series(ctx, ticker)
	if err != nil {
		return IndicatorSeries{}, err
	}
	full, err := ComputeIndicator(series, indicator)
	if err != nil {
		return IndicatorSeries{}, err
	}

	windowed := IndicatorSeries{Indicator: full.Indicator}
	for _, p := range full.Points {
		if w.Contains(p.Date) {
			windowed.Points = append(windowed.Points, p)
		}
	}
	return windowed, nil
}

// GetStockStatsIndicatorsWindow reports indicator values for the
// lookbackDays days ending at currDate, one line per trading day, with
// a usage note appended.
func (f *DataFlows) GetStockStatsIndicatorsWindow(ctx context.Context, ticker, indicator, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	series, err := f.GetIndicator(ctx, ticker, indicator, w.Start, w.End)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, p := range series.Points {
		if p.Valid {
			lines = append(lines, fmt.Sprintf("%s: %.2f", p.Date, p.Value))
		} else {
			lines = append(lines, fmt.Sprintf("%s: N/A: Not enough data", p.Date))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "No trading days in range.")
	}

	return fmt.Sprintf("## %s values from %s to %s:\n\n%s\n\n%s",
		indicator, w.Start, w.End, strings.Join(lines, "\n"), IndicatorUsage(indicator)), nil
}

// GetStockstatsIndicator reports a single indicator value at currDate.
// Non-trading days and warm-up positions report N/A.
func (f *DataFlows) GetStockstatsIndicator(ctx context.Context, ticker, indicator, currDate string) (string, error) {
	series, err := f.GetIndicator(ctx, ticker, indicator, currDate, currDate)
	if err != nil {
		return "", err
	}
	for _, p := range series.Points {
		if p.Date != currDate {
			continue
		}
		if p.Valid {
			return fmt.Sprintf("%.2f", p.Value), nil
		}
		return "N/A: Not enough data", nil
	}
	return "N/A: Not a trading day (weekend or holiday)", nil
}

// News Functions

// GetFinnhubNews returns company news for the lookback window.
func (f *DataFlows) GetFinnhubNews(ctx context.Context, ticker, currDate string, lookbackDays int) ([]NewsItem, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return nil, err
	}
	return f.finnhub.GetCompanyNews(ctx, ticker, w)
}

// GetFinnhubNewsReport renders company news as a dated article list.
func (f *DataFlows) GetFinnhubNewsReport(ctx context.Context, ticker, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	items, err := f.GetFinnhubNews(ctx, ticker, currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	return renderNewsReport(fmt.Sprintf("%s News", ticker), w, items), nil
}

// GetFinnhubMarketNewsReport renders general market news for the
// lookback window.
func (f *DataFlows) GetFinnhubMarketNewsReport(ctx context.Context, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	items, err := f.finnhub.GetMarketNews(ctx, "general")
	if err != nil {
		return "", err
	}
	inWindow := items[:0:0]
	for _, item := range items {
		if w.Contains(item.PublishedAt.Format(dateLayout)) {
			inWindow = append(inWindow, item)
		}
	}
	return renderNewsReport("Market News", w, inWindow), nil
}

// GetGoogleNews searches Google News for a free-text query inside the
// lookback window.
func (f *DataFlows) GetGoogleNews(ctx context.Context, query, currDate string, lookbackDays int) ([]NewsItem, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return nil, err
	}
	return f.google.Search(ctx, query, w, 0)
}

// GetGoogleNewsReport renders Google News results for a query.
func (f *DataFlows) GetGoogleNewsReport(ctx context.Context, query, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	items, err := f.google.Search(ctx, query, w, 0)
	if err != nil {
		return "", err
	}
	return renderNewsReport(fmt.Sprintf("%s Google News", query), w, items), nil
}

// GetRedditGlobalNewsReport renders top macro/world posts from the
// news-oriented subreddits.
func (f *DataFlows) GetRedditGlobalNewsReport(ctx context.Context, currDate string, lookbackDays, maxLimit int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	items, err := f.reddit.TopOfCategory(ctx, CategoryGlobalNews, "", w, maxLimit)
	if err != nil {
		return "", err
	}
	return renderNewsReport("Global News Reddit", w, items), nil
}

// GetRedditCompanyNewsReport renders posts mentioning the ticker from
// the investing subreddits.
func (f *DataFlows) GetRedditCompanyNewsReport(ctx context.Context, ticker, currDate string, lookbackDays, maxLimit int) (string, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return "", err
	}
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	items, err := f.reddit.TopOfCategory(ctx, CategoryCompanyNews, ticker, w, maxLimit)
	if err != nil {
		return "", err
	}
	return renderNewsReport(fmt.Sprintf("%s News Reddit", ticker), w, items), nil
}

// GetCombinedNews merges company news from Finnhub, Google News, and
// Reddit into one deduplicated feed, newest first. A provider failure
// drops that provider's items rather than failing the merge; if every
// provider fails the last error is returned.
func (f *DataFlows) GetCombinedNews(ctx context.Context, ticker, currDate string, lookbackDays, maxItems int) ([]NewsItem, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return nil, err
	}

	var feeds [][]NewsItem
	var lastErr error

	if items, err := f.finnhub.GetCompanyNews(ctx, ticker, w); err == nil {
		feeds = append(feeds, items)
	} else {
		log.Printf("finnhub news unavailable for %s: %v", ticker, err)
		lastErr = err
	}
	if items, err := f.google.Search(ctx, ticker, w, 0); err == nil {
		feeds = append(feeds, items)
	} else {
		log.Printf("google news unavailable for %s: %v", ticker, err)
		lastErr = err
	}
	if items, err := f.reddit.TopOfCategory(ctx, CategoryCompanyNews, ticker, w, maxItems); err == nil {
		feeds = append(feeds, items)
	} else {
		log.Printf("reddit news unavailable for %s: %v", ticker, err)
		lastErr = err
	}

	if len(feeds) == 0 {
		return nil, lastErr
	}
	return MergeNews(maxItems, feeds...), nil
}

// GetSentiment scores the combined news feed for a ticker.
func (f *DataFlows) GetSentiment(ctx context.Context, ticker, currDate string, lookbackDays int) (SentimentRecord, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return SentimentRecord{}, err
	}
	items, err := f.GetCombinedNews(ctx, ticker, currDate, lookbackDays, 0)
	if err != nil {
		return SentimentRecord{}, err
	}
	return Summarize(ticker, w, items), nil
}

// GetSentimentReport renders the sentiment summary for a ticker.
func (f *DataFlows) GetSentimentReport(ctx context.Context, ticker, currDate string, lookbackDays int) (string, error) {
	rec, err := f.GetSentiment(ctx, ticker, currDate, lookbackDays)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Sentiment, from %s to %s:\n\n", rec.Ticker, rec.Window.Start, rec.Window.End)
	fmt.Fprintf(&b, "Score: %.2f (positive: %d, negative: %d, neutral: %d)\n", rec.Score, rec.Positive, rec.Negative, rec.Neutral)

	sources := make([]string, 0, len(rec.SourceCounts))
	for source := range rec.SourceCounts {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(&b, "%s: %d items\n", source, rec.SourceCounts[source])
	}
	return b.String(), nil
}

// Insider Trading Functions

// GetFinnhubCompanyInsiderSentiment returns monthly insider sentiment
// for the lookback window.
func (f *DataFlows) GetFinnhubCompanyInsiderSentiment(ctx context.Context, ticker, currDate string, lookbackDays int) ([]InsiderSentiment, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return nil, err
	}
	return f.finnhub.GetInsiderSentiment(ctx, ticker, w)
}

// GetFinnhubCompanyInsiderSentimentReport renders monthly insider
// sentiment.
func (f *DataFlows) GetFinnhubCompanyInsiderSentimentReport(ctx context.Context, ticker, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	records, err := f.GetFinnhubCompanyInsiderSentiment(ctx, ticker, currDate, lookbackDays)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Insider Sentiment Data for %s to %s:\n\n", ticker, w.Start, w.End)
	for _, rec := range records {
		fmt.Fprintf(&b, "%04d-%02d: change %d, mspr %s\n", rec.Year, rec.Month, rec.Change, rec.MSPR.StringFixed(2))
	}
	if len(records) == 0 {
		b.WriteString("No insider sentiment in range.\n")
	} else {
		b.WriteString("\nThe change field is net buying/selling in shares; mspr is the monthly share purchase ratio.\n")
	}
	return b.String(), nil
}

// GetFinnhubCompanyInsiderTransactions returns insider transactions for
// the lookback window.
func (f *DataFlows) GetFinnhubCompanyInsiderTransactions(ctx context.Context, ticker, currDate string, lookbackDays int) ([]InsiderTransaction, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return nil, err
	}
	return f.finnhub.GetInsiderTransactions(ctx, ticker, w)
}

// GetFinnhubCompanyInsiderTransactionsReport renders insider
// transactions.
func (f *DataFlows) GetFinnhubCompanyInsiderTransactionsReport(ctx context.Context, ticker, currDate string, lookbackDays int) (string, error) {
	w, err := WindowBack(currDate, lookbackDays)
	if err != nil {
		return "", err
	}
	records, err := f.GetFinnhubCompanyInsiderTransactions(ctx, ticker, currDate, lookbackDays)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Insider Transactions from %s to %s:\n\n", ticker, w.Start, w.End)
	for _, rec := range records {
		fmt.Fprintf(&b, "%s | %s | %s | change: %d | shares: %d | price: %s\n",
			rec.TransactionDate, rec.PersonName, rec.TransactionCode, rec.Change, rec.Share, rec.TransactionPrice.StringFixed(2))
	}
	if len(records) == 0 {
		b.WriteString("No insider transactions in range.\n")
	}
	return b.String(), nil
}

// Financial Statements Functions

// GetStatement fetches the most recent statement of the given type.
func (f *DataFlows) GetStatement(ctx context.Context, ticker, statementType, period string) (*FinancialStatement, error) {
	ticker, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	return f.simfin.GetStatement(ctx, ticker, statementType, period)
}

// GetBalanceSheet fetches the most recent balance sheet.
func (f *DataFlows) GetBalanceSheet(ctx context.Context, ticker, period string) (*FinancialStatement, error) {
	return f.GetStatement(ctx, ticker, StatementBalanceSheet, period)
}

// GetCashFlow fetches the most recent cash flow statement.
func (f *DataFlows) GetCashFlow(ctx context.Context, ticker, period string) (*FinancialStatement, error) {
	return f.GetStatement(ctx, ticker, StatementCashFlow, period)
}

// GetIncomeStatement fetches the most recent income statement.
func (f *DataFlows) GetIncomeStatement(ctx context.Context, ticker, period string) (*FinancialStatement, error) {
	return f.GetStatement(ctx, ticker, StatementIncome, period)
}

// GetSimfinBalanceSheetReport renders the latest balance sheet.
func (f *DataFlows) GetSimfinBalanceSheetReport(ctx context.Context, ticker, freq string) (string, error) {
	return f.statementReport(ctx, ticker, StatementBalanceSheet, freq)
}

// GetSimfinCashflowReport renders the latest cash flow statement.
func (f *DataFlows) GetSimfinCashflowReport(ctx context.Context, ticker, freq string) (string, error) {
	return f.statementReport(ctx, ticker, StatementCashFlow, freq)
}

// GetSimfinIncomeStatementsReport renders the latest income statement.
func (f *DataFlows) GetSimfinIncomeStatementsReport(ctx context.Context, ticker, freq string) (string, error) {
	return f.statementReport(ctx, ticker, StatementIncome, freq)
}

func (f *DataFlows) statementReport(ctx context.Context, ticker, statementType, freq string) (string, error) {
	stmt, err := f.GetStatement(ctx, ticker, statementType, freq)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s for %s as of %s:\n\n", stmt.Period, statementLabel(statementType), ticker, stmt.ReportDate)
	if stmt.Currency != "" {
		fmt.Fprintf(&b, "Currency: %s\n\n", stmt.Currency)
	}

	names := make([]string, 0, len(stmt.Items))
	for name := range stmt.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, formatStatementValue(stmt.Items[name]))
	}
	return b.String(), nil
}

func statementLabel(statementType string) string {
	switch statementType {
	case StatementBalanceSheet:
		return "balance sheet"
	case StatementCashFlow:
		return "cash flow statement"
	case StatementIncome:
		return "income statement"
	default:
		return statementType
	}
}

// formatStatementValue drops the fraction on whole-number line items so
// share counts and monetary totals read cleanly.
func formatStatementValue(v decimal.Decimal) string {
	if v.IsInteger() {
		return v.StringFixed(0)
	}
	return v.String()
}

// renderNewsReport formats a feed as a dated article list under a
// window header.
func renderNewsReport(title string, w DateWindow, items []NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s, from %s to %s:\n\n", title, w.Start, w.End)
	for _, item := range items {
		fmt.Fprintf(&b, "### %s (%s)\n\n", item.Title, item.PublishedAt.Format(dateLayout))
		if item.Snippet != "" {
			fmt.Fprintf(&b, "%s\n\n", item.Snippet)
		}
	}
	if len(items) == 0 {
		b.WriteString("No articles in range.\n")
	}
	return b.String()
}
