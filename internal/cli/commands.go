package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaneLin1217/TradingAgents/internal/config"
	"github.com/KaneLin1217/TradingAgents/internal/dataflows"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "dataflow",
		Short: "Market data aggregation for trading analysis",
		Long: `dataflow aggregates quotes, historical prices, technical indicators,
fundamentals, and news/sentiment from Finnhub, Yahoo Finance, SimFin,
Reddit, and Google News into plain-text reports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newQuoteCmd(cfg))
	rootCmd.AddCommand(newBarsCmd(cfg))
	rootCmd.AddCommand(newIndicatorCmd(cfg))
	rootCmd.AddCommand(newNewsCmd(cfg))
	rootCmd.AddCommand(newSentimentCmd(cfg))
	rootCmd.AddCommand(newFundamentalsCmd(cfg))
	rootCmd.AddCommand(newInsiderCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newFlows(cfg *config.Config) (*dataflows.DataFlows, context.Context, context.CancelFunc, error) {
	flows, err := dataflows.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	return flows, ctx, cancel, nil
}

func newQuoteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "quote TICKER",
		Short: "Show the current quote for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			report, err := flows.GetQuoteReport(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}
}

func newBarsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bars TICKER",
		Short: "Show historical daily bars for a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")

			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			report, err := flows.GetYFinDataReport(ctx, args[0], start, end)
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}

	cmd.Flags().String("start", "", "Start date in YYYY-MM-DD format")
	cmd.Flags().String("end", "", "End date in YYYY-MM-DD format")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func newIndicatorCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicator TICKER NAME",
		Short: "Show technical indicator values over a lookback window",
		Long: fmt.Sprintf(`Compute a technical indicator over a lookback window ending at --date.
Supported indicators: %v`, dataflows.KnownIndicators()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			days, _ := cmd.Flags().GetInt("days")

			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			report, err := flows.GetStockStatsIndicatorsWindow(ctx, args[0], args[1], date, days)
			if err != nil {
				return err
			}
			fmt.Println(report)
			return nil
		},
	}

	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "End date in YYYY-MM-DD format")
	cmd.Flags().Int("days", 30, "Lookback window in days")
	return cmd
}

func newNewsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news TICKER",
		Short: "Show news for a ticker from one source or all merged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			days, _ := cmd.Flags().GetInt("days")
			limit, _ := cmd.Flags().GetInt("limit")
			source, _ := cmd.Flags().GetString("source")

			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			ticker := args[0]
			var report string
			switch source {
			case "finnhub":
				report, err = flows.GetFinnhubNewsReport(ctx, ticker, date, days)
			case "google":
				report, err = flows.GetGoogleNewsReport(ctx, ticker, date, days)
			case "reddit":
				report, err = flows.GetRedditCompanyNewsReport(ctx, ticker, date, days, limit)
			case "all":
				var items []dataflows.NewsItem
				items, err = flows.GetCombinedNews(ctx, ticker, date, days, limit)
				if err == nil {
					for _, item := range items {
						fmt.Printf("%s | %s | %s\n", item.PublishedAt.Format("2006-01-02"), item.Source, item.Title)
					}
					return nil
				}
			default:
				return fmt.Errorf("unknown source %q: choose finnhub, google, reddit, or all", source)
			}
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}

	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "End date in YYYY-MM-DD format")
	cmd.Flags().Int("days", 7, "Lookback window in days")
	cmd.Flags().Int("limit", 25, "Maximum number of items")
	cmd.Flags().String("source", "all", "News source: finnhub, google, reddit, or all")
	return cmd
}

func newSentimentCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentiment TICKER",
		Short: "Score merged news sentiment for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			days, _ := cmd.Flags().GetInt("days")

			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			report, err := flows.GetSentimentReport(ctx, args[0], date, days)
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}

	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "End date in YYYY-MM-DD format")
	cmd.Flags().Int("days", 7, "Lookback window in days")
	return cmd
}

func newFundamentalsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fundamentals TICKER",
		Short: "Show the latest financial statement for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, _ := cmd.Flags().GetString("statement")
			freq, _ := cmd.Flags().GetString("freq")

			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			ticker := args[0]
			var report string
			switch statement {
			case dataflows.StatementBalanceSheet:
				report, err = flows.GetSimfinBalanceSheetReport(ctx, ticker, freq)
			case dataflows.StatementCashFlow:
				report, err = flows.GetSimfinCashflowReport(ctx, ticker, freq)
			case dataflows.StatementIncome:
				report, err = flows.GetSimfinIncomeStatementsReport(ctx, ticker, freq)
			default:
				return fmt.Errorf("unknown statement %q: choose balance_sheet, cash_flow, or income_statement", statement)
			}
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}

	cmd.Flags().String("statement", dataflows.StatementBalanceSheet, "Statement type: balance_sheet, cash_flow, or income_statement")
	cmd.Flags().String("freq", dataflows.PeriodAnnual, "Reporting period: annual or quarterly")
	return cmd
}

func newInsiderCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insider TICKER",
		Short: "Show insider sentiment or transactions for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			days, _ := cmd.Flags().GetInt("days")
			transactions, _ := cmd.Flags().GetBool("transactions")

			flows, ctx, cancel, err := newFlows(cfg)
			if err != nil {
				return err
			}
			defer cancel()

			var report string
			if transactions {
				report, err = flows.GetFinnhubCompanyInsiderTransactionsReport(ctx, args[0], date, days)
			} else {
				report, err = flows.GetFinnhubCompanyInsiderSentimentReport(ctx, args[0], date, days)
			}
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}

	cmd.Flags().String("date", time.Now().Format("2006-01-02"), "End date in YYYY-MM-DD format")
	cmd.Flags().Int("days", 30, "Lookback window in days")
	cmd.Flags().Bool("transactions", false, "Show transactions instead of monthly sentiment")
	return cmd
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Data source mode:  %s\n", cfg.DataSourceMode)
			fmt.Printf("Project dir:       %s\n", cfg.ProjectDir)
			fmt.Printf("Data dir:          %s\n", cfg.DataDir)
			fmt.Printf("Snapshot dir:      %s\n", cfg.SnapshotDir)
			fmt.Printf("Request timeout:   %s\n", cfg.RequestTimeout)
			fmt.Printf("Finnhub API key:   %s\n", maskKey(cfg.FinnhubAPIKey))
			fmt.Printf("SimFin API key:    %s\n", maskKey(cfg.SimFinAPIKey))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})

	return configCmd
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("dataflow v1.0.0")
		},
	}
}
