// earningsai fetches a company's annual financial statements, derives
// liquidity, profitability and cash-flow ratios, and asks an LLM whether
// earnings will rise or fall next period.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/earningsai/api"
	"github.com/seenimoa/earningsai/internal/agent"
	"github.com/seenimoa/earningsai/internal/config"
	"github.com/seenimoa/earningsai/internal/infra"
	"github.com/seenimoa/earningsai/internal/llm"
	"github.com/seenimoa/earningsai/internal/logger"
	"github.com/seenimoa/earningsai/internal/providers/fmp"
	"github.com/seenimoa/earningsai/internal/report"
	"github.com/seenimoa/earningsai/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set in PersistentPreRunE.
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "earningsai",
	Short: "earningsai: LLM earnings direction from financial statements",
	Long: `earningsai fetches annual balance sheet, income statement and cash flow
statements from Financial Modeling Prep, standardizes them into relative
periods (t, t-1, ...), derives financial ratios and asks an LLM to predict
whether earnings will increase or decrease next period.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level, _ := cmd.Flags().GetString("log-level")
		log = logger.Setup(cfg.Logging, level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ratiosCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- wiring ---

// newPipeline builds the pipeline from config. The LLM is only constructed
// when withLLM is set, so `ratios` works without an LLM key.
func newPipeline(withLLM bool) (*agent.EarningsPipeline, error) {
	fetcher, err := fmp.New(cfg.Provider.FMPKey,
		fmp.WithBaseURL(cfg.Provider.BaseURL),
		fmp.WithTimeout(cfg.Provider.Timeout),
		fmp.WithRateLimit(cfg.Provider.RateLimit),
		fmp.WithLimit(cfg.Provider.Limit),
		fmp.WithLogger(log.With().Str("component", "fmp").Logger()),
	)
	if err != nil {
		return nil, err
	}

	pc := agent.PipelineConfig{
		Fetcher:     fetcher,
		ChatOptions: llm.ChatOptionsFromConfig(cfg.LLM),
		Logger:      log.With().Str("component", "pipeline").Logger(),
	}
	if cfg.Snapshot.Enabled {
		pc.Snapshots = infra.NewSnapshotWriter(cfg.Snapshot.Dir)
	}
	if withLLM {
		pc.LLM, err = llm.NewFromConfig(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("LLM setup failed: %w", err)
		}
	}
	return agent.NewEarningsPipeline(pc)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("earningsai %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Run the full pipeline and print the LLM analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(true)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := p.Run(ctx, args[0])
		if err != nil {
			return err
		}

		showTables, _ := cmd.Flags().GetBool("tables")
		if showTables {
			fmt.Println(report.Statements(res.Tables.BalanceSheet, res.Tables.IncomeStatement, res.Tables.CashFlow))
		}
		fmt.Printf("Analysis for %s (%s/%s, %d tokens, %v)\n\n",
			res.Ticker, res.Provider, res.Model, res.Usage.TotalTokens, res.Duration.Round(time.Millisecond))
		fmt.Println(res.Analysis)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("tables", false, "also print the ratio tables sent to the LLM")
}

// --- Ratios Command ---

var ratiosCmd = &cobra.Command{
	Use:   "ratios [ticker]",
	Short: "Fetch statements and print the ratio tables without calling the LLM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var only models.StatementKind
		if s, _ := cmd.Flags().GetString("statement"); s != "" {
			kind, err := models.ParseStatementKind(s)
			if err != nil {
				return err
			}
			only = kind
		}

		p, err := newPipeline(false)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		tables, err := p.Tables(ctx, args[0])
		if err != nil {
			return err
		}

		showPrompt, _ := cmd.Flags().GetBool("prompt")
		if showPrompt {
			fmt.Print(tables.Prompt())
			return nil
		}
		if only != "" {
			fmt.Print(report.Statements(tables.Statement(only)))
			return nil
		}
		fmt.Print(report.Statements(tables.BalanceSheet, tables.IncomeStatement, tables.CashFlow))
		return nil
	},
}

func init() {
	ratiosCmd.Flags().Bool("prompt", false, "print the full LLM prompt instead of the tables")
	ratiosCmd.Flags().String("statement", "", "print only one statement (balance-sheet-statement, income-statement, cash-flow-statement)")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		p, err := newPipeline(true)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		srv := api.NewServer(cfg, p, log.With().Str("component", "api").Logger(), version)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and API key status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  earningsai System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s, temperature: %g, top_p: %g)\n",
			cfg.LLM.Primary, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.TopP)
		fmt.Printf("    Data Provider: fmp (%s, period: %s)\n", cfg.Provider.BaseURL, cfg.Provider.Period)
		if cfg.Snapshot.Enabled {
			fmt.Printf("    Snapshots:     %s\n", cfg.Snapshot.Dir)
		} else {
			fmt.Println("    Snapshots:     disabled")
		}
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping {
			fmt.Println()
			provider, err := llm.NewFromConfig(cfg.LLM)
			if err != nil {
				fmt.Printf("  LLM Ping:      %v\n", err)
			} else {
				ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
				defer cancel()
				if err := provider.Ping(ctx); err != nil {
					fmt.Printf("  LLM Ping:      failed: %v\n", err)
				} else {
					fmt.Println("  LLM Ping:      ok")
				}
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "verify the LLM API key with a live request")
}
