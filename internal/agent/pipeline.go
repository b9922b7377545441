// Package agent runs the earnings analysis: it fetches the three annual
// statements for a ticker, standardizes them, derives ratios, renders the
// tables and asks an LLM whether earnings will rise or fall next period.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seenimoa/earningsai/internal/agent/prompts"
	"github.com/seenimoa/earningsai/internal/analysis/fundamental"
	"github.com/seenimoa/earningsai/internal/infra"
	"github.com/seenimoa/earningsai/internal/llm"
	"github.com/seenimoa/earningsai/internal/provider"
	"github.com/seenimoa/earningsai/internal/report"
	"github.com/seenimoa/earningsai/pkg/models"
	"github.com/seenimoa/earningsai/pkg/utils"
)

// ErrNoLLM is returned by Run when the pipeline was built without a chat provider.
var ErrNoLLM = errors.New("agent: no LLM provider configured")

// PipelineConfig holds the collaborators of an EarningsPipeline.
type PipelineConfig struct {
	Fetcher     provider.StatementFetcher
	LLM         llm.ChatProvider // optional; required by Run
	ChatOptions llm.ChatOptions
	Snapshots   *infra.SnapshotWriter // optional raw-table CSV snapshots
	Logger      zerolog.Logger
}

// EarningsPipeline is stateless between calls; each call builds fresh tables.
type EarningsPipeline struct {
	fetcher   provider.StatementFetcher
	llm       llm.ChatProvider
	opts      llm.ChatOptions
	snapshots *infra.SnapshotWriter
	logger    zerolog.Logger
}

// Tables are the three ratio-augmented statements of one ticker.
type Tables struct {
	BalanceSheet    *models.StatementTable `json:"balance_sheet"`
	IncomeStatement *models.StatementTable `json:"income_statement"`
	CashFlow        *models.StatementTable `json:"cash_flow"`
}

// Result is the outcome of a full analysis run.
type Result struct {
	RunID    string        `json:"run_id"`
	Ticker   string        `json:"ticker"`
	Analysis string        `json:"analysis"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Usage    llm.Usage     `json:"usage"`
	Duration time.Duration `json:"duration"`
	Tables   *Tables       `json:"-"`
}

// NewEarningsPipeline validates cfg and builds a pipeline.
func NewEarningsPipeline(cfg PipelineConfig) (*EarningsPipeline, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("agent: statement fetcher is required")
	}
	return &EarningsPipeline{
		fetcher:   cfg.Fetcher,
		llm:       cfg.LLM,
		opts:      cfg.ChatOptions,
		snapshots: cfg.Snapshots,
		logger:    cfg.Logger,
	}, nil
}

// Tables fetches, standardizes and derives ratios for all three statements.
// Any failure aborts the run and is returned unmodified.
func (p *EarningsPipeline) Tables(ctx context.Context, ticker string) (*Tables, error) {
	ticker, err := utils.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	log := p.logger.With().Str("ticker", ticker).Logger()
	return p.tables(ctx, ticker, log)
}

func (p *EarningsPipeline) tables(ctx context.Context, ticker string, log zerolog.Logger) (*Tables, error) {
	std := make(map[models.StatementKind]*models.StatementTable, 3)
	for _, kind := range models.StatementKinds() {
		raw, err := p.fetcher.FetchStatement(ctx, ticker, kind)
		if err != nil {
			return nil, err
		}
		if p.snapshots != nil {
			path, err := p.snapshots.Write(raw)
			if err != nil {
				return nil, err
			}
			log.Debug().Str("statement", string(kind)).Str("path", path).Msg("snapshot written")
		}

		t, err := fundamental.Standardize(raw)
		if err != nil {
			return nil, err
		}
		log.Info().Str("statement", string(kind)).Int("periods", t.Len()).Msg("statement standardized")
		std[kind] = t
	}

	balance, err := fundamental.BalanceSheetRatios(std[models.BalanceSheet])
	if err != nil {
		return nil, err
	}
	income, err := fundamental.IncomeStatementRatios(std[models.IncomeStatement])
	if err != nil {
		return nil, err
	}
	cashFlow, err := fundamental.CashFlowMetrics(std[models.CashFlow], std[models.IncomeStatement], std[models.BalanceSheet])
	if err != nil {
		return nil, err
	}
	log.Info().Msg("ratios derived")

	return &Tables{BalanceSheet: balance, IncomeStatement: income, CashFlow: cashFlow}, nil
}

// Statement returns the table of one statement kind, or nil for an unknown kind.
func (t *Tables) Statement(kind models.StatementKind) *models.StatementTable {
	switch kind {
	case models.BalanceSheet:
		return t.BalanceSheet
	case models.IncomeStatement:
		return t.IncomeStatement
	case models.CashFlow:
		return t.CashFlow
	}
	return nil
}

// Prompt renders the tables into the earnings chain-of-thought prompt.
func (t *Tables) Prompt() string {
	return prompts.EarningsCoT(
		report.RenderTable(t.BalanceSheet),
		report.RenderTable(t.IncomeStatement),
		report.RenderTable(t.CashFlow),
	)
}

// Run executes the full pipeline and returns the LLM's analysis.
func (p *EarningsPipeline) Run(ctx context.Context, ticker string) (*Result, error) {
	if p.llm == nil {
		return nil, ErrNoLLM
	}
	ticker, err := utils.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.With().Str("run_id", runID).Str("ticker", ticker).Logger()

	tables, err := p.tables(ctx, ticker, log)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline aborted")
		return nil, err
	}

	opts := p.opts
	resp, err := p.llm.Chat(ctx, []llm.Message{llm.UserMessage(tables.Prompt())}, &opts)
	if err != nil {
		log.Warn().Err(err).Str("provider", p.llm.Name()).Msg("analysis failed")
		return nil, fmt.Errorf("analysis: %w", err)
	}
	log.Debug().Str("response", resp.String()).Msg("llm response")

	res := &Result{
		RunID:    runID,
		Ticker:   ticker,
		Analysis: resp.Content,
		Provider: resp.Provider,
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: time.Since(start),
		Tables:   tables,
	}
	log.Info().
		Str("model", res.Model).
		Int("tokens", res.Usage.TotalTokens).
		Dur("duration", res.Duration).
		Msg("analysis generated")
	return res, nil
}
