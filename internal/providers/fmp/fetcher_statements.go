package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/earningsai/internal/infra"
	"github.com/seenimoa/earningsai/internal/provider"
	"github.com/seenimoa/earningsai/pkg/models"
)

// fmpErrorResponse is the object FMP returns instead of an array on failure.
type fmpErrorResponse struct {
	ErrorMessage string `json:"Error Message"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

func (e fmpErrorResponse) detail() string {
	for _, s := range []string{e.ErrorMessage, e.Error, e.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// FetchStatement retrieves every annual record of one statement kind.
func (p *Provider) FetchStatement(ctx context.Context, ticker string, kind models.StatementKind) (*models.RawStatementTable, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, &provider.ErrMissingParam{Param: "ticker"}
	}
	if !kind.Valid() {
		return nil, &provider.ErrMissingParam{Param: "statement kind"}
	}
	fail := func(status int, cause error, detail string) error {
		return &provider.FetchError{
			Provider: providerName, Ticker: ticker, Kind: kind,
			Status: status, Err: cause, Detail: detail,
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if _, ok := ctx.Deadline(); ok {
			// The wait would outlive the deadline.
			return nil, fmt.Errorf("fmp: rate limit: %v: %w", err, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("fmp: rate limit: %w", err)
	}

	start := time.Now()
	path, query := p.statementPath(ticker, kind)
	data, status, err := infra.Get(ctx, p.client, path, query)
	if err != nil {
		var se *infra.StatusError
		if errors.As(err, &se) {
			var payload fmpErrorResponse
			_ = json.Unmarshal([]byte(se.Body), &payload)
			return nil, fail(status, provider.ErrBadStatus, payload.detail())
		}
		return nil, fail(0, err, "")
	}
	records, err := decodeStatements(data)
	if err != nil {
		var fe *provider.FetchError
		if errors.As(err, &fe) {
			return nil, fail(status, fe.Err, fe.Detail)
		}
		return nil, fail(status, provider.ErrInvalidResponse, err.Error())
	}

	p.logger.Debug().
		Str("ticker", ticker).
		Str("statement", string(kind)).
		Int("records", len(records)).
		Dur("latency", time.Since(start)).
		Msg("fmp statement fetched")

	return &models.RawStatementTable{Ticker: ticker, Kind: kind, Records: records}, nil
}

// decodeStatements accepts the array FMP returns on success and turns error
// objects and empty arrays into *provider.FetchError causes.
func decodeStatements(data []byte) ([]models.RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &provider.FetchError{Err: provider.ErrNoData}
	}

	if trimmed[0] == '{' {
		var payload fmpErrorResponse
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, err
		}
		if d := payload.detail(); d != "" {
			return nil, &provider.FetchError{Err: provider.ErrProviderError, Detail: d}
		}
		return nil, &provider.FetchError{Err: provider.ErrInvalidResponse, Detail: "expected an array of statements"}
	}

	var records []models.RawRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &provider.FetchError{Err: provider.ErrNoData}
	}
	return records, nil
}
