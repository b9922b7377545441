// Package provider defines the contract between the analysis pipeline and
// financial-data providers. A provider returns one raw statement table per
// (ticker, statement kind) request; failures surface as *FetchError.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/seenimoa/earningsai/pkg/models"
)

// ProviderCredential describes a required credential for a provider.
type ProviderCredential struct {
	Name        string `json:"name"`        // e.g., "api_key"
	Description string `json:"description"` // e.g., "FMP API key from financialmodelingprep.com"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "EARNINGSAI_PROVIDER_FMP_KEY"
}

// ProviderInfo holds metadata about a provider.
type ProviderInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Website     string                 `json:"website"`
	Credentials []ProviderCredential   `json:"credentials"`
	Statements  []models.StatementKind `json:"statements"`
}

// StatementFetcher retrieves raw statement tables.
type StatementFetcher interface {
	// Info returns metadata about this provider.
	Info() ProviderInfo

	// FetchStatement returns every period record the provider has for the
	// ticker and statement kind. An empty result is an error, never an
	// empty table.
	FetchStatement(ctx context.Context, ticker string, kind models.StatementKind) (*models.RawStatementTable, error)
}

// Sentinel causes carried by FetchError.
var (
	// ErrNoData means the provider answered but returned no records.
	ErrNoData = errors.New("provider: no data returned")
	// ErrProviderError means the provider answered with an error payload.
	ErrProviderError = errors.New("provider: provider reported an error")
	// ErrBadStatus means the provider answered with a non-success HTTP status.
	ErrBadStatus = errors.New("provider: request failed")
	// ErrInvalidResponse means the payload could not be decoded.
	ErrInvalidResponse = errors.New("provider: invalid response")
)

// FetchError describes a failed statement fetch.
type FetchError struct {
	Provider string
	Ticker   string
	Kind     models.StatementKind
	Status   int    // HTTP status, 0 when no response was received
	Detail   string // provider message, if any
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s for %s", e.Provider, e.Kind, e.Ticker)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrMissingParam is returned when a required request parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}

// IsClientError reports whether err is a fetch failure caused by the request
// itself (unknown ticker, empty or rejected payload) rather than the transport.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, ErrProviderError)
}
