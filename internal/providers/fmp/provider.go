// Package fmp implements the Financial Modeling Prep (FMP) statement provider.
// FMP serves annual balance sheet, income statement and cash flow statement
// records as JSON arrays, one object per fiscal year, newest first.
//
// Free tier: 250 requests/day.
// Docs: https://site.financialmodelingprep.com/developer/docs
package fmp

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/seenimoa/earningsai/internal/infra"
	"github.com/seenimoa/earningsai/internal/provider"
	"github.com/seenimoa/earningsai/pkg/models"
)

const (
	providerName = "fmp"
	credAPIKey   = "api_key"

	// DefaultBaseURL is the FMP v3 REST endpoint.
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// DefaultRateLimit is requests per second; three statements per analysis.
	DefaultRateLimit = 5
)

// Provider implements provider.StatementFetcher for FMP.
type Provider struct {
	baseURL    string
	timeout    time.Duration
	limit      int
	httpClient *http.Client
	client     *resty.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL (tests, proxies).
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithRateLimit sets requests per second. Zero or less disables limiting.
func WithRateLimit(rps int) Option {
	return func(p *Provider) {
		if rps <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

// WithLimit caps the number of fiscal years requested. Zero means provider default.
func WithLimit(n int) Option {
	return func(p *Provider) { p.limit = n }
}

// WithLogger sets a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates an FMP provider. The API key is required.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, &provider.ErrInvalidCredentials{
			Provider: providerName,
			Detail:   "missing required credential: " + credAPIKey,
		}
	}
	p := &Provider{
		baseURL: DefaultBaseURL,
		timeout: infra.DefaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = infra.NewRESTClient(infra.RESTOptions{
		BaseURL:    p.baseURL,
		Timeout:    p.timeout,
		HTTPClient: p.httpClient,
		Logger:     p.logger,
	}).SetQueryParam("apikey", apiKey)
	return p, nil
}

// Info returns provider metadata.
func (p *Provider) Info() provider.ProviderInfo {
	return provider.ProviderInfo{
		Name:        providerName,
		Description: "Financial Modeling Prep - annual financial statements",
		Website:     "https://financialmodelingprep.com",
		Credentials: []provider.ProviderCredential{
			{
				Name:        credAPIKey,
				Description: "FMP API key from financialmodelingprep.com",
				Required:    true,
				EnvVar:      "EARNINGSAI_PROVIDER_FMP_KEY",
			},
		},
		Statements: models.StatementKinds(),
	}
}

// statementPath returns the request path and query for one statement.
// The API key is a client-level query parameter.
func (p *Provider) statementPath(ticker string, kind models.StatementKind) (string, map[string]string) {
	query := map[string]string{"period": "annual"}
	if p.limit > 0 {
		query["limit"] = strconv.Itoa(p.limit)
	}
	return "/" + string(kind) + "/" + url.PathEscape(ticker), query
}
