// Package infra provides shared infrastructure components used across
// the application: a REST client for data providers and flat-file snapshots.
package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single outbound request when the caller's client has none.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept on StatusError.
const maxErrorBody = 4096

// StatusError is returned by Get for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	Body   string // first bytes of the response body
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// RESTOptions configures NewRESTClient.
type RESTOptions struct {
	BaseURL    string
	Timeout    time.Duration // ignored when HTTPClient is set
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewRESTClient returns a resty client that asks for JSON and logs through zerolog.
func NewRESTClient(o RESTOptions) *resty.Client {
	var c *resty.Client
	if o.HTTPClient != nil {
		c = resty.NewWithClient(o.HTTPClient)
	} else {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c = resty.New().SetTimeout(timeout)
	}
	return c.
		SetBaseURL(o.BaseURL).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{o.Logger})
}

// Get issues a GET for path (relative to the client's base URL) and returns
// the body of a 2xx response. Non-2xx responses are reported as *StatusError.
// Query strings never appear in returned errors, so API keys set as client
// query parameters stay out of logs.
func Get(ctx context.Context, c *resty.Client, path string, query map[string]string) ([]byte, int, error) {
	resp, err := c.R().SetContext(ctx).SetQueryParams(query).Get(path)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, 0, fmt.Errorf("GET %s: %w", redactURL(c, path), err)
	}
	if !resp.IsSuccess() {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, resp.StatusCode(), &StatusError{URL: redactURL(c, path), Status: resp.StatusCode(), Body: string(body)}
	}
	return resp.Body(), resp.StatusCode(), nil
}

// redactURL joins base URL and path without any query string.
func redactURL(c *resty.Client, path string) string {
	u := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return u
}

// restyLogger adapts zerolog to resty.Logger.
type restyLogger struct {
	l zerolog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug().Msgf(format, v...) }
