package infra

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/earningsai/pkg/models"
)

func newRESTClient(t *testing.T, handler http.HandlerFunc) *resty.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRESTClient(RESTOptions{BaseURL: server.URL + "/", Logger: zerolog.Nop()}).
		SetQueryParam("apikey", "secret")
}

func TestGet(t *testing.T) {
	c := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "annual", r.URL.Query().Get("period"))
		w.Write([]byte(`[{"ok":true}]`))
	})

	data, status, err := Get(context.Background(), c, "/x", map[string]string{"period": "annual"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `[{"ok":true}]`, string(data))
}

func TestGetStatusError(t *testing.T) {
	c := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"Error Message":"Invalid API KEY."}`))
	})

	data, status, err := Get(context.Background(), c, "x", nil)
	assert.Nil(t, data)
	assert.Equal(t, http.StatusForbidden, status)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
	assert.Contains(t, se.Body, "Invalid API KEY")
	assert.True(t, strings.HasSuffix(se.URL, "/x"), se.URL)
	assert.NotContains(t, err.Error(), "secret")
}

func TestGetCancelledContext(t *testing.T) {
	c := newRESTClient(t, func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Get(ctx, c, "/x", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotContains(t, err.Error(), "secret")
}

func TestNewRESTClientTimeout(t *testing.T) {
	c := NewRESTClient(RESTOptions{BaseURL: "http://example.invalid"})
	assert.Equal(t, DefaultTimeout, c.GetClient().Timeout)

	c = NewRESTClient(RESTOptions{Timeout: time.Second})
	assert.Equal(t, time.Second, c.GetClient().Timeout)

	hc := &http.Client{Timeout: time.Minute}
	c = NewRESTClient(RESTOptions{HTTPClient: hc, Timeout: time.Second})
	assert.Same(t, hc, c.GetClient())
}

func TestSnapshotWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	w := NewSnapshotWriter(dir)

	table := &models.RawStatementTable{
		Ticker: "AAPL",
		Kind:   models.IncomeStatement,
		Records: []models.RawRecord{
			{"calendarYear": "2023", "revenue": 383285000000.0, "symbol": "AAPL"},
			{"calendarYear": "2022", "revenue": 394328000000.0},
		},
	}

	path, err := w.Write(table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AAPL_income-statement_data.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"calendarYear", "revenue", "symbol"},
		{"2023", "383285000000", "AAPL"},
		{"2022", "394328000000", ""},
	}, rows)
}

func TestSnapshotWriterNilTable(t *testing.T) {
	_, err := NewSnapshotWriter(t.TempDir()).Write(nil)
	assert.Error(t, err)
}

func TestNewSnapshotWriterDefaultDir(t *testing.T) {
	assert.Equal(t, ".", NewSnapshotWriter("").Dir)
}
