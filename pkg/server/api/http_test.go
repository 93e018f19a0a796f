package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/consensus-oracle/pkg/logging"
	"tc.com/consensus-oracle/pkg/oracle/alert"
	"tc.com/consensus-oracle/pkg/oracle/consensus"
	"tc.com/consensus-oracle/pkg/oracle/controller"
	"tc.com/consensus-oracle/pkg/oracle/feed"
	"tc.com/consensus-oracle/pkg/oracle/history"
	"tc.com/consensus-oracle/pkg/oracle/policy"
)

type staticAdapter struct {
	name   string
	prices map[string]decimal.Decimal
}

func (a *staticAdapter) Name() string { return a.name }

func (a *staticAdapter) Fetch(context.Context) (map[string]decimal.Decimal, error) {
	return a.prices, nil
}

type silentNotifier struct{}

func (silentNotifier) Notify(context.Context, string, alert.Notification) error { return nil }

func newTestServer(t *testing.T) (*Server, *controller.Controller) {
	t.Helper()
	logger := logging.NewNoopLogger()

	adapters := []feed.Adapter{
		&staticAdapter{name: "binance", prices: map[string]decimal.Decimal{
			"BTC/USD": decimal.NewFromInt(41000),
			"ETH/USD": decimal.NewFromInt(2500),
		}},
	}

	ctrl := controller.New(
		controller.Config{ReferenceAsset: "BTC/USD", QuoteAsset: "ETH/USD"},
		feed.NewAggregator(adapters, nil, time.Second, logger),
		consensus.NewEngine("BTC/USD", consensus.DefaultConfidenceFloor),
		consensus.Bounds{
			ReferenceAsset: "BTC/USD",
			Min:            decimal.NewFromInt(1000),
			Max:            decimal.NewFromInt(10000000),
		},
		policy.New("BTC/USD", 15*time.Minute, 0.05),
		history.NewStore(100),
		alert.NewEngine([]string{"BTC/USD", "ETH/USD"}, silentNotifier{}, logger),
		nil,
		nil,
		logger,
	)

	return NewServer(":0", ctrl, logger), ctrl
}

func doRequest(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandlePrice(t *testing.T) {
	server, ctrl := newTestServer(t)

	// No accepted cycle yet
	rec := doRequest(t, server.handlePrice, http.MethodGet, "/v1/price", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, ctrl.RunCycle(context.Background()))

	rec = doRequest(t, server.handlePrice, http.MethodGet, "/v1/price", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result consensus.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Prices["BTC/USD"].Equal(decimal.NewFromInt(41000)))
	assert.Equal(t, []string{"binance"}, result.Sources)
}

func TestHandleConvert(t *testing.T) {
	server, ctrl := newTestServer(t)

	rec := doRequest(t, server.handleConvert, http.MethodGet, "/v1/convert", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server.handleConvert, http.MethodGet, "/v1/convert?amount=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server.handleConvert, http.MethodGet, "/v1/convert?amount=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server.handleConvert, http.MethodGet, "/v1/convert?amount=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, ctrl.RunCycle(context.Background()))

	rec = doRequest(t, server.handleConvert, http.MethodGet, "/v1/convert?amount=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var conv controller.Conversion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.True(t, conv.Rate.Equal(decimal.NewFromFloat(16.4)), "got %s", conv.Rate.String())
}

func TestHandleHistory(t *testing.T) {
	server, ctrl := newTestServer(t)
	require.NoError(t, ctrl.RunCycle(context.Background()))

	rec := doRequest(t, server.handleHistory, http.MethodGet, "/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw []consensus.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Len(t, raw, 1)

	rec = doRequest(t, server.handleHistory, http.MethodGet, "/v1/history?resolution=hourly", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server.handleHistory, http.MethodGet, "/v1/history?since=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server.handleHistory, http.MethodGet, "/v1/history?resolution=weekly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	server, ctrl := newTestServer(t)
	require.NoError(t, ctrl.RunCycle(context.Background()))

	rec := doRequest(t, server.handleStatus, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status controller.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Stats.TotalCycles)
	assert.Equal(t, []string{"binance"}, status.ConfiguredSources)
	assert.False(t, status.LedgerEnabled)
}

func TestHandleAlerts(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server.handleAlerts, http.MethodGet, "/v1/alerts", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(t, server.handleAlerts, http.MethodPost, "/v1/alerts",
		`{"thresholds": {"BTC/USD": {"upper": "50000"}}, "notify_target": "http://example.org/hook"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var rule alert.Rule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	assert.True(t, rule.Active)
	require.NotNil(t, rule.Thresholds["BTC/USD"].Upper)

	// Missing notify target
	rec = doRequest(t, server.handleAlerts, http.MethodPost, "/v1/alerts",
		`{"thresholds": {"BTC/USD": {"upper": "50000"}}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOverride(t *testing.T) {
	server, ctrl := newTestServer(t)

	rec := doRequest(t, server.handleOverride, http.MethodGet, "/v1/override", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(t, server.handleOverride, http.MethodPost, "/v1/override",
		`{"prices": {"BTC/USD": "42000", "ETH/USD": "2600"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code) // Reason is required

	rec = doRequest(t, server.handleOverride, http.MethodPost, "/v1/override",
		`{"prices": {"BTC/USD": "1"}, "reason": "test"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code) // Below plausible floor

	rec = doRequest(t, server.handleOverride, http.MethodPost, "/v1/override",
		`{"prices": {"BTC/USD": "42000", "ETH/USD": "2600"}, "reason": "exchange outage"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	current := ctrl.CurrentPrices()
	require.NotNil(t, current)
	assert.True(t, current.Emergency)
	assert.True(t, current.Prices["BTC/USD"].Equal(decimal.NewFromInt(42000)))
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server.handleHealth, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
