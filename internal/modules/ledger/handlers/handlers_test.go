package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/playground/internal/config"
	"github.com/aristath/playground/internal/database"
	"github.com/aristath/playground/internal/modules/ledger"
	testingpkg "github.com/aristath/playground/internal/testing"
)

type staticReference struct {
	bench    ledger.Benchmark
	riskFree []float64
	err      error
	asked    *string
}

func (s staticReference) Load(_ context.Context, _ time.Time, benchmark string) (ledger.Benchmark, []float64, error) {
	if s.asked != nil {
		*s.asked = benchmark
	}
	return s.bench, s.riskFree, s.err
}

// setupLedger opens a ledger with one position, one rejected order and one snapshot.
func setupLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	db := testingpkg.NewTestDB(t, database.NameLedger)
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	fees := ledger.NewFeeModel(config.FeeConfig{FlatFee: 5, PerShareFee: 0.01, RevenueRateFee: 0.25})
	l := ledger.New(ledger.NewRepository(db.Conn(), logger), fees, nil, nil, nil, logger)

	ctx := context.Background()
	start := testingpkg.Day(2024, time.August, 1)
	require.NoError(t, l.Open(ctx, decimal.NewFromInt(100000), start))

	_, err := l.Buy(ctx, start, "AAPL", decimal.NewFromInt(150), 10)
	require.NoError(t, err)
	_, err = l.Sell(ctx, start, "MSFT", decimal.NewFromInt(300), 5)
	require.NoError(t, err)
	_, err = l.Snapshot(ctx, start)
	require.NoError(t, err)
	return l
}

func serve(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})

	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if w.Code == http.StatusOK {
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Contains(t, response, "metadata")
	}
	return w, response
}

func TestHandleGetStatus(t *testing.T) {
	h := NewHandler(setupLedger(t), nil, zerolog.Nop())

	w, response := serve(t, h, "/api/ledger/status")
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, 98495.0, data["balance"])
	positions := data["positions"].([]interface{})
	require.Len(t, positions, 1)
	position := positions[0].(map[string]interface{})
	assert.Equal(t, "AAPL", position["symbol"])
	assert.Equal(t, 10.0, position["quantity"])
	assert.Equal(t, 150.0, position["avg_price"])
	assert.Contains(t, data, "last_purchase_date")
}

func TestHandleGetTransactions(t *testing.T) {
	h := NewHandler(setupLedger(t), nil, zerolog.Nop())

	w, response := serve(t, h, "/api/ledger/transactions")
	require.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["count"])

	txs := data["transactions"].([]interface{})
	newest := txs[0].(map[string]interface{})
	assert.Equal(t, "MSFT", newest["symbol"])
	assert.Equal(t, false, newest["success"])
	assert.Equal(t, "FAILED: Insufficient holdings of MSFT to sell (desired: 5).", newest["status"])
}

func TestHandleGetTransactions_Filters(t *testing.T) {
	h := NewHandler(setupLedger(t), nil, zerolog.Nop())

	_, response := serve(t, h, "/api/ledger/transactions?symbol=AAPL&action=buy&limit=5")
	data := response["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["count"])

	w, _ := serve(t, h, "/api/ledger/transactions?action=WITHDRAW")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetSnapshotsAndMonthly(t *testing.T) {
	h := NewHandler(setupLedger(t), nil, zerolog.Nop())

	_, response := serve(t, h, "/api/ledger/snapshots")
	data := response["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["count"])

	_, response = serve(t, h, "/api/ledger/monthly")
	data = response["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["count"])
}

func TestHandleGetMetrics(t *testing.T) {
	bench := ledger.NewHistoryBenchmark(testingpkg.NewHistory("^GSPC", testingpkg.Day(2024, time.August, 1), 100, 101, 103))
	var asked string
	h := NewHandler(setupLedger(t), staticReference{bench: bench, riskFree: []float64{0.3}, asked: &asked}, zerolog.Nop())

	w, response := serve(t, h, "/api/ledger/metrics?since=2024-08-01&benchmark=sector:Energy")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sector:Energy", asked)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["months"])
	assert.InDelta(t, -3.0, data["relative_performance"], 1e-9)
	assert.Nil(t, data["sharpe"])
}

func TestHandleGetMetrics_BenchmarkUnavailable(t *testing.T) {
	h := NewHandler(setupLedger(t), staticReference{err: errors.New("provider down")}, zerolog.Nop())

	w, response := serve(t, h, "/api/ledger/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	meta := response["metadata"].(map[string]interface{})
	assert.Contains(t, meta, "warnings")
	data := response["data"].(map[string]interface{})
	assert.Nil(t, data["relative_performance"])
}

func TestHandleGetMetrics_InvalidSince(t *testing.T) {
	h := NewHandler(setupLedger(t), nil, zerolog.Nop())
	w, _ := serve(t, h, "/api/ledger/metrics?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
