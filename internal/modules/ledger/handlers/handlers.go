// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/modules/ledger"
)

// ReferenceLoader resolves benchmark and risk-free inputs for the metrics endpoint.
type ReferenceLoader interface {
	Load(ctx context.Context, since time.Time, benchmark string) (ledger.Benchmark, []float64, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	ledger    *ledger.Ledger
	reference ReferenceLoader
	log       zerolog.Logger
}

// NewHandler creates a new ledger handler. reference may be nil, in which
// case benchmark metrics are omitted.
func NewHandler(
	l *ledger.Ledger,
	reference ReferenceLoader,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ledger:    l,
		reference: reference,
		log:       log.With().Str("handler", "ledger").Logger(),
	}
}

func queryLimit(r *http.Request) int {
	limit := 100 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	return limit
}

func metadata() map[string]interface{} {
	return map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// HandleGetStatus handles GET /api/ledger/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.ledger.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read ledger status")
		http.Error(w, "Failed to read ledger status", http.StatusInternalServerError)
		return
	}

	positions := make([]map[string]interface{}, 0, len(state.Holdings))
	for _, symbol := range sortedKeys(state.Holdings) {
		positions = append(positions, map[string]interface{}{
			"symbol":        symbol,
			"quantity":      state.Holdings[symbol],
			"avg_price":     state.AvgPrice[symbol].InexactFloat64(),
			"closing_price": state.ClosingPrice[symbol],
			"return":        state.Return[symbol],
			"pnl":           state.PnL[symbol],
			"volatility":    state.Volatility[symbol],
		})
	}

	status := map[string]interface{}{
		"date":                    state.Date.Format(ledger.DateLayout),
		"balance":                 state.Balance.InexactFloat64(),
		"positions":               positions,
		"total_return":            state.TotalReturn,
		"return_since_last_month": state.ReturnSinceLastMonth,
		"total_pnl":               state.TotalPnL,
		"total_cost":              state.TotalCost,
		"net_worth":               state.NetWorth,
		"total_volatility":        state.TotalVolatility,
		"inception_date":          state.InceptionDate.Format(ledger.DateLayout),
	}
	if state.LastPurchaseDate != nil {
		status["last_purchase_date"] = state.LastPurchaseDate.Format(ledger.DateLayout)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     status,
		"metadata": metadata(),
	})
}

// HandleGetTransactions handles GET /api/ledger/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	filter := ledger.TransactionFilter{
		Symbol: r.URL.Query().Get("symbol"),
		Action: ledger.Action(strings.ToUpper(r.URL.Query().Get("action"))),
		Limit:  queryLimit(r),
	}
	switch filter.Action {
	case "", ledger.ActionBuy, ledger.ActionSell, ledger.ActionDeposit:
	default:
		http.Error(w, "Invalid action", http.StatusBadRequest)
		return
	}

	txs, err := h.ledger.Transactions(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		http.Error(w, "Failed to query transactions", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(txs))
	for _, t := range txs {
		out = append(out, map[string]interface{}{
			"id":       t.ID,
			"date":     t.Date.Format(ledger.DateLayout),
			"action":   t.Action,
			"symbol":   t.Symbol,
			"price":    t.Price.InexactFloat64(),
			"quantity": t.Quantity,
			"fee":      t.Fee.InexactFloat64(),
			"status":   t.Status,
			"success":  t.Succeeded(),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": out,
			"count":        len(out),
		},
		"metadata": metadata(),
	})
}

// HandleGetSnapshots handles GET /api/ledger/snapshots
func (h *Handler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.ledger.Snapshots(r.Context(), queryLimit(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query snapshots")
		http.Error(w, "Failed to query snapshots", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, map[string]interface{}{
			"id":                      s.ID,
			"date":                    s.State.Date.Format(ledger.DateLayout),
			"balance":                 s.State.Balance.InexactFloat64(),
			"holdings":                s.State.Holdings,
			"net_worth":               s.State.NetWorth,
			"total_pnl":               s.State.TotalPnL,
			"total_cost":              s.State.TotalCost,
			"total_return":            s.State.TotalReturn,
			"return_since_last_month": s.State.ReturnSinceLastMonth,
			"total_volatility":        s.State.TotalVolatility,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"snapshots": out,
			"count":     len(out),
		},
		"metadata": metadata(),
	})
}

// HandleGetMonthly handles GET /api/ledger/monthly
func (h *Handler) HandleGetMonthly(w http.ResponseWriter, r *http.Request) {
	series, err := h.ledger.HistoricalMonthlySeries(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build monthly series")
		http.Error(w, "Failed to build monthly series", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"months": series,
			"count":  len(series),
		},
		"metadata": metadata(),
	})
}

// HandleGetMetrics handles GET /api/ledger/metrics?since=YYYY-MM-DD&benchmark=KEY
// where KEY is a symbol or an index key (world, sector:NAME, region:NAME).
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	state, err := h.ledger.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read ledger status")
		http.Error(w, "Failed to read ledger status", http.StatusInternalServerError)
		return
	}

	since := state.InceptionDate
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse("2006-01-02", sinceStr)
		if err != nil {
			http.Error(w, "Invalid since date", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	var (
		bench    ledger.Benchmark
		riskFree []float64
		warnings []string
	)
	if h.reference != nil {
		bench, riskFree, err = h.reference.Load(r.Context(), since, r.URL.Query().Get("benchmark"))
		if err != nil {
			h.log.Warn().Err(err).Msg("Benchmark unavailable, omitting relative metrics")
			warnings = append(warnings, err.Error())
			bench, riskFree = nil, nil
		}
	}

	m, err := h.ledger.Metrics(r.Context(), time.Now().UTC(), since, bench, riskFree)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute metrics")
		http.Error(w, "Failed to compute metrics", http.StatusInternalServerError)
		return
	}

	meta := metadata()
	if len(warnings) > 0 {
		meta["warnings"] = warnings
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     m,
		"metadata": meta,
	})
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
