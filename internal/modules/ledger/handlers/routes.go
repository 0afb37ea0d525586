package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Get("/transactions", h.HandleGetTransactions)
		r.Get("/snapshots", h.HandleGetSnapshots)
		r.Get("/monthly", h.HandleGetMonthly)
		r.Get("/metrics", h.HandleGetMetrics)
	})
}
