package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerbus/ledgerbus/internal/history"
)

// RegisterTransactionRoutes wires transaction-history endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *history.Handler) {
	r.Get("/transactions/:reference", h.GetByReference)
	r.Post("/transactions/:reference/status", h.UpdateStatus)
	r.Get("/accounts/number/:number/transactions", h.ListByAccount)
}
