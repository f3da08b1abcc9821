package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerbus/ledgerbus/internal/ledger"
)

// RegisterAccountRoutes wires ledger endpoints.
func RegisterAccountRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts/:accountId", h.Get)
	r.Post("/accounts/:accountId/deactivate", h.Deactivate)
	r.Get("/accounts/number/:number", h.GetByNumber)
	r.Post("/accounts/number/:number/deposit", h.Deposit)
	r.Post("/accounts/number/:number/withdraw", h.Withdraw)
	r.Get("/owners/:ownerId/accounts", h.ListByOwner)
	r.Post("/transfers", h.Transfer)
}
