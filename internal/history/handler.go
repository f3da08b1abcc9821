package history

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes transaction-history HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a history HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type recordResponse struct {
	Reference          string    `json:"reference"`
	Type               string    `json:"type"`
	SourceAccount      string    `json:"source_account"`
	DestinationAccount string    `json:"destination_account,omitempty"`
	Amount             int64     `json:"amount"`
	BalanceAfter       int64     `json:"balance_after"`
	Description        string    `json:"description,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	Status             string    `json:"status"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// GetByReference returns one transaction record.
func (h *Handler) GetByReference(c *fiber.Ctx) error {
	record, err := h.service.GetByReference(c.UserContext(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(toRecordResponse(record))
}

// ListByAccount returns records involving an account.
func (h *Handler) ListByAccount(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	records, err := h.service.ListByAccount(c.UserContext(), c.Params("number"), limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toRecordResponse(record))
	}
	return c.JSON(out)
}

// UpdateStatus requests an asynchronous status transition.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	err := h.service.RequestStatusChange(c.UserContext(), c.Params("reference"), Status(req.Status))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.SendStatus(http.StatusAccepted)
}

func toRecordResponse(record Record) recordResponse {
	return recordResponse{
		Reference:          record.Reference,
		Type:               record.Type,
		SourceAccount:      record.SourceAccount,
		DestinationAccount: record.DestinationAccount,
		Amount:             record.Amount,
		BalanceAfter:       record.BalanceAfter,
		Description:        record.Description,
		Timestamp:          record.Timestamp,
		Status:             string(record.Status),
	}
}
