package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes ledger HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createAccountRequest struct {
	OwnerID        string  `json:"owner_id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	InitialDeposit int64   `json:"initial_deposit"`
	OverdraftLimit *int64  `json:"overdraft_limit"`
	InterestRate   *string `json:"interest_rate"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type transferRequest struct {
	FromNumber string `json:"from_number"`
	ToNumber   string `json:"to_number"`
	Amount     int64  `json:"amount"`
}

type accountResponse struct {
	ID             string      `json:"id"`
	Number         string      `json:"number"`
	Type           string      `json:"type"`
	Balance        int64       `json:"balance"`
	OverdraftLimit int64       `json:"overdraft_limit,omitempty"`
	InterestRate   string      `json:"interest_rate,omitempty"`
	OwnerID        string      `json:"owner_id"`
	Name           string      `json:"name,omitempty"`
	Active         bool        `json:"active"`
	Owner          interface{} `json:"owner,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Create opens a new account.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	input := CreateAccountInput{
		OwnerID:        req.OwnerID,
		Name:           req.Name,
		Type:           AccountType(req.Type),
		InitialDeposit: req.InitialDeposit,
		OverdraftLimit: req.OverdraftLimit,
	}
	if req.InterestRate != nil {
		rate, err := decimal.NewFromString(*req.InterestRate)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid interest_rate")
		}
		input.InterestRate = &rate
	}

	account, err := h.service.CreateAccount(c.UserContext(), input)
	if err != nil {
		return errorResponse(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(account))
}

// Get returns one account by internal id, enriched with the owner profile
// when the lookup succeeds.
func (h *Handler) Get(c *fiber.Ctx) error {
	view, err := h.service.Get(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(toViewResponse(view))
}

// GetByNumber returns one account by account number.
func (h *Handler) GetByNumber(c *fiber.Ctx) error {
	view, err := h.service.GetByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(toViewResponse(view))
}

// ListByOwner returns every account belonging to an owner.
func (h *Handler) ListByOwner(c *fiber.Ctx) error {
	accounts, err := h.service.ListByOwner(c.UserContext(), c.Params("ownerId"))
	if err != nil {
		return errorResponse(err)
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toResponse(account))
	}
	return c.JSON(out)
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Deposit(c.UserContext(), c.Params("number"), req.Amount)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(toResponse(account))
}

// Withdraw debits an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Withdraw(c.UserContext(), c.Params("number"), req.Amount)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(toResponse(account))
}

// Transfer moves funds between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	result, err := h.service.Transfer(c.UserContext(), req.FromNumber, req.ToNumber, req.Amount)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(fiber.Map{
		"from": toResponse(result.From),
		"to":   toResponse(result.To),
	})
}

// Deactivate closes an account to further mutations.
func (h *Handler) Deactivate(c *fiber.Ctx) error {
	account, err := h.service.Deactivate(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(toResponse(account))
}

func errorResponse(err error) error {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrAccountClosed), errors.Is(err, ErrSelfTransfer), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrGenerationExhausted):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}

func toViewResponse(view AccountView) accountResponse {
	resp := toResponse(view.Account)
	if view.Owner != nil {
		resp.Owner = view.Owner
	}
	return resp
}

func toResponse(account Account) accountResponse {
	resp := accountResponse{
		ID:             account.ID,
		Number:         account.Number,
		Type:           string(account.Type),
		Balance:        account.Balance,
		OwnerID:        account.OwnerID,
		Name:           account.Name,
		Active:         account.Active,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	}
	switch account.Type {
	case TypeChecking:
		resp.OverdraftLimit = account.OverdraftLimit
	case TypeSavings:
		resp.InterestRate = account.InterestRate.String()
	}
	return resp
}
