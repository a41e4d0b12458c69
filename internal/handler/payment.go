package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taksrules/choto-api/internal/model"
	"github.com/taksrules/choto-api/internal/repository"
)

// PaymentHandler groups repositories for the monetary payment ledger.
// The gateway integration is a stub, so payments record as COMPLETED.
type PaymentHandler struct {
	Users        *repository.UserRepo
	Agents       *repository.AgentRepo
	Payments     *repository.PaymentRepo
	Transactions *repository.TransactionRepo
}

func NewPaymentHandler(users *repository.UserRepo, agents *repository.AgentRepo, payments *repository.PaymentRepo, transactions *repository.TransactionRepo) *PaymentHandler {
	if users == nil || agents == nil || payments == nil || transactions == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{Users: users, Agents: agents, Payments: payments, Transactions: transactions}
}

type createPaymentReq struct {
	UserID  uint64  `json:"user_id"`
	AgentID *uint64 `json:"agent_id"`
	Amount  float64 `json:"amount"`
	Method  string  `json:"method"`
}

// Create handles POST /v1/payments.
func (h *PaymentHandler) Create(c echo.Context) error {
	var req createPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	method := model.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method)))
	if req.UserID == 0 || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/amount/method required"})
	}
	if !method.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment method"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if req.AgentID != nil {
		if _, err := h.Agents.GetByID(ctx, *req.AgentID); err != nil {
			if err == sql.ErrNoRows {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}

	id, err := h.Payments.Create(ctx, req.UserID, req.AgentID, req.Amount, method, model.PaymentCompleted)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":      id,
		"user_id": req.UserID,
		"amount":  req.Amount,
		"method":  method,
		"status":  model.PaymentCompleted,
	})
}

// GetByID handles GET /v1/payments/:id.
func (h *PaymentHandler) GetByID(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	detail, err := h.Payments.GetDetail(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// GetTransaction handles GET /v1/payments/:id/transaction, fetching a
// single ledger row with its display fields.
func (h *PaymentHandler) GetTransaction(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}
	detail, err := h.Transactions.GetDetail(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// ListForUser handles GET /v1/payments/user: the caller's own payments.
func (h *PaymentHandler) ListForUser(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Payments.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
