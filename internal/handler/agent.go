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

// AgentHandler groups repositories for the agent lifecycle: registration,
// profile reads, token distribution and agent-side user verification.
type AgentHandler struct {
	Users        *repository.UserRepo
	Agents       *repository.AgentRepo
	Assets       *repository.AssetRepo
	Payments     *repository.PaymentRepo
	Transactions *repository.TransactionRepo
}

func NewAgentHandler(users *repository.UserRepo, agents *repository.AgentRepo, assets *repository.AssetRepo, payments *repository.PaymentRepo, transactions *repository.TransactionRepo) *AgentHandler {
	if users == nil || agents == nil || assets == nil || payments == nil || transactions == nil {
		panic("nil repository passed to NewAgentHandler")
	}
	return &AgentHandler{Users: users, Agents: agents, Assets: assets, Payments: payments, Transactions: transactions}
}

type registerAgentReq struct {
	UserID  uint64 `json:"user_id"`
	Level   string `json:"level"`
	Address string `json:"address"`
}

type updateAgentReq struct {
	Level   *string `json:"level"`
	Address *string `json:"address"`
}

type distributeReq struct {
	AgentID uint64 `json:"agent_id"`
	Email   string `json:"email"`
	Amount  int64  `json:"amount"`
}

type verifyUserReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Register handles POST /v1/agents.  A user can back at most one agent;
// the unique user_id constraint turns a second registration into 409.
func (h *AgentHandler) Register(c echo.Context) error {
	var req registerAgentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	level := model.AgentLevel(strings.ToUpper(strings.TrimSpace(req.Level)))
	req.Address = strings.TrimSpace(req.Address)
	if req.UserID == 0 || req.Address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/level/address required"})
	}
	if !level.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent level"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	id, err := h.Agents.Create(ctx, req.UserID, level, req.Address)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user is already an agent"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create agent failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":      id,
		"user_id": req.UserID,
		"level":   level,
		"address": req.Address,
		"debt":    0,
	})
}

// Profile handles GET /v1/agents/:id.  The response bundles the agent
// detail with its asset catalogue and received payments.
func (h *AgentHandler) Profile(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
	}
	ctx := c.Request().Context()
	detail, err := h.Agents.GetDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	assets, err := h.Assets.ListByAgent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load assets"})
	}
	payments, err := h.Payments.ListByAgent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"agent":    detail,
		"assets":   assets,
		"payments": payments,
	})
}

// Update handles PATCH /v1/agents/:id for address/level changes.
func (h *AgentHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
	}
	var req updateAgentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Level == nil && req.Address == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}
	var level *model.AgentLevel
	if req.Level != nil {
		l := model.AgentLevel(strings.ToUpper(strings.TrimSpace(*req.Level)))
		if !l.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent level"})
		}
		level = &l
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Agents.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	agent, err := h.Agents.Update(ctx, id, level, req.Address)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, agent)
}

// Balance handles GET /v1/agents/:id/balance.  The balance lives on the
// agent's linked user row.
func (h *AgentHandler) Balance(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
	}
	detail, err := h.Agents.GetDetail(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"agent_id": detail.ID,
		"tokens":   detail.Tokens,
		"debt":     detail.Debt,
	})
}

// ListPayments handles GET /v1/agents/:id/payments.
func (h *AgentHandler) ListPayments(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Agents.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items, err := h.Payments.ListByAgent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListTransactions handles GET /v1/agents/:id/transactions.
func (h *AgentHandler) ListTransactions(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Agents.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items, err := h.Transactions.ListByAgent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Distribute handles POST /v1/agents/distribute.  The sender's debit and
// the recipient's credit run in one transaction with both user rows read
// FOR UPDATE, so the total token supply is conserved and the sender can
// never go negative.
func (h *AgentHandler) Distribute(c echo.Context) error {
	var req distributeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.AgentID == 0 || req.Email == "" || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent_id/email/amount required"})
	}

	ctx := c.Request().Context()
	tx, err := h.Users.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	agent, err := h.Agents.GetForUpdateTx(ctx, tx, req.AgentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	sender, err := h.Users.GetForUpdateTx(ctx, tx, agent.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if sender.Tokens < req.Amount {
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient tokens"})
	}
	recipient, err := h.Users.GetByEmailForUpdateTx(ctx, tx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "recipient not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if err := h.Users.AddTokensTx(ctx, tx, sender.ID, -req.Amount); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient tokens"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "debit failed"})
	}
	if err := h.Users.AddTokensTx(ctx, tx, recipient.ID, req.Amount); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "credit failed"})
	}
	agentID := agent.ID
	if err := h.Transactions.CreateTx(ctx, tx, model.Transaction{
		UserID:      recipient.ID,
		AgentID:     &agentID,
		Type:        model.TxDistribution,
		TokenAmount: req.Amount,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record transaction"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{
		"agent_id":  agent.ID,
		"recipient": recipient.Email,
		"amount":    req.Amount,
	})
}

// VerifyUser handles POST /v1/agents/verify-user: agent-side activation of
// a customer account.  Unlike self-activation it also requires the
// account's deposit to be settled.
func (h *AgentHandler) VerifyUser(c echo.Context) error {
	var req verifyUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Status != model.UserPending || u.VerificationCode == nil || *u.VerificationCode != req.Code || !u.DepositPaid {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "verification failed"})
	}
	if err := h.Users.Activate(ctx, req.Email); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "verification failed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user verified", "email": u.Email})
}
