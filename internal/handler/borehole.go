package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taksrules/choto-api/internal/model"
	"github.com/taksrules/choto-api/internal/queue"
	"github.com/taksrules/choto-api/internal/repository"
	queue_publisher "github.com/taksrules/choto-api/internal/service"
	"github.com/taksrules/choto-api/internal/utils"
)

// BoreholeHandler implements the three-step water voucher pipeline:
//
//	1. purchase    - user buys water, gets a purchase code   (PENDING)
//	2. agent-code  - agent confirms payment, issues a code   (PAID)
//	3. token-code  - codes are exchanged for a meter token   (COMPLETED)
//
// Steps 2 and 3 lock the purchase row FOR UPDATE and guard on the
// expected status, so out-of-order or repeated calls fail with 409/401
// instead of minting a second code or token.
type BoreholeHandler struct {
	Users     *repository.UserRepo
	Agents    *repository.AgentRepo
	Boreholes *repository.BoreholeRepo
}

func NewBoreholeHandler(users *repository.UserRepo, agents *repository.AgentRepo, boreholes *repository.BoreholeRepo) *BoreholeHandler {
	if users == nil || agents == nil || boreholes == nil {
		panic("nil repository passed to NewBoreholeHandler")
	}
	return &BoreholeHandler{Users: users, Agents: agents, Boreholes: boreholes}
}

type purchaseReq struct {
	BoreholeID   uint64  `json:"borehole_id"`
	AmountLiters float64 `json:"amount_liters"`
}

type agentCodeReq struct {
	AgentID      uint64 `json:"agent_id"`
	PurchaseCode string `json:"purchase_code"`
}

type tokenCodeReq struct {
	PurchaseCode string `json:"purchase_code"`
	AgentCode    string `json:"agent_code"`
}

// Purchase handles POST /v1/borehole/purchase.  It opens a PENDING
// purchase for the caller and hands back the purchase code that drives
// the rest of the pipeline.
func (h *BoreholeHandler) Purchase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.BoreholeID == 0 || req.AmountLiters <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "borehole_id/amount_liters required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.Boreholes.GetBoreholeByID(ctx, req.BoreholeID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "borehole not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	purchaseCode := utils.NewCode()
	id, err := h.Boreholes.CreatePurchase(ctx, userID, req.BoreholeID, purchaseCode, req.AmountLiters)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase code collision, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create purchase failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"purchase_id":   id,
		"purchase_code": purchaseCode,
		"amount_liters": req.AmountLiters,
		"status":        model.PurchasePending,
	})
}

// AgentCode handles POST /v1/borehole/agent-code.  The agent confirms the
// cash payment and issues the second code; the purchase advances to PAID.
func (h *BoreholeHandler) AgentCode(c echo.Context) error {
	var req agentCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.PurchaseCode = strings.TrimSpace(req.PurchaseCode)
	if req.AgentID == 0 || req.PurchaseCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent_id/purchase_code required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Agents.GetByID(ctx, req.AgentID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

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

	purchase, err := h.Boreholes.GetPurchaseByCodeForUpdateTx(ctx, tx, req.PurchaseCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if purchase.Status != model.PurchasePending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not pending"})
	}

	agentCode := utils.NewCode()
	if err := h.Boreholes.CreateAgentCodeTx(ctx, tx, req.AgentID, purchase.ID, agentCode); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "agent code already issued"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create agent code failed"})
	}
	if err := h.Boreholes.SetPurchaseStatusTx(ctx, tx, purchase.ID, model.PurchasePending, model.PurchasePaid); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update purchase failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{
		"purchase_id": purchase.ID,
		"agent_code":  agentCode,
		"status":      model.PurchasePaid,
	})
}

// TokenCode handles POST /v1/borehole/token-code.  Both pipeline codes
// are exchanged for the terminal meter token; the purchase completes.
func (h *BoreholeHandler) TokenCode(c echo.Context) error {
	var req tokenCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.PurchaseCode = strings.TrimSpace(req.PurchaseCode)
	req.AgentCode = strings.TrimSpace(req.AgentCode)
	if req.PurchaseCode == "" || req.AgentCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "purchase_code/agent_code required"})
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

	purchase, err := h.Boreholes.GetPurchaseByCodeForUpdateTx(ctx, tx, req.PurchaseCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if purchase.Status != model.PurchasePaid {
		return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not paid"})
	}
	issued, err := h.Boreholes.GetAgentCodeTx(ctx, tx, purchase.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid agent code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if issued.Code != req.AgentCode {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid agent code"})
	}

	tokenCode := utils.NewCode()
	if err := h.Boreholes.CreateWaterTokenTx(ctx, tx, purchase.ID, tokenCode); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create water token failed"})
	}
	if err := h.Boreholes.SetPurchaseStatusTx(ctx, tx, purchase.ID, model.PurchasePaid, model.PurchaseCompleted); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "purchase is not paid"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update purchase failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// Best effort: the token is issued regardless of broker health.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishVoucherCompleted(pubCtx, queue.VoucherCompletedEvent{
			PurchaseID:   purchase.ID,
			UserID:       purchase.UserID,
			BoreholeID:   purchase.BoreholeID,
			AmountLiters: purchase.AmountLiters,
			TokenCode:    tokenCode,
			CompletedAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, echo.Map{
		"purchase_id": purchase.ID,
		"token_code":  tokenCode,
		"status":      model.PurchaseCompleted,
	})
}

// ListBoreholes handles GET /v1/boreholes.
func (h *BoreholeHandler) ListBoreholes(c echo.Context) error {
	items, err := h.Boreholes.ListBoreholes(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load boreholes"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
