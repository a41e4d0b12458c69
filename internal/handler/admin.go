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

// AdminHandler groups repositories for platform administration: agent
// approval, role assignment, paginated listings and the overview counts.
type AdminHandler struct {
	Users        *repository.UserRepo
	Agents       *repository.AgentRepo
	Rentals      *repository.RentalRepo
	Transactions *repository.TransactionRepo
	Boreholes    *repository.BoreholeRepo
}

func NewAdminHandler(users *repository.UserRepo, agents *repository.AgentRepo, rentals *repository.RentalRepo, transactions *repository.TransactionRepo, boreholes *repository.BoreholeRepo) *AdminHandler {
	if users == nil || agents == nil || rentals == nil || transactions == nil || boreholes == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Agents: agents, Rentals: rentals, Transactions: transactions, Boreholes: boreholes}
}

type approveAgentReq struct {
	AgentID uint64 `json:"agent_id"`
}

type assignRoleReq struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

type createBoreholeReq struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ApproveAgent handles PATCH /v1/admin/approve-agent.  Approval grants
// the level's initial tokens (BASIC 100, STANDARD 200, MAX 300), flips
// the linked user ACTIVE and appends a ledger row, all in one
// transaction.  The agent row is locked so two admins cannot both grant.
func (h *AdminHandler) ApproveAgent(c echo.Context) error {
	var req approveAgentReq
	if err := c.Bind(&req); err != nil || req.AgentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "agent_id required"})
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
	u, err := h.Users.GetForUpdateTx(ctx, tx, agent.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Status != model.UserPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "agent is not pending approval"})
	}

	grant := agent.Level.InitialTokens()
	if err := h.Users.AddTokensTx(ctx, tx, u.ID, grant); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}
	if err := h.Users.SetStatusTx(ctx, tx, u.ID, model.UserActive); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate failed"})
	}
	agentID := agent.ID
	if err := h.Transactions.CreateTx(ctx, tx, model.Transaction{
		UserID:      u.ID,
		AgentID:     &agentID,
		Type:        model.TxRent,
		TokenAmount: grant,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record transaction"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{
		"agent_id": agent.ID,
		"level":    agent.Level,
		"granted":  grant,
		"status":   model.UserActive,
	})
}

// AssignRole handles POST /v1/admin/assign-role.  Promoting to AGENT
// requires the target account to be ACTIVE; re-assigning the current
// role is a conflict.
func (h *AdminHandler) AssignRole(c echo.Context) error {
	var req assignRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if req.UserID == 0 || !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and valid role required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role == role {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already has this role"})
	}
	if role == model.RoleAgent && u.Status != model.UserActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user must be active to become an agent"})
	}
	if err := h.Users.AssignRole(ctx, req.UserID, role); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign role failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": req.UserID, "role": role})
}

// ListUsers handles GET /v1/admin/users with page/limit pagination.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, limit := pageParams(c)
	users, total, err := h.Users.List(c.Request().Context(), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load users"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": users,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// ListAgents handles GET /v1/admin/agents with page/limit pagination.
func (h *AdminHandler) ListAgents(c echo.Context) error {
	page, limit := pageParams(c)
	agents, total, err := h.Agents.List(c.Request().Context(), page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load agents"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": agents,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

// Overview handles GET /v1/admin/overview: the dashboard counters.
func (h *AdminHandler) Overview(c echo.Context) error {
	ctx := c.Request().Context()

	totalUsers, err := h.Users.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count users"})
	}
	activeUsers, err := h.Users.CountByStatus(ctx, model.UserActive)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count users"})
	}
	totalAgents, err := h.Agents.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count agents"})
	}
	pendingAgents, err := h.Agents.CountPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count agents"})
	}
	activeRentals, err := h.Rentals.CountActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count rentals"})
	}
	totalTransactions, err := h.Transactions.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"users":          totalUsers,
		"active_users":   activeUsers,
		"agents":         totalAgents,
		"pending_agents": pendingAgents,
		"active_rentals": activeRentals,
		"transactions":   totalTransactions,
	})
}

// CreateBorehole handles POST /v1/admin/boreholes.
func (h *AdminHandler) CreateBorehole(c echo.Context) error {
	var req createBoreholeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if req.Name == "" || req.Location == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/location required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Boreholes.CreateBorehole(ctx, req.Name, req.Location)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create borehole failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":       id,
		"name":     req.Name,
		"location": req.Location,
	})
}
