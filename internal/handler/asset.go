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
	"github.com/taksrules/choto-api/internal/utils"
)

// AssetHandler groups repositories for registering and inspecting the
// physical assets agents manage.
type AssetHandler struct {
	Assets *repository.AssetRepo
	Agents *repository.AgentRepo
}

func NewAssetHandler(assets *repository.AssetRepo, agents *repository.AgentRepo) *AssetHandler {
	if assets == nil || agents == nil {
		panic("nil repository passed to NewAssetHandler")
	}
	return &AssetHandler{Assets: assets, Agents: agents}
}

type createAssetReq struct {
	Name      string `json:"name"`
	AssetType string `json:"asset_type"`
	AgentID   uint64 `json:"agent_id"`
}

type updateAssetStatusReq struct {
	Rented *bool `json:"rented"`
}

// Create handles POST /v1/assets.  A fresh uuid scan code is generated
// for the physical label; new assets start available.
func (h *AssetHandler) Create(c echo.Context) error {
	var req createAssetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	assetType := model.AssetType(strings.ToUpper(strings.TrimSpace(req.AssetType)))
	if req.Name == "" || req.AgentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/asset_type/agent_id required"})
	}
	if !assetType.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid asset type"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Agents.GetByID(ctx, req.AgentID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	scanCode := utils.NewCode()
	id, err := h.Assets.Create(ctx, req.Name, assetType, scanCode, req.AgentID)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "scan code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create asset failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         id,
		"name":       req.Name,
		"asset_type": assetType,
		"scan_code":  scanCode,
		"rented":     false,
		"agent_id":   req.AgentID,
	})
}

// UpdateStatus handles PATCH /v1/assets/:id/status.  Requesting the state
// the asset is already in is a conflict, not a silent no-op.
func (h *AssetHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid asset id"})
	}
	var req updateAssetStatusReq
	if err := c.Bind(&req); err != nil || req.Rented == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rented is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Assets.GetByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "asset not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Assets.UpdateRented(ctx, id, *req.Rented); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "asset already in requested state"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "rented": *req.Rented})
}

// GetByID handles GET /v1/assets/:id.
func (h *AssetHandler) GetByID(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid asset id"})
	}
	detail, err := h.Assets.GetDetail(c.Request().Context(), false, id, "")
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "asset not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// GetByScanCode handles GET /v1/assets/scan/:code, the lookup used when a
// physical asset label is scanned.
func (h *AssetHandler) GetByScanCode(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid scan code"})
	}
	detail, err := h.Assets.GetDetail(c.Request().Context(), true, 0, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "asset not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// ListByAgent handles GET /v1/agents/:id/assets.
func (h *AssetHandler) ListByAgent(c echo.Context) error {
	agentID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid agent id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Agents.GetByID(ctx, agentID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	assets, err := h.Assets.ListByAgent(ctx, agentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load assets"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": assets})
}
