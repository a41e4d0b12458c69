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
)

// RentalHandler groups the repositories needed to open, close and inspect
// rentals.  Opening and closing move tokens and flip asset state, so both
// run inside a single transaction with FOR UPDATE row locks: the debit,
// the asset flip and the rental row commit or roll back together.
type RentalHandler struct {
	Users        *repository.UserRepo
	Assets       *repository.AssetRepo
	Rentals      *repository.RentalRepo
	Transactions *repository.TransactionRepo
}

func NewRentalHandler(users *repository.UserRepo, assets *repository.AssetRepo, rentals *repository.RentalRepo, transactions *repository.TransactionRepo) *RentalHandler {
	if users == nil || assets == nil || rentals == nil || transactions == nil {
		panic("nil repository passed to NewRentalHandler")
	}
	return &RentalHandler{Users: users, Assets: assets, Rentals: rentals, Transactions: transactions}
}

type createRentalReq struct {
	UserID  uint64 `json:"user_id"`
	AssetID uint64 `json:"asset_id"`
	Tokens  int64  `json:"tokens"`
}

type bookFridgeReq struct {
	UserID    uint64 `json:"user_id"`
	AssetID   uint64 `json:"asset_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type approveBookingReq struct {
	Status string `json:"status"`
}

// Create handles POST /v1/rentals.  It debits the user's tokens, marks
// the asset rented, inserts the rental and appends a RENT ledger row in
// one transaction.  The user and asset rows are read FOR UPDATE so two
// concurrent rentals of the same asset, or two spends of the same
// balance, serialize and the loser gets 409.
func (h *RentalHandler) Create(c echo.Context) error {
	var req createRentalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || req.AssetID == 0 || req.Tokens <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/asset_id/tokens required"})
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

	u, err := h.Users.GetForUpdateTx(ctx, tx, req.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Tokens < req.Tokens {
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient tokens"})
	}

	asset, err := h.Assets.GetForUpdateTx(ctx, tx, req.AssetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "asset not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if asset.Rented {
		return c.JSON(http.StatusConflict, echo.Map{"error": "asset already rented"})
	}

	if err := h.Users.AddTokensTx(ctx, tx, req.UserID, -req.Tokens); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient tokens"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "debit failed"})
	}
	if err := h.Assets.SetRentedTx(ctx, tx, req.AssetID, true); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update asset"})
	}
	rentalID, err := h.Rentals.CreateTx(ctx, tx, req.UserID, req.AssetID, req.Tokens)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create rental"})
	}
	agentID := asset.AgentID
	assetID := asset.ID
	if err := h.Transactions.CreateTx(ctx, tx, model.Transaction{
		UserID:      req.UserID,
		AgentID:     &agentID,
		AssetID:     &assetID,
		Type:        model.TxRent,
		TokenAmount: req.Tokens,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record transaction"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	// Best effort: the rental is committed regardless of broker health.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishRentalOpened(pubCtx, queue.RentalOpenedEvent{
			RentalID:   rentalID,
			UserID:     req.UserID,
			AssetID:    asset.ID,
			AssetName:  asset.Name,
			AssetType:  string(asset.AssetType),
			AgentID:    asset.AgentID,
			TokensUsed: req.Tokens,
			OpenedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, echo.Map{
		"rental_id": rentalID,
		"user_id":   req.UserID,
		"asset_id":  req.AssetID,
		"tokens":    req.Tokens,
	})
}

// Return handles PATCH /v1/rentals/:id/return.  Stamping the return date
// and freeing the asset run in one transaction; a rental can be returned
// exactly once and a second attempt gets 409.
func (h *RentalHandler) Return(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
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

	rental, err := h.Rentals.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if rental.ReturnDate != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "rental already returned"})
	}
	if err := h.Rentals.CloseTx(ctx, tx, id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "rental already returned"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to close rental"})
	}
	if err := h.Assets.SetRentedTx(ctx, tx, rental.AssetID, false); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to free asset"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"rental_id": id, "returned": true})
}

// Active handles GET /v1/rentals/active.
func (h *RentalHandler) Active(c echo.Context) error {
	items, err := h.Rentals.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load rentals"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetByID handles GET /v1/rentals/:id.
func (h *RentalHandler) GetByID(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
	}
	detail, err := h.Rentals.GetDetail(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, detail)
}

// BookFridge handles POST /v1/rentals/fridge.  Fridge bookings settle in
// cash with the agent, so no tokens move; the booking is created PENDING
// and waits for the owning agent's decision.
func (h *RentalHandler) BookFridge(c echo.Context) error {
	var req bookFridgeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || req.AssetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/asset_id required"})
	}
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil || !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_date"})
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

	if _, err := h.Users.GetForUpdateTx(ctx, tx, req.UserID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	asset, err := h.Assets.GetForUpdateTx(ctx, tx, req.AssetID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "asset not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if asset.AssetType != model.AssetFridge {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "asset is not a fridge"})
	}
	if asset.Rented {
		return c.JSON(http.StatusConflict, echo.Map{"error": "asset already rented"})
	}

	bookingID, err := h.Rentals.CreateBookingTx(ctx, tx, req.UserID, req.AssetID, start.UTC(), end.UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create booking"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id": bookingID,
		"status":     model.BookingPending,
	})
}

// ApproveBooking handles PATCH /v1/rentals/:id/approve.  The booking's
// asset is marked rented only when the decision is APPROVED.
func (h *RentalHandler) ApproveBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
	}
	var req approveBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := model.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if status != model.BookingApproved && status != model.BookingRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be APPROVED or REJECTED"})
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

	rental, err := h.Rentals.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if rental.Status == nil || *rental.Status != model.BookingPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not pending"})
	}
	if err := h.Rentals.SetBookingStatusTx(ctx, tx, id, status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking"})
	}
	if status == model.BookingApproved {
		if err := h.Assets.SetRentedTx(ctx, tx, rental.AssetID, true); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update asset"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"rental_id": id, "status": status})
}
