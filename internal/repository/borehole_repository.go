package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taksrules/choto-api/internal/model"
)

// BoreholeRepo provides persistence for the voucher pipeline tables:
// boreholes, purchases, agent_codes and water_tokens.  The three pipeline
// steps each perform one status-guarded transition; the purchase row is
// locked for the guarded steps so concurrent calls cannot double-spend a
// code.
type BoreholeRepo struct{ DB *sql.DB }

func NewBoreholeRepo(db *sql.DB) *BoreholeRepo { return &BoreholeRepo{DB: db} }

// CreateBorehole registers a new water dispensing point.
func (r *BoreholeRepo) CreateBorehole(ctx context.Context, name, location string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO boreholes (name, location) VALUES (?,?)", name, location)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetBoreholeByID fetches a borehole by id.
func (r *BoreholeRepo) GetBoreholeByID(ctx context.Context, id uint64) (model.Borehole, error) {
	var b model.Borehole
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, location, created_at FROM boreholes WHERE id=? LIMIT 1", id).
		Scan(&b.ID, &b.Name, &b.Location, &b.CreatedAt)
	return b, err
}

// ListBoreholes returns all boreholes.
func (r *BoreholeRepo) ListBoreholes(ctx context.Context) ([]model.Borehole, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, location, created_at FROM boreholes ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Borehole, 0)
	for rows.Next() {
		var b model.Borehole
		if err := rows.Scan(&b.ID, &b.Name, &b.Location, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// CreatePurchase inserts a PENDING purchase with the given unique code.
func (r *BoreholeRepo) CreatePurchase(ctx context.Context, userID, boreholeID uint64, purchaseCode string, amountLiters float64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO purchases (user_id, borehole_id, purchase_code, amount_liters, status) VALUES (?,?,?,?,?)",
		userID, boreholeID, purchaseCode, amountLiters, model.PurchasePending)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetPurchaseByCodeForUpdateTx loads the purchase addressed by its code
// with a row lock, serializing the status-guarded pipeline steps.
func (r *BoreholeRepo) GetPurchaseByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, purchaseCode string) (model.Purchase, error) {
	var p model.Purchase
	err := tx.QueryRowContext(ctx,
		"SELECT id, user_id, borehole_id, purchase_code, amount_liters, status, created_at FROM purchases WHERE purchase_code=? FOR UPDATE",
		purchaseCode).
		Scan(&p.ID, &p.UserID, &p.BoreholeID, &p.PurchaseCode, &p.AmountLiters, &p.Status, &p.CreatedAt)
	return p, err
}

// SetPurchaseStatusTx advances the purchase status inside the
// transaction.  The expected-status guard makes the transition
// compare-and-swap shaped: zero affected rows surface as ErrConflict.
func (r *BoreholeRepo) SetPurchaseStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.PurchaseStatus) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE purchases SET status=? WHERE id=? AND status=?", to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CreateAgentCodeTx inserts the agent code for a purchase.  The unique
// purchase_id constraint means a second confirm fails even if the status
// guard were bypassed.
func (r *BoreholeRepo) CreateAgentCodeTx(ctx context.Context, tx *sql.Tx, agentID, purchaseID uint64, code string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO agent_codes (agent_id, purchase_id, agent_code) VALUES (?,?,?)",
		agentID, purchaseID, code)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

// GetAgentCodeTx fetches the agent code issued for a purchase inside the
// transaction.
func (r *BoreholeRepo) GetAgentCodeTx(ctx context.Context, tx *sql.Tx, purchaseID uint64) (model.AgentCode, error) {
	var c model.AgentCode
	err := tx.QueryRowContext(ctx,
		"SELECT id, agent_id, purchase_id, agent_code, created_at FROM agent_codes WHERE purchase_id=? LIMIT 1",
		purchaseID).
		Scan(&c.ID, &c.AgentID, &c.PurchaseID, &c.Code, &c.CreatedAt)
	return c, err
}

// CreateWaterTokenTx inserts the terminal meter token for a purchase.
func (r *BoreholeRepo) CreateWaterTokenTx(ctx context.Context, tx *sql.Tx, purchaseID uint64, tokenCode string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO water_tokens (purchase_id, token_code) VALUES (?,?)", purchaseID, tokenCode)
	return err
}
