package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/taksrules/choto-api/internal/model"
)

// AssetRepo provides persistence for the 'assets' table.
type AssetRepo struct{ DB *sql.DB }

func NewAssetRepo(db *sql.DB) *AssetRepo { return &AssetRepo{DB: db} }

const assetColumns = "id,name,asset_type,scan_code,rented,agent_id,created_at,updated_at"

// AssetRentalEntry is one row of an asset's rental history as exposed by
// the detail lookup.
type AssetRentalEntry struct {
	UserID     uint64     `json:"user_id"`
	RentalDate time.Time  `json:"rental_date"`
	ReturnDate *time.Time `json:"return_date"`
}

// AssetDetail is an asset joined with the owning agent's display fields
// and the asset's full rental history.
type AssetDetail struct {
	model.Asset
	AgentName     string             `json:"agent_name"`
	AgentEmail    string             `json:"agent_email"`
	RentalHistory []AssetRentalEntry `json:"rental_history"`
}

// Create inserts a new asset owned by the agent, available for rent.
func (r *AssetRepo) Create(ctx context.Context, name string, assetType model.AssetType, scanCode string, agentID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO assets (name, asset_type, scan_code, rented, agent_id) VALUES (?,?,?,false,?)",
		name, assetType, scanCode, agentID)
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

// GetByID fetches an asset by id.
func (r *AssetRepo) GetByID(ctx context.Context, id uint64) (model.Asset, error) {
	var a model.Asset
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.Name, &a.AssetType, &a.ScanCode, &a.Rented, &a.AgentID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetDetail fetches an asset plus owning agent display fields and rental
// history, keyed either by id or by scan code.
func (r *AssetRepo) GetDetail(ctx context.Context, byScanCode bool, id uint64, scanCode string) (*AssetDetail, error) {
	q := `SELECT a.id, a.name, a.asset_type, a.scan_code, a.rented, a.agent_id, a.created_at, a.updated_at,
	             u.name, u.email
	      FROM assets a
	      JOIN agents ag ON ag.id = a.agent_id
	      JOIN users u ON u.id = ag.user_id
	      WHERE `
	var arg interface{}
	if byScanCode {
		q += "a.scan_code=?"
		arg = scanCode
	} else {
		q += "a.id=?"
		arg = id
	}
	var d AssetDetail
	if err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&d.ID, &d.Name, &d.AssetType, &d.ScanCode, &d.Rented, &d.AgentID, &d.CreatedAt, &d.UpdatedAt,
		&d.AgentName, &d.AgentEmail); err != nil {
		return nil, err
	}
	d.RentalHistory = make([]AssetRentalEntry, 0)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id, rental_date, return_date FROM rentals WHERE asset_id=? ORDER BY rental_date DESC", d.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e AssetRentalEntry
		var ret sql.NullTime
		if err := rows.Scan(&e.UserID, &e.RentalDate, &ret); err != nil {
			return nil, err
		}
		if ret.Valid {
			t := ret.Time
			e.ReturnDate = &t
		}
		d.RentalHistory = append(d.RentalHistory, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByAgent returns all assets owned by the agent.
func (r *AssetRepo) ListByAgent(ctx context.Context, agentID uint64) ([]model.Asset, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE agent_id=? ORDER BY created_at DESC", agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	assets := make([]model.Asset, 0)
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.AssetType, &a.ScanCode, &a.Rented, &a.AgentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// UpdateRented flips the rented flag.  The current-state guard in the
// WHERE clause rejects no-op updates: zero affected rows mean the asset
// was already in the requested state and surface as ErrConflict.
func (r *AssetRepo) UpdateRented(ctx context.Context, id uint64, rented bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE assets SET rented=? WHERE id=? AND rented=?", rented, id, !rented)
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

// GetForUpdateTx loads an asset row with a row lock inside the
// transaction so two concurrent rentals of the same asset serialize.
func (r *AssetRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Asset, error) {
	var a model.Asset
	err := tx.QueryRowContext(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE id=? FOR UPDATE", id).
		Scan(&a.ID, &a.Name, &a.AssetType, &a.ScanCode, &a.Rented, &a.AgentID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// SetRentedTx updates the rented flag inside the transaction.
func (r *AssetRepo) SetRentedTx(ctx context.Context, tx *sql.Tx, id uint64, rented bool) error {
	_, err := tx.ExecContext(ctx, "UPDATE assets SET rented=? WHERE id=?", rented, id)
	return err
}
