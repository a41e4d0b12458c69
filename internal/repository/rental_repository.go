package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taksrules/choto-api/internal/model"
)

// RentalRepo provides persistence for the 'rentals' table.  Rentals are
// created and closed inside transactions driven by the handler layer so
// the token debit, the asset flip and the rental row commit or roll back
// as one unit.
type RentalRepo struct{ DB *sql.DB }

func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{DB: db} }

// RentalDetail is a rental joined with user and asset display fields.
type RentalDetail struct {
	ID         uint64     `json:"id"`
	UserID     uint64     `json:"user_id"`
	UserName   string     `json:"user_name"`
	AssetID    uint64     `json:"asset_id"`
	AssetName  string     `json:"asset_name"`
	Tokens     int64      `json:"tokens"`
	RentalDate time.Time  `json:"rental_date"`
	ReturnDate *time.Time `json:"return_date"`
}

// UserRentalEntry is one row of a user's rental history with asset
// display fields, as projected by the auth rentals endpoint.
type UserRentalEntry struct {
	RentalID   uint64          `json:"rental_id"`
	RentalDate time.Time       `json:"rental_date"`
	ReturnDate *time.Time      `json:"return_date"`
	TokensUsed int64           `json:"tokens_used"`
	AssetName  string          `json:"asset_name"`
	AssetType  model.AssetType `json:"asset_type"`
	ScanCode   string          `json:"scan_code"`
}

// CreateTx inserts a token-charged rental row inside the transaction and
// returns its id.  The rental date is stamped by the database.
func (r *RentalRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, assetID uint64, tokens int64) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO rentals (user_id, asset_id, tokens, rental_date) VALUES (?,?,?,NOW())",
		userID, assetID, tokens)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateBookingTx inserts a PENDING fridge booking with a start/end
// window and no token charge.
func (r *RentalRepo) CreateBookingTx(ctx context.Context, tx *sql.Tx, userID, assetID uint64, start, end time.Time) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO rentals (user_id, asset_id, tokens, rental_date, start_date, end_date, status) VALUES (?,?,0,NOW(),?,?,?)",
		userID, assetID, start, end, model.BookingPending)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetForUpdateTx loads a rental row with a row lock inside the
// transaction so return and approval guards cannot race.
func (r *RentalRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Rental, error) {
	var ren model.Rental
	var ret, start, end sql.NullTime
	var status sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT id, user_id, asset_id, tokens, rental_date, return_date, start_date, end_date, status FROM rentals WHERE id=? FOR UPDATE", id).
		Scan(&ren.ID, &ren.UserID, &ren.AssetID, &ren.Tokens, &ren.RentalDate, &ret, &start, &end, &status)
	if err != nil {
		return ren, err
	}
	if ret.Valid {
		t := ret.Time
		ren.ReturnDate = &t
	}
	if start.Valid {
		t := start.Time
		ren.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		ren.EndDate = &t
	}
	if status.Valid {
		s := model.BookingStatus(status.String)
		ren.Status = &s
	}
	return ren, nil
}

// CloseTx stamps the return date inside the transaction.  The NULL guard
// means a second close affects zero rows and surfaces as ErrConflict,
// leaving the first return date untouched.
func (r *RentalRepo) CloseTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE rentals SET return_date=NOW() WHERE id=? AND return_date IS NULL", id)
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

// SetBookingStatusTx records the agent's decision on a fridge booking.
func (r *RentalRepo) SetBookingStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE rentals SET status=? WHERE id=?", status, id)
	return err
}

// GetDetail fetches one rental joined with user and asset names.
func (r *RentalRepo) GetDetail(ctx context.Context, id uint64) (RentalDetail, error) {
	var d RentalDetail
	var ret sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		`SELECT r.id, r.user_id, u.name, r.asset_id, a.name, r.tokens, r.rental_date, r.return_date
		 FROM rentals r
		 JOIN users u ON u.id = r.user_id
		 JOIN assets a ON a.id = r.asset_id
		 WHERE r.id=? LIMIT 1`, id).
		Scan(&d.ID, &d.UserID, &d.UserName, &d.AssetID, &d.AssetName, &d.Tokens, &d.RentalDate, &ret)
	if err != nil {
		return d, err
	}
	if ret.Valid {
		t := ret.Time
		d.ReturnDate = &t
	}
	return d, nil
}

// ListActive returns all rentals whose return date is unset, joined with
// user and asset names, newest first.
func (r *RentalRepo) ListActive(ctx context.Context) ([]RentalDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.user_id, u.name, r.asset_id, a.name, r.tokens, r.rental_date
		 FROM rentals r
		 JOIN users u ON u.id = r.user_id
		 JOIN assets a ON a.id = r.asset_id
		 WHERE r.return_date IS NULL
		 ORDER BY r.rental_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]RentalDetail, 0)
	for rows.Next() {
		var d RentalDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.UserName, &d.AssetID, &d.AssetName, &d.Tokens, &d.RentalDate); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListByUser returns the caller's rental history with asset display
// fields, newest first.
func (r *RentalRepo) ListByUser(ctx context.Context, userID uint64) ([]UserRentalEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.rental_date, r.return_date, r.tokens, a.name, a.asset_type, a.scan_code
		 FROM rentals r
		 JOIN assets a ON a.id = r.asset_id
		 WHERE r.user_id=?
		 ORDER BY r.rental_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]UserRentalEntry, 0)
	for rows.Next() {
		var e UserRentalEntry
		var ret sql.NullTime
		if err := rows.Scan(&e.RentalID, &e.RentalDate, &ret, &e.TokensUsed, &e.AssetName, &e.AssetType, &e.ScanCode); err != nil {
			return nil, err
		}
		if ret.Valid {
			t := ret.Time
			e.ReturnDate = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountActive returns the number of open rentals.
func (r *RentalRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rentals WHERE return_date IS NULL").Scan(&n)
	return n, err
}
