package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taksrules/choto-api/internal/model"
)

// TransactionRepo provides persistence for the append-only
// 'transactions' ledger table.  Rows are only ever inserted, inside the
// same transaction as the token movement they record.
type TransactionRepo struct{ DB *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

// TransactionDetail is a ledger row joined with agent and asset display
// fields for history projections.
type TransactionDetail struct {
	ID              uint64                `json:"transaction_id"`
	UserID          uint64                `json:"user_id"`
	UserName        string                `json:"user_name,omitempty"`
	Type            model.TransactionType `json:"transaction_type"`
	Amount          *float64              `json:"amount,omitempty"`
	TokenAmount     int64                 `json:"token_amount"`
	TransactionDate time.Time             `json:"transaction_date"`
	AssetName       *string               `json:"asset_name,omitempty"`
	AssetType       *string               `json:"asset_type,omitempty"`
	AgentName       *string               `json:"agent_name,omitempty"`
	AgentEmail      *string               `json:"agent_email,omitempty"`
}

// CreateTx appends a ledger row inside the transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t model.Transaction) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (user_id, agent_id, asset_id, transaction_type, amount, token_amount, transaction_date) VALUES (?,?,?,?,?,?,NOW())",
		t.UserID, t.AgentID, t.AssetID, t.Type, t.Amount, t.TokenAmount)
	return err
}

const txDetailSelect = `SELECT t.id, t.user_id, uu.name, t.transaction_type, t.amount, t.token_amount, t.transaction_date,
       a.name, a.asset_type, au.name, au.email
FROM transactions t
JOIN users uu ON uu.id = t.user_id
LEFT JOIN assets a ON a.id = t.asset_id
LEFT JOIN agents ag ON ag.id = t.agent_id
LEFT JOIN users au ON au.id = ag.user_id`

func scanTxDetail(scan func(dest ...interface{}) error) (TransactionDetail, error) {
	var d TransactionDetail
	var amount sql.NullFloat64
	var assetName, assetType, agentName, agentEmail sql.NullString
	if err := scan(&d.ID, &d.UserID, &d.UserName, &d.Type, &amount, &d.TokenAmount, &d.TransactionDate,
		&assetName, &assetType, &agentName, &agentEmail); err != nil {
		return d, err
	}
	if amount.Valid {
		v := amount.Float64
		d.Amount = &v
	}
	if assetName.Valid {
		v := assetName.String
		d.AssetName = &v
	}
	if assetType.Valid {
		v := assetType.String
		d.AssetType = &v
	}
	if agentName.Valid {
		v := agentName.String
		d.AgentName = &v
	}
	if agentEmail.Valid {
		v := agentEmail.String
		d.AgentEmail = &v
	}
	return d, nil
}

// GetDetail fetches one ledger row with display fields.
func (r *TransactionRepo) GetDetail(ctx context.Context, id uint64) (TransactionDetail, error) {
	row := r.DB.QueryRowContext(ctx, txDetailSelect+" WHERE t.id=? LIMIT 1", id)
	return scanTxDetail(row.Scan)
}

// ListByUser returns the user's ledger history with display fields,
// newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID uint64) ([]TransactionDetail, error) {
	rows, err := r.DB.QueryContext(ctx, txDetailSelect+" WHERE t.user_id=? ORDER BY t.transaction_date DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]TransactionDetail, 0)
	for rows.Next() {
		d, err := scanTxDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListByAgent returns ledger rows attributed to the agent, newest first.
func (r *TransactionRepo) ListByAgent(ctx context.Context, agentID uint64) ([]model.Transaction, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, agent_id, asset_id, transaction_type, amount, token_amount, transaction_date FROM transactions WHERE agent_id=? ORDER BY transaction_date DESC", agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Transaction, 0)
	for rows.Next() {
		var t model.Transaction
		var agentID, assetID sql.NullInt64
		var amount sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.UserID, &agentID, &assetID, &t.Type, &amount, &t.TokenAmount, &t.TransactionDate); err != nil {
			return nil, err
		}
		if agentID.Valid {
			v := uint64(agentID.Int64)
			t.AgentID = &v
		}
		if assetID.Valid {
			v := uint64(assetID.Int64)
			t.AssetID = &v
		}
		if amount.Valid {
			v := amount.Float64
			t.Amount = &v
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// Count returns the total number of ledger rows.
func (r *TransactionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n)
	return n, err
}
