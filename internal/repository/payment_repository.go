package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taksrules/choto-api/internal/model"
)

// PaymentRepo provides persistence for the append-only 'payments' table.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// PaymentDetail is a payment row joined with user and agent display
// fields.
type PaymentDetail struct {
	ID         uint64              `json:"id"`
	UserID     uint64              `json:"user_id"`
	UserName   string              `json:"user_name"`
	AgentID    *uint64             `json:"agent_id,omitempty"`
	AgentName  *string             `json:"agent_name,omitempty"`
	AgentEmail *string             `json:"agent_email,omitempty"`
	Amount     float64             `json:"amount"`
	Method     model.PaymentMethod `json:"method"`
	Status     model.PaymentStatus `json:"status"`
	Proof      *string             `json:"proof_of_payment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Create inserts a payment row and returns its id.  The gateway
// integration is a stub, so callers pass the final status directly.
func (r *PaymentRepo) Create(ctx context.Context, userID uint64, agentID *uint64, amount float64, method model.PaymentMethod, status model.PaymentStatus) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO payments (user_id, agent_id, amount, method, status) VALUES (?,?,?,?,?)",
		userID, agentID, amount, method, status)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const paymentDetailSelect = `SELECT p.id, p.user_id, uu.name, p.agent_id, au.name, au.email,
       p.amount, p.method, p.status, p.proof_of_payment, p.created_at
FROM payments p
JOIN users uu ON uu.id = p.user_id
LEFT JOIN agents ag ON ag.id = p.agent_id
LEFT JOIN users au ON au.id = ag.user_id`

func scanPaymentDetail(scan func(dest ...interface{}) error) (PaymentDetail, error) {
	var d PaymentDetail
	var agentID sql.NullInt64
	var agentName, agentEmail, proof sql.NullString
	if err := scan(&d.ID, &d.UserID, &d.UserName, &agentID, &agentName, &agentEmail,
		&d.Amount, &d.Method, &d.Status, &proof, &d.CreatedAt); err != nil {
		return d, err
	}
	if agentID.Valid {
		v := uint64(agentID.Int64)
		d.AgentID = &v
	}
	if agentName.Valid {
		v := agentName.String
		d.AgentName = &v
	}
	if agentEmail.Valid {
		v := agentEmail.String
		d.AgentEmail = &v
	}
	if proof.Valid {
		v := proof.String
		d.Proof = &v
	}
	return d, nil
}

// GetDetail fetches one payment with display fields.
func (r *PaymentRepo) GetDetail(ctx context.Context, id uint64) (PaymentDetail, error) {
	row := r.DB.QueryRowContext(ctx, paymentDetailSelect+" WHERE p.id=? LIMIT 1", id)
	return scanPaymentDetail(row.Scan)
}

// ListByUser returns the user's payments with display fields, newest
// first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]PaymentDetail, error) {
	rows, err := r.DB.QueryContext(ctx, paymentDetailSelect+" WHERE p.user_id=? ORDER BY p.created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]PaymentDetail, 0)
	for rows.Next() {
		d, err := scanPaymentDetail(rows.Scan)
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

// ListByAgent returns payments received by the agent, newest first.
func (r *PaymentRepo) ListByAgent(ctx context.Context, agentID uint64) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, agent_id, amount, method, status, proof_of_payment, created_at, updated_at FROM payments WHERE agent_id=? ORDER BY created_at DESC", agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		var aID sql.NullInt64
		var proof sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &aID, &p.Amount, &p.Method, &p.Status, &proof, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if aID.Valid {
			v := uint64(aID.Int64)
			p.AgentID = &v
		}
		if proof.Valid {
			v := proof.String
			p.Proof = &v
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
