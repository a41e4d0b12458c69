package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taksrules/choto-api/internal/model"
)

// AgentRepo provides persistence for the 'agents' table.  Agents are
// one-to-one with users (agents.user_id is unique); queries that need the
// agent's display name, email or token balance join through users.
type AgentRepo struct{ DB *sql.DB }

func NewAgentRepo(db *sql.DB) *AgentRepo { return &AgentRepo{DB: db} }

const agentColumns = "id,user_id,level,address,debt,negative_balance,created_at,updated_at"

// AgentDetail is an agent row joined with the linked user's display
// fields, returned by listings and profile lookups.
type AgentDetail struct {
	model.Agent
	Name   string           `json:"name"`
	Email  string           `json:"email"`
	Status model.UserStatus `json:"status"`
	Tokens int64            `json:"tokens"`
}

// Create inserts a new agent for the given user with zero debt.  A
// duplicate user_id means the user is already registered as an agent and
// surfaces as ErrConflict.
func (r *AgentRepo) Create(ctx context.Context, userID uint64, level model.AgentLevel, address string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO agents (user_id, level, address, debt, negative_balance) VALUES (?,?,?,0,false)",
		userID, level, address)
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

// GetByID fetches an agent by id.
func (r *AgentRepo) GetByID(ctx context.Context, id uint64) (model.Agent, error) {
	var a model.Agent
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.UserID, &a.Level, &a.Address, &a.Debt, &a.NegativeBalance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetByUserID fetches the agent owned by the given user, if any.
func (r *AgentRepo) GetByUserID(ctx context.Context, userID uint64) (model.Agent, error) {
	var a model.Agent
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE user_id=? LIMIT 1", userID).
		Scan(&a.ID, &a.UserID, &a.Level, &a.Address, &a.Debt, &a.NegativeBalance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetDetail fetches an agent joined with its user's name, email, status
// and token balance.
func (r *AgentRepo) GetDetail(ctx context.Context, id uint64) (AgentDetail, error) {
	var d AgentDetail
	err := r.DB.QueryRowContext(ctx,
		`SELECT a.id, a.user_id, a.level, a.address, a.debt, a.negative_balance, a.created_at, a.updated_at,
		        u.name, u.email, u.status, u.tokens
		 FROM agents a JOIN users u ON u.id = a.user_id
		 WHERE a.id=? LIMIT 1`, id).
		Scan(&d.ID, &d.UserID, &d.Level, &d.Address, &d.Debt, &d.NegativeBalance, &d.CreatedAt, &d.UpdatedAt,
			&d.Name, &d.Email, &d.Status, &d.Tokens)
	return d, err
}

// Update applies the non-nil level/address fields to the agent row.
func (r *AgentRepo) Update(ctx context.Context, id uint64, level *model.AgentLevel, address *string) (model.Agent, error) {
	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if level != nil {
		sets = append(sets, "level=?")
		args = append(args, *level)
	}
	if address != nil {
		sets = append(sets, "address=?")
		args = append(args, *address)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE agents SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.Agent{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// List returns one page of agents joined with user display fields,
// ordered newest first, plus the total count.
func (r *AgentRepo) List(ctx context.Context, page, limit int) ([]AgentDetail, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM agents").Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	rows, err := r.DB.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.level, a.address, a.debt, a.negative_balance, a.created_at, a.updated_at,
		        u.name, u.email, u.status, u.tokens
		 FROM agents a JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	agents := make([]AgentDetail, 0)
	for rows.Next() {
		var d AgentDetail
		if err := rows.Scan(&d.ID, &d.UserID, &d.Level, &d.Address, &d.Debt, &d.NegativeBalance,
			&d.CreatedAt, &d.UpdatedAt, &d.Name, &d.Email, &d.Status, &d.Tokens); err != nil {
			return nil, 0, err
		}
		agents = append(agents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return agents, total, nil
}

// Count returns the total number of agents.
func (r *AgentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM agents").Scan(&n)
	return n, err
}

// CountPending returns the number of agents whose linked user is still
// PENDING approval.
func (r *AgentRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM agents a JOIN users u ON u.id = a.user_id WHERE u.status=?",
		model.UserPending).Scan(&n)
	return n, err
}

// GetForUpdateTx loads an agent row with a row lock inside the
// transaction, used by approval so two admins cannot both grant the
// initial tokens.
func (r *AgentRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Agent, error) {
	var a model.Agent
	err := tx.QueryRowContext(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE id=? FOR UPDATE", id).
		Scan(&a.ID, &a.UserID, &a.Level, &a.Address, &a.Debt, &a.NegativeBalance, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
