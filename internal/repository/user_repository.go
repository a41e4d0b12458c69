package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taksrules/choto-api/internal/model"
	"github.com/taksrules/choto-api/internal/utils"
)

// UserRepo provides persistence for the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,phone,password_hash,role,status,tokens,verification_code,deposit_paid,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var code sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Role, &u.Status, &u.Tokens, &code, &u.DepositPaid, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if code.Valid {
		u.VerificationCode = &code.String
	}
	return u, nil
}

// Create inserts a new PENDING user with zero tokens and a fresh
// verification code, returning the generated ID.  Duplicate email or
// phone collisions are refined into ErrEmailExists / ErrPhoneExists.
func (r *UserRepo) Create(ctx context.Context, name, email, phone, password, verificationCode string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, role, status, tokens, verification_code, deposit_paid) VALUES (?,?,?,?,?,?,0,?,false)",
		name, email, phone, hash, model.RoleUser, model.UserPending, verificationCode)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "phone") {
				return 0, ErrPhoneExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// Activate flips a PENDING user to ACTIVE and clears the verification
// code.  The status guard lives in the WHERE clause so a concurrent or
// repeated activation cannot apply twice; zero affected rows surface as
// ErrConflict for the handler to refine.
func (r *UserRepo) Activate(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=?, verification_code=NULL WHERE email=? AND status=?",
		model.UserActive, email, model.UserPending)
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

// UpdateProfile applies the non-nil fields to the user row.  Email and
// phone uniqueness is checked up front so the caller gets a precise
// conflict error rather than a raw duplicate-key failure.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email, phone, passwordHash *string) (model.User, error) {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if name != nil {
		sets = append(sets, "name=?")
		args = append(args, *name)
	}
	if email != nil {
		e := strings.ToLower(strings.TrimSpace(*email))
		var existing uint64
		err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE email=? LIMIT 1", e).Scan(&existing)
		if err == nil && existing != id {
			return model.User{}, ErrEmailExists
		}
		if err != nil && err != sql.ErrNoRows {
			return model.User{}, err
		}
		sets = append(sets, "email=?")
		args = append(args, e)
	}
	if phone != nil {
		var existing uint64
		err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE phone=? LIMIT 1", *phone).Scan(&existing)
		if err == nil && existing != id {
			return model.User{}, ErrPhoneExists
		}
		if err != nil && err != sql.ErrNoRows {
			return model.User{}, err
		}
		sets = append(sets, "phone=?")
		args = append(args, *phone)
	}
	if passwordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *passwordHash)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// AssignRole sets a new role on the user.
func (r *UserRepo) AssignRole(ctx context.Context, id uint64, role model.Role) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	return err
}

// List returns one page of users ordered newest first, plus the total count.
func (r *UserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		var code sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
			&u.Role, &u.Status, &u.Tokens, &code, &u.DepositPaid, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if code.Valid {
			u.VerificationCode = &code.String
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// CountByStatus returns the number of users in the given status.
func (r *UserRepo) CountByStatus(ctx context.Context, status model.UserStatus) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE status=?", status).Scan(&n)
	return n, err
}

// GetForUpdateTx loads a user row with a row lock inside the transaction.
// Token movements read balances through this so concurrent spends against
// the same account serialize instead of double-spending.
func (r *UserRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	var u model.User
	var code sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? FOR UPDATE", id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
			&u.Role, &u.Status, &u.Tokens, &code, &u.DepositPaid, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if code.Valid {
		u.VerificationCode = &code.String
	}
	return u, nil
}

// GetByEmailForUpdateTx is GetForUpdateTx keyed by email, used by token
// distribution where the recipient is addressed by email.
func (r *UserRepo) GetByEmailForUpdateTx(ctx context.Context, tx *sql.Tx, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	var code sql.NullString
	err := tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? FOR UPDATE", email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
			&u.Role, &u.Status, &u.Tokens, &code, &u.DepositPaid, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if code.Valid {
		u.VerificationCode = &code.String
	}
	return u, nil
}

// AddTokensTx adjusts a user's token balance inside the transaction.  The
// guard in the WHERE clause keeps balances non-negative even if a caller
// skipped the locked read; zero affected rows become ErrConflict.
func (r *UserRepo) AddTokensTx(ctx context.Context, tx *sql.Tx, id uint64, delta int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET tokens = tokens + ? WHERE id=? AND tokens + ? >= 0", delta, id, delta)
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

// SetStatusTx updates the user's status inside the transaction.
func (r *UserRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.UserStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", status, id)
	return err
}
