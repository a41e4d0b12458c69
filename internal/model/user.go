package model

import "time"

// Role enumerates the access levels a user account can hold.  Roles are
// stored as strings in the `users` table and carried in the JWT "role"
// claim, so the constants here must match the database values exactly.
type Role string

const (
    RoleAdmin Role = "ADMIN"
    RoleAgent Role = "AGENT"
    RoleUser  Role = "USER"
)

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
    switch r {
    case RoleAdmin, RoleAgent, RoleUser:
        return true
    }
    return false
}

// UserStatus enumerates the lifecycle states of an account.  A user is
// created PENDING and becomes ACTIVE once the verification code is
// confirmed.  INACTIVE accounts are retained but cannot transact.
type UserStatus string

const (
    UserPending  UserStatus = "PENDING"
    UserActive   UserStatus = "ACTIVE"
    UserInactive UserStatus = "INACTIVE"
)

// Valid reports whether the status is one of the closed set.
func (s UserStatus) Valid() bool {
    switch s {
    case UserPending, UserActive, UserInactive:
        return true
    }
    return false
}

// User represents a row in the `users` table.  Token balances are whole
// units and never go negative; the repository enforces this inside the
// transactions that move tokens.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Name             – display name.
//  Email            – unique email address.
//  Phone            – unique phone number.
//  PasswordHash     – bcrypt hashed password.
//  Role             – ADMIN, AGENT or USER.
//  Status           – PENDING, ACTIVE or INACTIVE.
//  Tokens           – current token balance (>= 0).
//  VerificationCode – 6-digit activation code, nil once consumed.
//  DepositPaid      – whether the account deposit has been settled.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
    ID               uint64     `json:"id"`
    Name             string     `json:"name"`
    Email            string     `json:"email"`
    Phone            string     `json:"phone"`
    PasswordHash     string     `json:"-"`
    Role             Role       `json:"role"`
    Status           UserStatus `json:"status"`
    Tokens           int64      `json:"tokens"`
    VerificationCode *string    `json:"-"`
    DepositPaid      bool       `json:"deposit_paid"`
    CreatedAt        time.Time  `json:"created_at"`
    UpdatedAt        time.Time  `json:"updated_at"`
}
