package model

import "time"

// AgentLevel enumerates the tiers an agent can register at.  The level
// determines the initial token grant an admin allocates on approval.
type AgentLevel string

const (
    LevelBasic    AgentLevel = "BASIC"
    LevelStandard AgentLevel = "STANDARD"
    LevelMax      AgentLevel = "MAX"
)

// Valid reports whether the level is one of the closed set.
func (l AgentLevel) Valid() bool {
    switch l {
    case LevelBasic, LevelStandard, LevelMax:
        return true
    }
    return false
}

// InitialTokens returns the token grant allocated when an agent at this
// level is approved.  Unknown levels grant nothing.
func (l AgentLevel) InitialTokens() int64 {
    switch l {
    case LevelBasic:
        return 100
    case LevelStandard:
        return 200
    case LevelMax:
        return 300
    }
    return 0
}

// Agent represents a row in the `agents` table.  Each agent is backed by
// exactly one user account (agents.user_id is unique); the linked user
// carries the agent's token balance and status.
type Agent struct {
    ID              uint64     `json:"id"`
    UserID          uint64     `json:"user_id"`
    Level           AgentLevel `json:"level"`
    Address         string     `json:"address"`
    Debt            float64    `json:"debt"`
    NegativeBalance bool       `json:"negative_balance"`
    CreatedAt       time.Time  `json:"created_at"`
    UpdatedAt       time.Time  `json:"updated_at"`
}
