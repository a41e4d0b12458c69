package model

import "time"

// TransactionType enumerates the ledger row kinds this system writes.
type TransactionType string

const (
    TxRent         TransactionType = "RENT"
    TxPurchase     TransactionType = "PURCHASE"
    TxDistribution TransactionType = "DISTRIBUTION"
)

// Valid reports whether the transaction type is one of the closed set.
func (t TransactionType) Valid() bool {
    switch t {
    case TxRent, TxPurchase, TxDistribution:
        return true
    }
    return false
}

// Transaction is an append-only ledger row recording a token movement.
// AgentID, AssetID and Amount are optional depending on the operation
// that produced the row.
type Transaction struct {
    ID              uint64          `json:"id"`
    UserID          uint64          `json:"user_id"`
    AgentID         *uint64         `json:"agent_id,omitempty"`
    AssetID         *uint64         `json:"asset_id,omitempty"`
    Type            TransactionType `json:"transaction_type"`
    Amount          *float64        `json:"amount,omitempty"`
    TokenAmount     int64           `json:"token_amount"`
    TransactionDate time.Time       `json:"transaction_date"`
}

// PaymentMethod enumerates the supported settlement channels.
type PaymentMethod string

const (
    PayEcocash  PaymentMethod = "ECOCASH"
    PayInnbucks PaymentMethod = "INNBUCKS"
    PayCash     PaymentMethod = "CASH"
)

// Valid reports whether the payment method is one of the closed set.
func (m PaymentMethod) Valid() bool {
    switch m {
    case PayEcocash, PayInnbucks, PayCash:
        return true
    }
    return false
}

// PaymentStatus enumerates payment outcomes.  The gateway integration is
// a stub, so rows are written COMPLETED today; PENDING and FAILED exist
// for when a real processor lands.
type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "PENDING"
    PaymentCompleted PaymentStatus = "COMPLETED"
    PaymentFailed    PaymentStatus = "FAILED"
)

// Payment is an append-only monetary payment row.
type Payment struct {
    ID        uint64        `json:"id"`
    UserID    uint64        `json:"user_id"`
    AgentID   *uint64       `json:"agent_id,omitempty"`
    Amount    float64       `json:"amount"`
    Method    PaymentMethod `json:"method"`
    Status    PaymentStatus `json:"status"`
    Proof     *string       `json:"proof_of_payment,omitempty"`
    CreatedAt time.Time     `json:"created_at"`
    UpdatedAt time.Time     `json:"updated_at"`
}
