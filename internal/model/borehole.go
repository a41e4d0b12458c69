package model

import "time"

// PurchaseStatus enumerates the voucher pipeline states.  The progression
// is strictly linear: PENDING -> PAID -> COMPLETED.  COMPLETED is final.
type PurchaseStatus string

const (
    PurchasePending   PurchaseStatus = "PENDING"
    PurchasePaid      PurchaseStatus = "PAID"
    PurchaseCompleted PurchaseStatus = "COMPLETED"
)

// Valid reports whether the purchase status is one of the closed set.
func (s PurchaseStatus) Valid() bool {
    switch s {
    case PurchasePending, PurchasePaid, PurchaseCompleted:
        return true
    }
    return false
}

// Borehole represents a water dispensing point in the `boreholes` table.
type Borehole struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    Location  string    `json:"location"`
    CreatedAt time.Time `json:"created_at"`
}

// Purchase is the root record of the three-step voucher pipeline.  The
// purchase code is handed to the user on creation and exchanged at each
// subsequent step.
type Purchase struct {
    ID           uint64         `json:"id"`
    UserID       uint64         `json:"user_id"`
    BoreholeID   uint64         `json:"borehole_id"`
    PurchaseCode string         `json:"purchase_code"`
    AmountLiters float64        `json:"amount_liters"`
    Status       PurchaseStatus `json:"status"`
    CreatedAt    time.Time      `json:"created_at"`
}

// AgentCode is the second code of the pipeline, issued by an agent after
// confirming payment.  Exactly one exists per purchase.
type AgentCode struct {
    ID         uint64    `json:"id"`
    AgentID    uint64    `json:"agent_id"`
    PurchaseID uint64    `json:"purchase_id"`
    Code       string    `json:"agent_code"`
    CreatedAt  time.Time `json:"created_at"`
}

// WaterToken is the terminal artifact of the pipeline: the code entered
// into the borehole meter to dispense water.  Distinct from the integer
// token balances users spend on rentals.
type WaterToken struct {
    ID         uint64    `json:"id"`
    PurchaseID uint64    `json:"purchase_id"`
    TokenCode  string    `json:"token_code"`
    CreatedAt  time.Time `json:"created_at"`
}
