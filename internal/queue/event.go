// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published to the choto.events queue.
const (
	KindRentalOpened     = "rental.opened"
	KindVoucherCompleted = "voucher.completed"
)

// RentalOpenedEvent is published when a token-charged rental commits.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type RentalOpenedEvent struct {
	Kind       string `json:"kind"`
	RentalID   uint64 `json:"rental_id"`
	UserID     uint64 `json:"user_id"`
	AssetID    uint64 `json:"asset_id"`
	AssetName  string `json:"asset_name"`
	AssetType  string `json:"asset_type"`
	AgentID    uint64 `json:"agent_id"`
	TokensUsed int64  `json:"tokens_used"`
	OpenedAt   string `json:"opened_at"`
}

// VoucherCompletedEvent is published when the final step of the water
// voucher pipeline issues a meter token.
type VoucherCompletedEvent struct {
	Kind         string  `json:"kind"`
	PurchaseID   uint64  `json:"purchase_id"`
	UserID       uint64  `json:"user_id"`
	BoreholeID   uint64  `json:"borehole_id"`
	AmountLiters float64 `json:"amount_liters"`
	TokenCode    string  `json:"token_code"`
	CompletedAt  string  `json:"completed_at"`
}
