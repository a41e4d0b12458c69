package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEventLineRentalOpened(t *testing.T) {
	body, err := json.Marshal(RentalOpenedEvent{
		Kind:       KindRentalOpened,
		RentalID:   11,
		UserID:     1,
		AssetID:    2,
		AssetName:  "Powerbank 7",
		AssetType:  "POWERBANK",
		AgentID:    3,
		TokensUsed: 10,
		OpenedAt:   "2025-06-01T12:00:00Z",
	})
	require.NoError(t, err)

	line, err := FormatEventLine(body)
	require.NoError(t, err)
	assert.Equal(t, "[2025-06-01T12:00:00Z] Rental opened | rental_id=11 | user_id=1 | asset_id=2 | asset=\"Powerbank 7\" | type=POWERBANK | agent_id=3 | tokens=10\n", line)
}

func TestFormatEventLineVoucherCompleted(t *testing.T) {
	body, err := json.Marshal(VoucherCompletedEvent{
		Kind:         KindVoucherCompleted,
		PurchaseID:   5,
		UserID:       1,
		BoreholeID:   4,
		AmountLiters: 20,
		TokenCode:    "aa11bb",
		CompletedAt:  "2025-06-01T13:00:00Z",
	})
	require.NoError(t, err)

	line, err := FormatEventLine(body)
	require.NoError(t, err)
	assert.Equal(t, "[2025-06-01T13:00:00Z] Voucher completed | purchase_id=5 | user_id=1 | borehole_id=4 | liters=20.0 | token=aa11bb\n", line)
}

func TestFormatEventLineUnknownKind(t *testing.T) {
	_, err := FormatEventLine([]byte(`{"kind":"asset.sold"}`))
	assert.ErrorContains(t, err, "unknown event kind")
}

func TestFormatEventLineBadJSON(t *testing.T) {
	_, err := FormatEventLine([]byte("not json"))
	assert.Error(t, err)
}
