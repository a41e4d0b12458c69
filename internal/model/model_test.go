package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnumsValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleAgent.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("SUPERUSER").Valid())
	assert.False(t, Role("").Valid())

	assert.True(t, UserPending.Valid())
	assert.False(t, UserStatus("DELETED").Valid())

	assert.True(t, AssetFridge.Valid())
	assert.False(t, AssetType("BICYCLE").Valid())

	assert.True(t, PurchasePaid.Valid())
	assert.False(t, PurchaseStatus("REFUNDED").Valid())

	assert.True(t, TxDistribution.Valid())
	assert.False(t, TransactionType("rent").Valid())

	assert.True(t, PayEcocash.Valid())
	assert.False(t, PaymentMethod("VISA").Valid())

	assert.True(t, BookingRejected.Valid())
	assert.False(t, BookingStatus("CANCELLED").Valid())
}

func TestAgentLevelInitialTokens(t *testing.T) {
	assert.Equal(t, int64(100), LevelBasic.InitialTokens())
	assert.Equal(t, int64(200), LevelStandard.InitialTokens())
	assert.Equal(t, int64(300), LevelMax.InitialTokens())
	assert.Equal(t, int64(0), AgentLevel("PLATINUM").InitialTokens())
}

func TestAgentLevelValid(t *testing.T) {
	assert.True(t, LevelBasic.Valid())
	assert.True(t, LevelStandard.Valid())
	assert.True(t, LevelMax.Valid())
	assert.False(t, AgentLevel("basic").Valid())
}
