package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const purchaseCols = "id, user_id, borehole_id, purchase_code, amount_liters, status, created_at"

func purchaseRow(id uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "borehole_id", "purchase_code", "amount_liters", "status", "created_at"}).
		AddRow(id, 1, 4, "c0ffee", 20.0, status, testTime)
}

func TestBoreholePurchase(t *testing.T) {
	r, mock := newMockRepos(t)
	h := NewBoreholeHandler(r.Users, r.Agents, r.Boreholes)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? LIMIT 1")).
		WithArgs(1).
		WillReturnRows(userRow(1, "ACTIVE", 0, nil, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, location, created_at FROM boreholes WHERE id=? LIMIT 1")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "created_at"}).
			AddRow(4, "Chitungwiza North", "Unit L", testTime))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases (user_id, borehole_id, purchase_code, amount_liters, status) VALUES (?,?,?,?,?)")).
		WithArgs(1, 4, sqlmock.AnyArg(), 20.0, "PENDING").
		WillReturnResult(sqlmock.NewResult(5, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/borehole/purchase", `{"borehole_id":4,"amount_liters":20}`)
	c.Set("user_id", uint64(1))
	require.NoError(t, h.Purchase(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purchase_id":5`)
	assert.Contains(t, rec.Body.String(), "purchase_code")
	assert.Contains(t, rec.Body.String(), "PENDING")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoreholeAgentCode(t *testing.T) {
	r, mock := newMockRepos(t)
	h := NewBoreholeHandler(r.Users, r.Agents, r.Boreholes)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentCols + " FROM agents WHERE id=? LIMIT 1")).
		WithArgs(3).
		WillReturnRows(agentRow(3, 10, "BASIC"))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + purchaseCols + " FROM purchases WHERE purchase_code=? FOR UPDATE")).
		WithArgs("c0ffee").
		WillReturnRows(purchaseRow(5, "PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agent_codes (agent_id, purchase_id, agent_code) VALUES (?,?,?)")).
		WithArgs(3, 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases SET status=? WHERE id=? AND status=?")).
		WithArgs("PAID", 5, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(http.MethodPost, "/v1/borehole/agent-code", `{"agent_id":3,"purchase_code":"c0ffee"}`)
	require.NoError(t, h.AgentCode(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "agent_code")
	assert.Contains(t, rec.Body.String(), "PAID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoreholeAgentCodeAlreadyPaid(t *testing.T) {
	r, mock := newMockRepos(t)
	h := NewBoreholeHandler(r.Users, r.Agents, r.Boreholes)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentCols + " FROM agents WHERE id=? LIMIT 1")).
		WithArgs(3).
		WillReturnRows(agentRow(3, 10, "BASIC"))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + purchaseCols + " FROM purchases WHERE purchase_code=? FOR UPDATE")).
		WithArgs("c0ffee").
		WillReturnRows(purchaseRow(5, "PAID"))
	mock.ExpectRollback()

	c, rec := newJSONContext(http.MethodPost, "/v1/borehole/agent-code", `{"agent_id":3,"purchase_code":"c0ffee"}`)
	require.NoError(t, h.AgentCode(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not pending")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoreholeTokenCode(t *testing.T) {
	r, mock := newMockRepos(t)
	h := NewBoreholeHandler(r.Users, r.Agents, r.Boreholes)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + purchaseCols + " FROM purchases WHERE purchase_code=? FOR UPDATE")).
		WithArgs("c0ffee").
		WillReturnRows(purchaseRow(5, "PAID"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, agent_id, purchase_id, agent_code, created_at FROM agent_codes WHERE purchase_id=? LIMIT 1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agent_id", "purchase_id", "agent_code", "created_at"}).
			AddRow(8, 3, 5, "aa11bb", testTime))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO water_tokens (purchase_id, token_code) VALUES (?,?)")).
		WithArgs(5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases SET status=? WHERE id=? AND status=?")).
		WithArgs("COMPLETED", 5, "PAID").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(http.MethodPost, "/v1/borehole/token-code", `{"purchase_code":"c0ffee","agent_code":"aa11bb"}`)
	require.NoError(t, h.TokenCode(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_code")
	assert.Contains(t, rec.Body.String(), "COMPLETED")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoreholeTokenCodeWrongAgentCode(t *testing.T) {
	r, mock := newMockRepos(t)
	h := NewBoreholeHandler(r.Users, r.Agents, r.Boreholes)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + purchaseCols + " FROM purchases WHERE purchase_code=? FOR UPDATE")).
		WithArgs("c0ffee").
		WillReturnRows(purchaseRow(5, "PAID"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, agent_id, purchase_id, agent_code, created_at FROM agent_codes WHERE purchase_id=? LIMIT 1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agent_id", "purchase_id", "agent_code", "created_at"}).
			AddRow(8, 3, 5, "aa11bb", testTime))
	mock.ExpectRollback()

	c, rec := newJSONContext(http.MethodPost, "/v1/borehole/token-code", `{"purchase_code":"c0ffee","agent_code":"wrong"}`)
	require.NoError(t, h.TokenCode(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid agent code")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoreholeTokenCodeBeforePayment(t *testing.T) {
	r, mock := newMockRepos(t)
	h := NewBoreholeHandler(r.Users, r.Agents, r.Boreholes)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + purchaseCols + " FROM purchases WHERE purchase_code=? FOR UPDATE")).
		WithArgs("c0ffee").
		WillReturnRows(purchaseRow(5, "PENDING"))
	mock.ExpectRollback()

	c, rec := newJSONContext(http.MethodPost, "/v1/borehole/token-code", `{"purchase_code":"c0ffee","agent_code":"aa11bb"}`)
	require.NoError(t, h.TokenCode(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not paid")
	assert.NoError(t, mock.ExpectationsWereMet())
}
