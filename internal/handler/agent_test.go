package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgentHandler(r repos) *AgentHandler {
	return NewAgentHandler(r.Users, r.Agents, r.Assets, r.Payments, r.Transactions)
}

func TestAgentRegister(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAgentHandler(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? LIMIT 1")).
		WithArgs(10).
		WillReturnRows(userRow(10, "ACTIVE", 0, nil, true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agents (user_id, level, address, debt, negative_balance) VALUES (?,?,?,0,false)")).
		WithArgs(10, "BASIC", "12 Samora Ave").
		WillReturnResult(sqlmock.NewResult(3, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/agents", `{"user_id":10,"level":"basic","address":"12 Samora Ave"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":3`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentRegisterTwice(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAgentHandler(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? LIMIT 1")).
		WithArgs(10).
		WillReturnRows(userRow(10, "ACTIVE", 0, nil, true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agents")).
		WithArgs(10, "BASIC", "12 Samora Ave").
		WillReturnError(dupKeyErr("agents.user_id"))

	c, rec := newJSONContext(http.MethodPost, "/v1/agents", `{"user_id":10,"level":"BASIC","address":"12 Samora Ave"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already an agent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistribute(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAgentHandler(r)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentCols + " FROM agents WHERE id=? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(agentRow(3, 10, "BASIC"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(userRow(10, "ACTIVE", 100, nil, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE email=? FOR UPDATE")).
		WithArgs("dest@example.com").
		WillReturnRows(userRow(20, "ACTIVE", 5, nil, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET tokens = tokens + ? WHERE id=? AND tokens + ? >= 0")).
		WithArgs(-40, 10, -40).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET tokens = tokens + ? WHERE id=? AND tokens + ? >= 0")).
		WithArgs(40, 20, 40).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions (user_id, agent_id, asset_id, transaction_type, amount, token_amount, transaction_date) VALUES (?,?,?,?,?,?,NOW())")).
		WithArgs(20, 3, nil, "DISTRIBUTION", nil, 40).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(http.MethodPost, "/v1/agents/distribute", `{"agent_id":3,"email":"dest@example.com","amount":40}`)
	require.NoError(t, h.Distribute(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":40`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributeInsufficientTokens(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAgentHandler(r)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentCols + " FROM agents WHERE id=? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(agentRow(3, 10, "BASIC"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(userRow(10, "ACTIVE", 25, nil, true))
	mock.ExpectRollback()

	c, rec := newJSONContext(http.MethodPost, "/v1/agents/distribute", `{"agent_id":3,"email":"dest@example.com","amount":40}`)
	require.NoError(t, h.Distribute(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient tokens")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyUser(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAgentHandler(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE email=? LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(userRow(1, "PENDING", 0, "123456", true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=?, verification_code=NULL WHERE email=? AND status=?")).
		WithArgs("ACTIVE", "user@example.com", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/agents/verify-user", `{"email":"user@example.com","code":"123456"}`)
	require.NoError(t, h.VerifyUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user verified")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyUserDepositUnpaid(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAgentHandler(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE email=? LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(userRow(1, "PENDING", 0, "123456", false))

	c, rec := newJSONContext(http.MethodPost, "/v1/agents/verify-user", `{"email":"user@example.com","code":"123456"}`)
	require.NoError(t, h.VerifyUser(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "verification failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
