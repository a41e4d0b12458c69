package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminHandler(r repos) *AdminHandler {
	return NewAdminHandler(r.Users, r.Agents, r.Rentals, r.Transactions, r.Boreholes)
}

func TestApproveAgentGrantsInitialTokens(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAdminHandler(r)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentCols + " FROM agents WHERE id=? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(agentRow(3, 10, "STANDARD"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(userRow(10, "PENDING", 0, "123456", true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET tokens = tokens + ? WHERE id=? AND tokens + ? >= 0")).
		WithArgs(200, 10, 200).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET status=? WHERE id=?")).
		WithArgs("ACTIVE", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions (user_id, agent_id, asset_id, transaction_type, amount, token_amount, transaction_date) VALUES (?,?,?,?,?,?,NOW())")).
		WithArgs(10, 3, nil, "RENT", nil, 200).
		WillReturnResult(sqlmock.NewResult(51, 1))
	mock.ExpectCommit()

	c, rec := newJSONContext(http.MethodPatch, "/v1/admin/approve-agent", `{"agent_id":3}`)
	require.NoError(t, h.ApproveAgent(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"granted":200`)
	assert.Contains(t, rec.Body.String(), "ACTIVE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveAgentAlreadyApproved(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAdminHandler(r)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentCols + " FROM agents WHERE id=? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(agentRow(3, 10, "STANDARD"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? FOR UPDATE")).
		WithArgs(10).
		WillReturnRows(userRow(10, "ACTIVE", 200, nil, true))
	mock.ExpectRollback()

	c, rec := newJSONContext(http.MethodPatch, "/v1/admin/approve-agent", `{"agent_id":3}`)
	require.NoError(t, h.ApproveAgent(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not pending approval")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRole(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAdminHandler(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? LIMIT 1")).
		WithArgs(10).
		WillReturnRows(userRow(10, "ACTIVE", 0, nil, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role=? WHERE id=?")).
		WithArgs("AGENT", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/admin/assign-role", `{"user_id":10,"role":"AGENT"}`)
	require.NoError(t, h.AssignRole(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"AGENT"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoleAgentRequiresActiveUser(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAdminHandler(r)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userCols + " FROM users WHERE id=? LIMIT 1")).
		WithArgs(10).
		WillReturnRows(userRow(10, "PENDING", 0, "123456", false))

	c, rec := newJSONContext(http.MethodPost, "/v1/admin/assign-role", `{"user_id":10,"role":"AGENT"}`)
	require.NoError(t, h.AssignRole(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be active")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverview(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAdminHandler(r)

	count := func(n int64) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"count"}).AddRow(n)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).WillReturnRows(count(40))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE status=?")).
		WithArgs("ACTIVE").WillReturnRows(count(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agents")).WillReturnRows(count(6))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM agents a JOIN users u ON u.id = a.user_id WHERE u.status=?")).
		WithArgs("PENDING").WillReturnRows(count(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM rentals WHERE return_date IS NULL")).WillReturnRows(count(9))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM transactions")).WillReturnRows(count(120))

	c, rec := newJSONContext(http.MethodGet, "/v1/admin/overview", "")
	require.NoError(t, h.Overview(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"users":40`)
	assert.Contains(t, rec.Body.String(), `"pending_agents":2`)
	assert.Contains(t, rec.Body.String(), `"active_rentals":9`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBorehole(t *testing.T) {
	r, mock := newMockRepos(t)
	h := newAdminHandler(r)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO boreholes (name, location) VALUES (?,?)")).
		WithArgs("Chitungwiza North", "Unit L").
		WillReturnResult(sqlmock.NewResult(7, 1))

	c, rec := newJSONContext(http.MethodPost, "/v1/admin/boreholes", `{"name":"Chitungwiza North","location":"Unit L"}`)
	require.NoError(t, h.CreateBorehole(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":7`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
