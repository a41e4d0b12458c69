package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/taksrules/choto-api/internal/repository"
)

// repos bundles every repository over one mocked connection so a test
// can wire whichever handler it exercises.
type repos struct {
	Users        *repository.UserRepo
	Agents       *repository.AgentRepo
	Assets       *repository.AssetRepo
	Rentals      *repository.RentalRepo
	Transactions *repository.TransactionRepo
	Payments     *repository.PaymentRepo
	Boreholes    *repository.BoreholeRepo
}

func newMockRepos(t *testing.T) (repos, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repos{
		Users:        repository.NewUserRepo(db),
		Agents:       repository.NewAgentRepo(db),
		Assets:       repository.NewAssetRepo(db),
		Rentals:      repository.NewRentalRepo(db),
		Transactions: repository.NewTransactionRepo(db),
		Payments:     repository.NewPaymentRepo(db),
		Boreholes:    repository.NewBoreholeRepo(db),
	}, mock
}

// newJSONContext builds an echo context carrying a JSON body.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// dupKeyErr mimics the MySQL duplicate-key error the repositories refine
// into conflict errors.
func dupKeyErr(key string) error {
	return fmt.Errorf("Error 1062 (23000): Duplicate entry 'dup' for key '%s'", key)
}

const userCols = "id,name,email,phone,password_hash,role,status,tokens,verification_code,deposit_paid,created_at,updated_at"

func userRow(id uint64, status string, tokens int64, code interface{}, depositPaid bool) *sqlmock.Rows {
	return sqlmock.NewRows(strings.Split(userCols, ",")).
		AddRow(id, "Test User", "user@example.com", "0771234567", "$2a$04$hash", "USER", status, tokens, code, depositPaid, testTime, testTime)
}

const assetCols = "id,name,asset_type,scan_code,rented,agent_id,created_at,updated_at"

func assetRow(id uint64, assetType string, rented bool, agentID uint64) *sqlmock.Rows {
	return sqlmock.NewRows(strings.Split(assetCols, ",")).
		AddRow(id, "Asset "+assetType, assetType, "scan-code", rented, agentID, testTime, testTime)
}

const agentCols = "id,user_id,level,address,debt,negative_balance,created_at,updated_at"

func agentRow(id, userID uint64, level string) *sqlmock.Rows {
	return sqlmock.NewRows(strings.Split(agentCols, ",")).
		AddRow(id, userID, level, "12 Samora Ave", 0.0, false, testTime, testTime)
}
