package api_test

import (
	"net/http"
	"testing"

	"github.com/rongwang/kasciraya-server/internal/api/testutils"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAdmin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var response models.DashboardResponse
	testutils.DecodeJSON(t, w, &response)
	assert.Len(t, response.Wallets, 2)
	assert.Equal(t, testCtx.SeedBalance("Cash")+testCtx.SeedBalance("Bank BCA"), response.TotalBalance)
	assert.Equal(t, int64(225000+20200000), response.TotalBalance)
	assert.Equal(t, int64(9200000), response.Period.Income)
	assert.Equal(t, int64(2075000), response.Period.Expense)
	assert.Len(t, response.Recent, 5)

	require.Len(t, response.Monthly, 2)
	assert.Equal(t, 2024, response.Monthly[0].Year)
	assert.Equal(t, 2026, response.Monthly[1].Year)
}

func TestDashboardViewerContainment(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	cash := testCtx.WalletID("Cash")

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard",
		nil,
		testutils.AuthHeaders(testCtx.ViewerAJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var response models.DashboardResponse
	testutils.DecodeJSON(t, w, &response)
	require.Len(t, response.Wallets, 1)
	assert.Equal(t, cash, response.Wallets[0].Wallet.ID)
	assert.Equal(t, int64(225000), response.Wallets[0].Balance)
	assert.Equal(t, int64(225000), response.TotalBalance)
	assert.Zero(t, response.Period.Income)
	assert.Equal(t, int64(75000), response.Period.Expense)

	for _, tx := range response.Recent {
		assert.Equal(t, cash, tx.WalletID)
	}
	for _, row := range response.Categories {
		assert.NotEqual(t, "Salary", row.Name)
		assert.NotEqual(t, "Housing", row.Name)
	}
}

func TestDashboardPeriodQuery(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard?from=2024-07-01&to=2024-07-31",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var response models.DashboardResponse
	testutils.DecodeJSON(t, w, &response)
	assert.Equal(t, int64(8000000), response.Period.Income)
	assert.Equal(t, int64(200000), response.Period.Expense)
	require.NotNil(t, response.Period.From)
	require.NotNil(t, response.Period.To)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard?from=yesterday",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard?from=2024-08-01&to=2024-07-01",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmptyDashboard(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Dropping viewer_b's only grant leaves nothing to show
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPut,
		"/api/admin/users/"+testCtx.UserID("viewer_b")+"/permissions",
		models.UpdatePermissionsRequest{WalletIDs: []string{}},
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	// Empty collections are serialized as [] rather than null
	assert.Contains(t, w.Body.String(), `"wallets":[]`)
	assert.Contains(t, w.Body.String(), `"monthly":[]`)
	assert.Contains(t, w.Body.String(), `"categories":[]`)
	assert.Contains(t, w.Body.String(), `"recent":[]`)

	var response models.DashboardResponse
	testutils.DecodeJSON(t, w, &response)
	assert.Zero(t, response.TotalBalance)
	assert.Zero(t, response.Period.Income)
	assert.Zero(t, response.Period.Expense)
}

func TestWallets(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/wallets",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var response models.WalletsResponse
	testutils.DecodeJSON(t, w, &response)
	require.Len(t, response.Wallets, 1)
	assert.Equal(t, "Bank BCA", response.Wallets[0].Wallet.Name)
	assert.Equal(t, int64(20200000), response.TotalBalance)
	assert.Equal(t, testCtx.SeedBalance("Bank BCA"), response.TotalBalance)

	// Balance of a visible wallet
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/wallets/"+testCtx.WalletID("Bank BCA")+"/balance",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)
	var balance models.BalanceResponse
	testutils.DecodeJSON(t, w, &balance)
	assert.Equal(t, int64(20200000), balance.Balance)

	// A hidden wallet looks exactly like a missing one
	hidden := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/wallets/"+testCtx.WalletID("Cash")+"/balance",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	missing := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/wallets/does-not-exist/balance",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	assert.Equal(t, http.StatusNotFound, hidden.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestReports(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	headers := testutils.AuthHeaders(testCtx.ViewerAJWT)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/reports/totals", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var totals models.PeriodTotalsResponse
	testutils.DecodeJSON(t, w, &totals)
	assert.Equal(t, int64(275000), totals.Totals.Expense)
	assert.Equal(t, int64(-275000), totals.Totals.Net)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/reports/categories", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var categories models.CategoryReportResponse
	testutils.DecodeJSON(t, w, &categories)
	require.Len(t, categories.Categories, 2)
	assert.Equal(t, "Transportation", categories.Categories[0].Name)
	assert.Equal(t, int64(150000), categories.Categories[0].Expense)
	assert.Equal(t, "Food & Drinks", categories.Categories[1].Name)
	assert.Equal(t, int64(125000), categories.Categories[1].Expense)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/reports/monthly", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	var monthly models.MonthlyReportResponse
	testutils.DecodeJSON(t, w, &monthly)
	require.Len(t, monthly.Months, 2)
	assert.Equal(t, "Jul 2024", monthly.Months[0].Label)
	assert.Equal(t, int64(200000), monthly.Months[0].Expense)
	assert.Equal(t, "Mar 2026", monthly.Months[1].Label)
	assert.Equal(t, int64(75000), monthly.Months[1].Expense)
}

func TestViewerCannotListTransactions(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/transactions",
		nil,
		testutils.AuthHeaders(testCtx.ViewerAJWT),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var errResponse models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResponse)
	assert.Equal(t, "FORBIDDEN", errResponse.Code)
}
