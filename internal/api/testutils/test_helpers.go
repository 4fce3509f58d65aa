package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/kasciraya-server/internal/api"
	"github.com/rongwang/kasciraya-server/internal/config"
	"github.com/rongwang/kasciraya-server/internal/ingest"
	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/repository"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
	"github.com/stretchr/testify/require"
)

// TestAPIKey guards the messaging webhook in tests
const TestAPIKey = "test-api-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	Seed       *repository.SeedResult
	Now        time.Time

	AdminJWT   string
	ViewerAJWT string
	ViewerBJWT string
}

// SetupTestContext creates a router over a seeded in-memory store. The
// service clock is frozen so the current month always holds the seeded
// transactions.
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	// Create repository
	repo := repository.NewMemoryRepository()
	seed, err := repository.Seed(context.Background(), repo, now)
	require.NoError(t, err, "Failed to seed test store")

	// Create service
	logger := utils.NopLogger()
	svc := service.NewDefaultService(repo, "test-secret-key",
		service.WithLogger(logger),
		service.WithClock(func() time.Time { return now }),
	)

	// Create API handler
	handler := api.NewHandler(svc, logger)
	adapter := ingest.NewAdapter(svc, repo, config.IngestConfig{
		Username:    "admin",
		WalletID:    seed.Wallets["Cash"].ID,
		CategoryID:  seed.Categories["Shopping"].ID,
		MinorDigits: 2,
	}, logger)
	handler.EnableIngest(TestAPIKey, adapter)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger))

	// Set up routes
	handler.SetupRoutes(router)

	tc := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		Seed:       seed,
		Now:        now,
	}
	tc.AdminJWT = tc.Login(t, "admin")
	tc.ViewerAJWT = tc.Login(t, "viewer_a")
	tc.ViewerBJWT = tc.Login(t, "viewer_b")
	return tc
}

// Login returns a token for a seeded user
func (tc *TestContext) Login(t *testing.T, username string) string {
	t.Helper()
	resp, err := tc.Service.Login(context.Background(), models.LoginRequest{
		Username: username,
		Password: repository.DemoPassword,
	})
	require.NoError(t, err, "Failed to log in %s", username)
	return resp.Token
}

// WalletID returns the id of a seeded wallet
func (tc *TestContext) WalletID(name string) string {
	return tc.Seed.Wallets[name].ID
}

// SeedBalance recomputes a seeded wallet's balance from the seeded transactions
func (tc *TestContext) SeedBalance(name string) int64 {
	return ledger.WalletBalance(tc.Seed.Wallets[name], tc.Seed.Transactions)
}

// CategoryID returns the id of a seeded category
func (tc *TestContext) CategoryID(name string) string {
	return tc.Seed.Categories[name].ID
}

// UserID returns the id of a seeded user
func (tc *TestContext) UserID(username string) string {
	return tc.Seed.Users[username].ID
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case []byte:
		reqBody = bytes.NewBuffer(b)
	default:
		jsonBody, _ := json.Marshal(b)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeJSON unmarshals a recorded response body
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "Failed to decode response: %s", w.Body.String())
}
