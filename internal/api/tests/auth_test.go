package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/kasciraya-server/internal/api"
	"github.com/rongwang/kasciraya-server/internal/api/testutils"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/repository"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unavailableUsers fails user lookups by id, as a lost database connection would
type unavailableUsers struct {
	repository.Repository
}

func (unavailableUsers) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection refused")
}

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful login
	loginReq := models.LoginRequest{
		Username: "viewer_a",
		Password: "password123",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.AuthResponse
	testutils.DecodeJSON(t, w, &response)
	assert.Equal(t, "success", response.Status)
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, testCtx.UserID("viewer_a"), response.UserID)
	assert.Equal(t, models.RoleViewer, response.Role)
	assert.ElementsMatch(t, []models.Capability{models.CapViewDashboard, models.CapEditProfile}, response.Capabilities)

	// Test case 2: Wrong password
	loginReq.Password = "wrongpassword"
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var errResponse models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResponse)
	assert.Equal(t, "INVALID_CREDENTIALS", errResponse.Code)

	// Test case 3: Unknown user looks the same as a wrong password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "nobody", Password: "password123"},
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	testutils.DecodeJSON(t, w, &errResponse)
	assert.Equal(t, "INVALID_CREDENTIALS", errResponse.Code)

	// Test case 4: Missing fields
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "admin"},
		nil,
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"no header", nil},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}},
		{"garbage token", testutils.AuthHeaders("not-a-jwt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/me", nil, tt.headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var errResponse models.ErrorResponse
			testutils.DecodeJSON(t, w, &errResponse)
			assert.Equal(t, "UNAUTHORIZED", errResponse.Code)
		})
	}
}

func TestAuthMiddlewareStoreFailure(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	svc := service.NewDefaultService(unavailableUsers{testCtx.Repository}, "test-secret-key",
		service.WithClock(func() time.Time { return testCtx.Now }),
	)
	login, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: repository.DemoPassword})
	require.NoError(t, err)

	router := gin.New()
	api.NewHandler(svc, utils.NopLogger()).SetupRoutes(router)

	// A store outage is a server error, not a bad token
	w := testutils.PerformRequest(router, http.MethodGet, "/api/me", nil, testutils.AuthHeaders(login.Token))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var errResponse models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResponse)
	assert.Equal(t, "INTERNAL_ERROR", errResponse.Code)
}

func TestMe(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/me",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.MeResponse
	testutils.DecodeJSON(t, w, &response)
	assert.Equal(t, "admin", response.User.Username)
	assert.Contains(t, response.Capabilities, models.CapManage)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLogout(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/logout",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// The old token no longer works
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard",
		nil,
		testutils.AuthHeaders(testCtx.ViewerBJWT),
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Other users are unaffected
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/dashboard",
		nil,
		testutils.AuthHeaders(testCtx.ViewerAJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPut,
		"/api/me",
		models.UpdateProfileRequest{Name: "Alice", Username: "alice", Password: "brand-new-pass"},
		testutils.AuthHeaders(testCtx.ViewerAJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var response models.UserResponse
	testutils.DecodeJSON(t, w, &response)
	assert.Equal(t, "alice", response.User.Username)
	assert.Equal(t, models.RoleViewer, response.User.Role)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		models.LoginRequest{Username: "alice", Password: "brand-new-pass"},
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// Taken username
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPut,
		"/api/me",
		models.UpdateProfileRequest{Name: "Alice", Username: "admin"},
		testutils.AuthHeaders(testCtx.ViewerAJWT),
	)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealth(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
