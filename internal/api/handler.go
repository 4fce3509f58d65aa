package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/kasciraya-server/internal/export"
	"github.com/rongwang/kasciraya-server/internal/ingest"
	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

// Handler holds the dependencies of the HTTP views
type Handler struct {
	svc    service.Service
	logger *utils.Logger

	ingestKey string
	adapter   *ingest.Adapter
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, logger *utils.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.WithComponent("api"),
	}
}

// EnableIngest mounts the messaging webhook, guarded by apiKey
func (h *Handler) EnableIngest(apiKey string, adapter *ingest.Adapter) {
	h.ingestKey = apiKey
	h.adapter = adapter
}

// SetupRoutes registers every route on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Login)

	if h.adapter != nil {
		integrations := api.Group("/integrations", APIKeyMiddleware(h.ingestKey))
		integrations.POST("/messaging/transactions", h.IngestTransaction)
	}

	// Protected routes
	auth := api.Group("", AuthMiddleware(h.svc, h.logger))
	auth.POST("/auth/logout", h.Logout)
	auth.GET("/me", h.Me)
	auth.PUT("/me", RequireCapability(models.CapEditProfile), h.UpdateProfile)

	view := auth.Group("", RequireCapability(models.CapViewDashboard))
	view.GET("/dashboard", h.Dashboard)
	view.GET("/wallets", h.ListWallets)
	view.GET("/wallets/:id/balance", h.WalletBalance)
	view.GET("/categories", h.ListCategories)
	view.GET("/reports/totals", h.PeriodTotals)
	view.GET("/reports/categories", h.CategoryReport)
	view.GET("/reports/monthly", h.MonthlyReport)

	txs := auth.Group("/transactions")
	txs.GET("", RequireCapability(models.CapViewTransactions), h.ListTransactions)
	txs.GET("/export", RequireCapability(models.CapViewTransactions), h.ExportTransactions)
	txs.POST("", RequireCapability(models.CapCreateTransaction), h.AddTransaction)
	txs.PUT("/:id", RequireCapability(models.CapManage), h.UpdateTransaction)
	txs.DELETE("/:id", RequireCapability(models.CapManage), h.DeleteTransaction)

	admin := auth.Group("/admin", RequireCapability(models.CapManage))
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.GET("/users/:id/permissions", h.GetUserPermissions)
	admin.PUT("/users/:id/permissions", h.UpdateUserPermissions)
	admin.POST("/wallets", h.CreateWallet)
	admin.PUT("/wallets/:id", h.UpdateWallet)
	admin.DELETE("/wallets/:id", h.DeleteWallet)
	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
}

// parseTime accepts a calendar day or an RFC3339 instant. A bare day used as
// an upper bound covers the whole day.
func parseTime(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither YYYY-MM-DD nor RFC3339", service.ErrValidation, value)
	}
	return t, nil
}

// dateRange reads the from and to query parameters
func dateRange(c *gin.Context) (ledger.DateRange, error) {
	var r ledger.DateRange
	var err error
	if v := c.Query("from"); v != "" {
		if r.From, err = parseTime(v, false); err != nil {
			return r, err
		}
	}
	if v := c.Query("to"); v != "" {
		if r.To, err = parseTime(v, true); err != nil {
			return r, err
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("%w: to is before from", service.ErrValidation)
	}
	return r, nil
}

func transactionFilter(c *gin.Context) (ledger.TransactionFilter, error) {
	r, err := dateRange(c)
	if err != nil {
		return ledger.TransactionFilter{}, err
	}
	f := ledger.TransactionFilter{
		Day:        c.Query("day"),
		WalletID:   c.Query("walletId"),
		CategoryID: c.Query("categoryId"),
		Range:      r,
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", service.ErrValidation)
		}
		f.Limit = limit
	}
	return f, nil
}

// Health handler
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Authentication handlers
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), currentUser(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	resp, err := h.svc.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateProfile(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// View handlers
func (h *Handler) Dashboard(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.svc.Dashboard(c.Request.Context(), currentUser(c), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListWallets(c *gin.Context) {
	resp, err := h.svc.ListWallets(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) WalletBalance(c *gin.Context) {
	resp, err := h.svc.WalletBalance(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListCategories(c *gin.Context) {
	resp, err := h.svc.ListCategories(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PeriodTotals(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.svc.PeriodTotals(c.Request.Context(), currentUser(c), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CategoryReport(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.svc.CategoryReport(c.Request.Context(), currentUser(c), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) MonthlyReport(c *gin.Context) {
	r, err := dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.svc.MonthlyReport(c.Request.Context(), currentUser(c), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transaction handlers
func (h *Handler) ListTransactions(c *gin.Context) {
	f, err := transactionFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.svc.ListTransactions(c.Request.Context(), currentUser(c), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ExportTransactions(c *gin.Context) {
	f, err := transactionFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	data, err := h.svc.ExportTransactions(c.Request.Context(), currentUser(c), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("transactions_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, data)
}

func (h *Handler) AddTransaction(c *gin.Context) {
	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.AddTransaction(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateTransaction(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	if err := h.svc.DeleteTransaction(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Transaction deleted"})
}

// IngestTransaction books a receipt summary posted by the messaging integration
func (h *Handler) IngestTransaction(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBindError(c, err)
		return
	}
	payload, err := ingest.ParsePayload(body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.adapter.Book(c.Request.Context(), *payload)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// User management handlers
func (h *Handler) ListUsers(c *gin.Context) {
	resp, err := h.svc.ListUsers(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.CreateUser(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateUser(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "User deleted"})
}

func (h *Handler) GetUserPermissions(c *gin.Context) {
	resp, err := h.svc.GetUserPermissions(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UpdateUserPermissions(c *gin.Context) {
	var req models.UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateUserPermissions(c.Request.Context(), currentUser(c), c.Param("id"), req.WalletIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Wallet management handlers
func (h *Handler) CreateWallet(c *gin.Context) {
	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.CreateWallet(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) UpdateWallet(c *gin.Context) {
	var req models.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateWallet(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteWallet(c *gin.Context) {
	if err := h.svc.DeleteWallet(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Wallet deleted"})
}

// Category management handlers
func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.CreateCategory(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateCategory(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.svc.DeleteCategory(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "Category deleted"})
}
