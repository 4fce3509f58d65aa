package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/kasciraya-server/internal/ingest"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED"},
	{ingest.ErrMalformed, http.StatusBadRequest, "VALIDATION_FAILED"},
	{service.ErrConflict, http.StatusConflict, "CONFLICT"},
}

// respondError writes the error response for err. Unclassified errors are
// logged and reported without their detail.
func respondError(c *gin.Context, logger *utils.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, models.ErrorResponse{
				Status:  "error",
				Code:    m.code,
				Message: err.Error(),
			})
			return
		}
	}

	logger.ErrorContext(c.Request.Context(), "request failed",
		utils.FieldPath, c.Request.URL.Path,
		utils.FieldError, err,
	)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "VALIDATION_FAILED",
		Message: err.Error(),
	})
}
