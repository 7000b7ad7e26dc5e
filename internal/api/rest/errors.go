package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/Sogo28/chaincode-blockchain/internal/api/shared/errors"
	"github.com/Sogo28/chaincode-blockchain/internal/domain"
	"github.com/Sogo28/chaincode-blockchain/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondConflict responds with a conflict error
func respondConflict(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusConflict, apierrors.NewConflictError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondInternalError responds with an internal server error and logs it
func respondInternalError(c *gin.Context, err error, message string) {
	logger.Error(err, zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondEngineError maps engine errors to HTTP responses. Sentinel errors
// from the domain carry the status; anything else is a 500.
func respondEngineError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrTitleAlreadyExists):
		respondConflict(c, message, err.Error())
	case errors.Is(err, domain.ErrTitleNotFound):
		respondNotFound(c, message, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		respondValidationError(c, err.Error())
	default:
		respondInternalError(c, err, message)
	}
}
