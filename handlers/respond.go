package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
)

// The client expects success as {"data": ...} and failure as {"message": ...}.

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

// respondError maps the engine's error taxonomy onto HTTP status codes.
// Unclassified errors are logged and surfaced as a generic 500 so storage
// internals never leak to the client.
func respondError(c *gin.Context, moduleName string, funcName string, err error) {
	switch {
	case errors.Is(err, utils.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, utils.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
	case errors.Is(err, utils.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "forbidden"})
	case errors.Is(err, utils.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "record not found"})
	case errors.Is(err, utils.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, utils.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		config.LogError(config.GetLogger(), moduleName, funcName, c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "operation failed"})
	}
}

func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}
