package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/utils"
)

// errorStatus maps a models/utils error to its HTTP status.
func errorStatus(err error) int {
	var verr *invoicing.ValidationError
	switch {
	case errors.As(err, &verr), utils.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrLockBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": message}. Validation failures also
// carry the per-field messages. Unexpected errors are logged and hidden.
func respondError(c *gin.Context, module string, funcName string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), module, funcName, c.Request.Method+" "+c.FullPath(), nil, err)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	var verr *invoicing.ValidationError
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": verr.Error(), "fields": verr.Fields})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// paramID reads the :id path parameter, answering 400 when it is not a
// positive integer.
func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}
