package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidationFailed), errors.Is(err, apperr.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrOutOfStock), errors.Is(err, apperr.ErrBelowCost),
		errors.Is(err, apperr.ErrExceedsDebt), errors.Is(err, apperr.ErrCustomerRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrProductInUse), errors.Is(err, apperr.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrBusy):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

// fail writes err as JSON. Business errors carry their message; anything
// else is logged and hidden behind a generic message.
func (h *Handler) fail(c *gin.Context, funcName string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		config.LogError(h.Log, "handlers", funcName, c.Request.Method+" "+c.FullPath(), nil, err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func parseCurrency(c *gin.Context, raw string) (currency.Code, bool) {
	code, err := currency.ParseCode(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return code, true
}

// parseDateRange reads ?from=YYYY-MM-DD&to=YYYY-MM-DD. "to" is inclusive,
// so the returned upper bound is the start of the following day.
func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return from, to, false
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return from, to, false
		}
		to = t.AddDate(0, 0, 1)
	}
	return from, to, true
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get("role")
	return role == models.RoleAdmin
}
