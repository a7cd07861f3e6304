package handlers

import (
	"net/http"

	"go-pos-ledger/internal/currency"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetRates(c *gin.Context) {
	rates, err := h.Settings.Rates(c.Request.Context())
	if err != nil {
		h.fail(c, "GetRates", err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// UpdateRates replaces both rates. Past ETB sales keep their snapshot.
func (h *Handler) UpdateRates(c *gin.Context) {
	var input currency.RateTable
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	rates, err := h.Settings.Update(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "UpdateRates", err)
		return
	}
	c.JSON(http.StatusOK, rates)
}
