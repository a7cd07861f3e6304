package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-pos-ledger/internal/profit"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/dashboard ---
// Cashiers get the same payload without profit figures.
func (h *Handler) GetDashboard(c *gin.Context) {
	data, err := h.Reconciler.Dashboard(c.Request.Context(), time.Now(), isAdmin(c), h.LowStockLimit)
	if err != nil {
		h.fail(c, "GetDashboard", err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// --- GET: /api/reports/profit?from=&to= ---
// Without a range the report covers today.
func (h *Handler) GetProfitReport(c *gin.Context) {
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	w := profit.Day(time.Now())
	if !from.IsZero() {
		w.From = from
	}
	if !to.IsZero() {
		w.To = to
	}

	report, err := h.Reconciler.Reconcile(c.Request.Context(), w)
	if err != nil {
		h.fail(c, "GetProfitReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) reportFilter(c *gin.Context) (profit.ReportFilter, bool) {
	var f profit.ReportFilter
	from, to, ok := parseDateRange(c)
	if !ok {
		return f, false
	}
	f.From, f.To = from, to
	if raw := c.Query("currency"); raw != "" {
		code, ok := parseCurrency(c, raw)
		if !ok {
			return f, false
		}
		f.Currency = code
	}
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
			return f, false
		}
		pid := uint(id)
		f.ProductID = &pid
	}
	return f, true
}

// --- GET: /api/reports/transactions ---
func (h *Handler) GetTransactionReport(c *gin.Context) {
	f, ok := h.reportFilter(c)
	if !ok {
		return
	}
	report, err := h.Reconciler.TransactionReport(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "GetTransactionReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- GET: /api/reports/transactions/export ---
// Same filter as the JSON report, streamed as an .xlsx workbook.
func (h *Handler) ExportTransactionReport(c *gin.Context) {
	f, ok := h.reportFilter(c)
	if !ok {
		return
	}
	report, err := h.Reconciler.TransactionReport(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "ExportTransactionReport", err)
		return
	}

	filename := fmt.Sprintf("transactions_%s.xlsx", report.GeneratedAt.Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Transfer-Encoding", "binary")
	c.Status(http.StatusOK)
	if err := report.WriteExcel(c.Writer); err != nil {
		// Headers are already out; all that is left is to log.
		h.Log.WithError(err).Error("transaction export failed mid-stream")
	}
}

// --- GET: /api/reports/valuation ---
// GetStockValuation totals the cost of everything on the shelves, grouped by category.
func (h *Handler) GetStockValuation(c *gin.Context) {
	valuation, err := h.Catalog.Valuation(c.Request.Context())
	if err != nil {
		h.fail(c, "GetStockValuation", err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}
