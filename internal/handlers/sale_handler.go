package handlers

import (
	"net/http"
	"strconv"

	"go-pos-ledger/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- POST: Checkout ---
func (h *Handler) CreateSale(c *gin.Context) {
	var input ledger.CreateSaleInput

	// 1. Parse JSON
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// 2. Commit the sale, its stock movements and the customer's debt together
	sale, err := h.Ledger.CreateSale(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "CreateSale", err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

// --- GET: Sales list ---
// ?currency= &customer_id= &from= &to= &debt_only=true &limit=
func (h *Handler) ListSales(c *gin.Context) {
	var f ledger.ListFilter
	if raw := c.Query("currency"); raw != "" {
		code, ok := parseCurrency(c, raw)
		if !ok {
			return
		}
		f.Currency = code
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer_id"})
			return
		}
		cid := uint(id)
		f.CustomerID = &cid
	}
	from, to, ok := parseDateRange(c)
	if !ok {
		return
	}
	f.From, f.To = from, to
	f.DebtOnly = c.Query("debt_only") == "true"
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		f.Limit = n
	}

	sales, err := h.Ledger.ListSales(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "ListSales", err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) GetSale(c *gin.Context) {
	code, ok := parseCurrency(c, c.Param("currency"))
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sale, err := h.Ledger.GetSale(c.Request.Context(), code, id)
	if err != nil {
		h.fail(c, "GetSale", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

type addItemRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// --- POST: Add a line to an existing sale ---
func (h *Handler) AddSaleItem(c *gin.Context) {
	code, ok := parseCurrency(c, c.Param("currency"))
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input addItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	item, err := h.Ledger.AddSaleItem(c.Request.Context(), code, id, input.ProductID, input.Quantity)
	if err != nil {
		h.fail(c, "AddSaleItem", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// --- PUT: Change amount paid or the owning customer ---
func (h *Handler) EditSale(c *gin.Context) {
	code, ok := parseCurrency(c, c.Param("currency"))
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input ledger.EditSaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	sale, err := h.Ledger.EditSale(c.Request.Context(), code, id, input)
	if err != nil {
		h.fail(c, "EditSale", err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
