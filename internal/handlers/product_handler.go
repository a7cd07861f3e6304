package handlers

import (
	"net/http"

	"go-pos-ledger/internal/catalog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- GET: List products with their prices in every currency ---
// ?search= &category= &low_stock=true &active=true
func (h *Handler) GetProducts(c *gin.Context) {
	ctx := c.Request.Context()
	products, err := h.Catalog.List(ctx, catalog.ListFilter{
		Search:       c.Query("search"),
		Category:     c.Query("category"),
		LowStockOnly: c.Query("low_stock") == "true",
		ActiveOnly:   c.Query("active") == "true",
	})
	if err != nil {
		h.fail(c, "GetProducts", err)
		return
	}

	rates, err := h.Settings.Rates(ctx)
	if err != nil {
		h.fail(c, "GetProducts", err)
		return
	}

	views := make([]*catalog.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, catalog.View(p, rates))
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// --- POST: Add a new product ---
func (h *Handler) AddProduct(c *gin.Context) {
	var input catalog.ProductInput

	// 1. Parse JSON Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// 2. Save to DB
	product, err := h.Catalog.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "AddProduct", err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// --- PUT: Update details and prices. Stock only moves through sales and restocks ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	// 1. Get ID from URL (e.g., /products/5)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	// 2. Parse the replacement fields
	var input catalog.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// 3. Save updates
	product, err := h.Catalog.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, "UpdateProduct", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// --- DELETE: Remove a product that never sold ---
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "DeleteProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

type restockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes"`
}

// --- POST: Receive stock ---
func (h *Handler) RestockProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input restockRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.Catalog.Restock(c.Request.Context(), id, input.Quantity, input.Notes)
	if err != nil {
		h.fail(c, "RestockProduct", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
