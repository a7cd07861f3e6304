package handlers

import (
	"net/http"

	"go-pos-ledger/internal/customer"
	"go-pos-ledger/internal/debt"

	"github.com/gin-gonic/gin"
)

// ?search= &with_debt=true
func (h *Handler) GetCustomers(c *gin.Context) {
	customers, err := h.Customers.List(c.Request.Context(), customer.ListFilter{
		Search:   c.Query("search"),
		WithDebt: c.Query("with_debt") == "true",
	})
	if err != nil {
		h.fail(c, "GetCustomers", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cust, err := h.Customers.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetCustomer", err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *Handler) AddCustomer(c *gin.Context) {
	var input customer.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	cust, err := h.Customers.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "AddCustomer", err)
		return
	}
	c.JSON(http.StatusCreated, cust)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input customer.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	cust, err := h.Customers.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, "UpdateCustomer", err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *Handler) GetCustomerStatement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	stmt, err := h.Customers.Statement(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetCustomerStatement", err)
		return
	}
	c.JSON(http.StatusOK, stmt)
}

// --- POST: Money received against a balance ---
// The customer comes from the path; a customer_id in the body is ignored.
func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input debt.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	input.CustomerID = id

	result, err := h.Debts.RecordPayment(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "RecordPayment", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) CorrectDebt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input debt.CorrectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	input.CustomerID = id

	correction, err := h.Debts.CorrectDebt(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "CorrectDebt", err)
		return
	}
	c.JSON(http.StatusCreated, correction)
}

func (h *Handler) AddDebt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input debt.AddDebtInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	input.CustomerID = id

	cust, err := h.Debts.AddDebt(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "AddDebt", err)
		return
	}
	c.JSON(http.StatusOK, cust)
}
