package handlers

import (
	"net/http"

	"go-pos-ledger/internal/ai"
	"go-pos-ledger/internal/auth"
	"go-pos-ledger/internal/catalog"
	"go-pos-ledger/internal/customer"
	"go-pos-ledger/internal/debt"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/profit"
	"go-pos-ledger/internal/settings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	DB         *gorm.DB
	Issuer     *auth.TokenIssuer
	Catalog    *catalog.Service
	Customers  *customer.Service
	Ledger     *ledger.Ledger
	Debts      *debt.Service
	Settings   *settings.Store
	Reconciler *profit.Reconciler
	Assistant  *ai.Agent // nil when no API key is configured
	Log        *logrus.Logger

	AllowRegistration bool
	LowStockLimit     int
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.POST("/login", h.Login)

	// --- FEATURE FLAG: Registration ---
	if h.AllowRegistration {
		r.POST("/register", h.Register)
		h.Log.Warn("registration route is OPEN, disable this in production")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Issuer))
	{
		// STAFF & ADMIN
		api.GET("/products", h.GetProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/customers", h.GetCustomers)
		api.GET("/customers/:id", h.GetCustomer)
		api.POST("/customers", h.AddCustomer)
		api.POST("/sales", h.CreateSale)
		api.GET("/sales", h.ListSales)
		api.GET("/sales/:currency/:id", h.GetSale)
		api.POST("/sales/:currency/:id/items", h.AddSaleItem)
		api.GET("/settings/rates", h.GetRates)
		api.GET("/dashboard", h.GetDashboard)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/ask", h.AskAI)

			admin.POST("/products", h.AddProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.POST("/products/:id/restock", h.RestockProduct)

			admin.PUT("/customers/:id", h.UpdateCustomer)
			admin.GET("/customers/:id/statement", h.GetCustomerStatement)
			admin.POST("/customers/:id/payments", h.RecordPayment)
			admin.POST("/customers/:id/corrections", h.CorrectDebt)
			admin.POST("/customers/:id/debt", h.AddDebt)

			admin.PUT("/sales/:currency/:id", h.EditSale)
			admin.PUT("/settings/rates", h.UpdateRates)

			admin.GET("/reports/profit", h.GetProfitReport)
			admin.GET("/reports/transactions", h.GetTransactionReport)
			admin.GET("/reports/transactions/export", h.ExportTransactionReport)
			admin.GET("/reports/valuation", h.GetStockValuation)
		}
	}
}
