package models

import (
	"time"

	"go-pos-ledger/internal/currency"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User - The person operating the till (and the assistant)
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`                    // Never return this in JSON
	Role         string    `gorm:"size:20" json:"role"` // 'admin', 'cashier'
	CreatedAt    time.Time `json:"created_at"`
}

// Product - The Inventory. Prices are held in USD.
type Product struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Brand             string          `gorm:"size:100" json:"brand"`
	Category          string          `gorm:"size:100;index" json:"category"`
	PurchasePrice     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"purchase_price"`
	SellingPrice      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"selling_price"` // floor price
	CurrentStock      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"current_stock"`
	LowStockThreshold decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"low_stock_threshold"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p *Product) IsLowStock() bool {
	return p.CurrentStock.LessThanOrEqual(p.LowStockThreshold)
}

// Customer - A debtor with one independent balance per currency.
type Customer struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	Phone        string          `gorm:"size:20;index" json:"phone"`
	IsActive     bool            `json:"is_active"`
	TotalDebtUSD decimal.Decimal `gorm:"column:total_debt_usd;type:decimal(20,2);not null" json:"total_debt_usd"`
	TotalDebtSOS decimal.Decimal `gorm:"column:total_debt_sos;type:decimal(20,2);not null" json:"total_debt_sos"`
	TotalDebtETB decimal.Decimal `gorm:"column:total_debt_etb;type:decimal(20,2);not null" json:"total_debt_etb"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DebtColumn maps a currency to its balance column on customers.
func DebtColumn(code currency.Code) string {
	switch code {
	case currency.SOS:
		return "total_debt_sos"
	case currency.ETB:
		return "total_debt_etb"
	default:
		return "total_debt_usd"
	}
}

func (c *Customer) DebtIn(code currency.Code) decimal.Decimal {
	switch code {
	case currency.SOS:
		return c.TotalDebtSOS
	case currency.ETB:
		return c.TotalDebtETB
	default:
		return c.TotalDebtUSD
	}
}

func (c *Customer) SetDebt(code currency.Code, amount decimal.Decimal) {
	switch code {
	case currency.SOS:
		c.TotalDebtSOS = amount
	case currency.ETB:
		c.TotalDebtETB = amount
	default:
		c.TotalDebtUSD = amount
	}
}

func (c *Customer) HasDebt() bool {
	return c.TotalDebtUSD.IsPositive() || c.TotalDebtSOS.IsPositive() || c.TotalDebtETB.IsPositive()
}

// CurrencySettings - Singleton row with the operator-set rates.
type CurrencySettings struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	USDToSOSRate decimal.Decimal `gorm:"column:usd_to_sos_rate;type:decimal(20,6);not null" json:"usd_to_sos_rate"`
	USDToETBRate decimal.Decimal `gorm:"column:usd_to_etb_rate;type:decimal(20,6);not null" json:"usd_to_etb_rate"`
	UpdatedBy    *uint           `json:"updated_by"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (s *CurrencySettings) Table() currency.RateTable {
	return currency.RateTable{USDToSOS: s.USDToSOSRate, USDToETB: s.USDToETBRate}
}

// Sale - The Transaction Header. One table serves all three currencies.
type Sale struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	TransactionID string        `gorm:"size:36;uniqueIndex" json:"transaction_id"`
	Currency      currency.Code `gorm:"size:3;index;not null" json:"currency"`
	CustomerID    *uint         `gorm:"index" json:"customer_id"`
	Customer      *Customer     `json:"customer,omitempty"`
	UserID        *uint         `json:"user_id"` // Who processed it
	PNO           *string       `gorm:"column:pno;size:50" json:"pno,omitempty"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount_paid"`
	DebtAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"debt_amount"`

	// Set only on ETB sales, never changed afterwards.
	ExchangeRateAtSale *decimal.Decimal `gorm:"type:decimal(20,6)" json:"exchange_rate_at_sale,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.TransactionID == "" {
		s.TransactionID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps debt_amount = max(0, total - paid) on every write.
func (s *Sale) BeforeSave(tx *gorm.DB) error {
	s.DebtAmount = currency.DebtFor(s.TotalAmount, s.AmountPaid)
	return nil
}

func (s *Sale) Overpayment() decimal.Decimal {
	return currency.OverpaymentFor(s.TotalAmount, s.AmountPaid)
}

// ItemsTotal sums the line totals, rounded.
func (s *Sale) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Items {
		sum = sum.Add(it.TotalPrice)
	}
	return currency.Round(sum)
}

// Rates returns the table historical computations on this sale must use:
// ETB sales read their snapshot, other currencies the live table.
func (s *Sale) Rates(live currency.RateTable) currency.RateTable {
	if s.Currency == currency.ETB {
		return live.WithETBSnapshot(s.ExchangeRateAtSale)
	}
	return live
}

// SaleItem - One line of a sale
type SaleItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SaleID     uint            `gorm:"index;not null" json:"sale_id"`
	ProductID  uint            `gorm:"index;not null" json:"product_id"`
	Product    Product         `json:"product"` // Preload product details
	Quantity   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unit_price"` // Snapshot of price at time of sale
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Recalculate sets TotalPrice = round(UnitPrice * Quantity).
func (i *SaleItem) Recalculate() {
	i.TotalPrice = currency.Round(i.UnitPrice.Mul(i.Quantity))
}

// DebtPayment - Money received against a customer's balance. Immutable.
type DebtPayment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CustomerID uint            `gorm:"index;not null" json:"customer_id"`
	Currency   currency.Code   `gorm:"size:3;not null" json:"currency"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	PNO        string          `gorm:"column:pno;size:50;not null" json:"pno"`
	Notes      string          `gorm:"type:text" json:"notes"`
	UserID     *uint           `json:"user_id"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

// DebtCorrection - Manual override of a balance, kept for the paper trail.
type DebtCorrection struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CustomerID       uint            `gorm:"index;not null" json:"customer_id"`
	Currency         currency.Code   `gorm:"size:3;not null" json:"currency"`
	OldDebtAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"old_debt_amount"`
	NewDebtAmount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"new_debt_amount"`
	AdjustmentAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"adjustment_amount"`
	Reason           string          `gorm:"type:text;not null" json:"reason"`
	UserID           *uint           `json:"user_id"`
	IPAddress        string          `gorm:"size:45" json:"ip_address"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Inventory log actions
const (
	StockSale          = "SALE"
	StockSaleItemAdded = "SALE_ITEM_ADDED"
	StockRestock       = "RESTOCK"
)

// InventoryLog - Append-only record of every stock movement.
type InventoryLog struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProductID      uint            `gorm:"index;not null" json:"product_id"`
	Action         string          `gorm:"size:30;not null" json:"action"`
	QuantityChange decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"quantity_change"`
	OldQuantity    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"old_quantity"`
	NewQuantity    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"new_quantity"`
	SaleID         *uint           `gorm:"index" json:"sale_id"`
	UserID         *uint           `json:"user_id"`
	Notes          string          `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Audit actions
const (
	AuditSaleCreated     = "SALE_CREATED"
	AuditSaleEdited      = "SALE_EDITED"
	AuditSaleItemAdded   = "SALE_ITEM_ADDED"
	AuditDebtAdded       = "DEBT_ADDED"
	AuditDebtPaid        = "DEBT_PAID"
	AuditDebtCorrected   = "DEBT_CORRECTED"
	AuditStockRestocked  = "STOCK_RESTOCKED"
	AuditCurrencyUpdated = "CURRENCY_UPDATED"
	AuditProductCreated  = "PRODUCT_CREATED"
	AuditProductUpdated  = "PRODUCT_UPDATED"
	AuditProductDeleted  = "PRODUCT_DELETED"
	AuditCustomerCreated = "CUSTOMER_CREATED"
	AuditCustomerUpdated = "CUSTOMER_UPDATED"
)

// AuditLog - Append-only trail of business actions.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	Action     string    `gorm:"size:30;index;not null" json:"action"`
	ObjectType string    `gorm:"size:30" json:"object_type"`
	ObjectID   string    `gorm:"size:50" json:"object_id"`
	Details    string    `gorm:"type:text" json:"details"`
	IPAddress  string    `gorm:"size:45" json:"ip_address"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Product{},
		&Customer{},
		&CurrencySettings{},
		&Sale{},
		&SaleItem{},
		&DebtPayment{},
		&DebtCorrection{},
		&InventoryLog{},
		&AuditLog{},
	}
}
