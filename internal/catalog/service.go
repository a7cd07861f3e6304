// Package catalog owns products, their stock and price conversion.
package catalog

import (
	"context"
	"errors"
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateSource supplies the current rate table.
type RateSource interface {
	Rates(ctx context.Context) (currency.RateTable, error)
}

type Service struct {
	db    *gorm.DB
	rates RateSource
	trail *audit.Trail
}

func NewService(db *gorm.DB, rates RateSource, trail *audit.Trail) *Service {
	return &Service{db: db, rates: rates, trail: trail}
}

// ProductInput carries USD prices. Stock may be fractional.
type ProductInput struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Brand             string          `json:"brand" validate:"max=100"`
	Category          string          `json:"category" validate:"max=100"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	IsActive          *bool           `json:"is_active"`
}

func (in *ProductInput) check() error {
	if err := apperr.Validate(in); err != nil {
		return err
	}
	for field, v := range map[string]decimal.Decimal{
		"purchase_price":      in.PurchasePrice,
		"selling_price":       in.SellingPrice,
		"current_stock":       in.CurrentStock,
		"low_stock_threshold": in.LowStockThreshold,
	} {
		if v.IsNegative() {
			return apperr.Invalid("%s must not be negative", field)
		}
	}
	return nil
}

// ProductView is a product with its floor and cost in every currency.
type ProductView struct {
	models.Product
	SellingPrices  map[currency.Code]decimal.Decimal `json:"selling_prices"`
	PurchasePrices map[currency.Code]decimal.Decimal `json:"purchase_prices"`
}

type ListFilter struct {
	Search       string
	Category     string
	LowStockOnly bool
	ActiveOnly   bool
}

type RestockResult struct {
	Product models.Product      `json:"product"`
	Log     models.InventoryLog `json:"log"`
}

func (s *Service) nameTaken(tx *gorm.DB, name string, exceptID uint) error {
	var n int64
	err := tx.Model(&models.Product{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exceptID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Wrap(apperr.ErrDuplicate, "product %q already exists", name)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	p := &models.Product{
		Name:              strings.TrimSpace(in.Name),
		Brand:             in.Brand,
		Category:          in.Category,
		PurchasePrice:     currency.Round(in.PurchasePrice),
		SellingPrice:      currency.Round(in.SellingPrice),
		CurrentStock:      currency.Round(in.CurrentStock),
		LowStockThreshold: currency.Round(in.LowStockThreshold),
		IsActive:          true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.nameTaken(tx, p.Name, 0); err != nil {
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditProductCreated,
			ObjectType: "Product",
			ObjectID:   p.ID,
			Details:    map[string]string{"name": p.Name, "selling_price": p.SellingPrice.String()},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update rewrites the product's descriptive fields and prices. Stock is
// only changed through Restock and sales.
func (s *Service) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	var p *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if p, err = LockProduct(tx, id); err != nil {
			return err
		}
		name := strings.TrimSpace(in.Name)
		if err := s.nameTaken(tx, name, id); err != nil {
			return err
		}
		before := map[string]string{"purchase_price": p.PurchasePrice.String(), "selling_price": p.SellingPrice.String()}

		p.Name = name
		p.Brand = in.Brand
		p.Category = in.Category
		p.PurchasePrice = currency.Round(in.PurchasePrice)
		p.SellingPrice = currency.Round(in.SellingPrice)
		p.LowStockThreshold = currency.Round(in.LowStockThreshold)
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if err := tx.Omit("current_stock").Save(p).Error; err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditProductUpdated,
			ObjectType: "Product",
			ObjectID:   p.ID,
			Details: map[string]any{
				"before": before,
				"after":  map[string]string{"purchase_price": p.PurchasePrice.String(), "selling_price": p.SellingPrice.String()},
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product that no sale has ever referenced.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := LockProduct(tx, id)
		if err != nil {
			return err
		}
		var used int64
		if err := tx.Model(&models.SaleItem{}).Where("product_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return apperr.Wrap(apperr.ErrProductInUse, "%q appears on %d sale lines", p.Name, used)
		}
		if err := tx.Delete(p).Error; err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditProductDeleted,
			ObjectType: "Product",
			ObjectID:   p.ID,
			Details:    map[string]string{"name": p.Name},
		})
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id uint) (*ProductView, error) {
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}
	var p models.Product
	err = s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrProductNotFound, "product %d", id)
	}
	if err != nil {
		return nil, err
	}
	return View(p, rates), nil
}

// View converts a product's USD prices into every currency.
func View(p models.Product, rates currency.RateTable) *ProductView {
	v := &ProductView{
		Product:        p,
		SellingPrices:  make(map[currency.Code]decimal.Decimal, len(currency.Codes)),
		PurchasePrices: make(map[currency.Code]decimal.Decimal, len(currency.Codes)),
	}
	for _, code := range currency.Codes {
		v.SellingPrices[code] = currency.Round(rates.FromUSD(p.SellingPrice, code))
		v.PurchasePrices[code] = currency.Round(rates.FromUSD(p.PurchasePrice, code))
	}
	return v
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		q = q.Where("name LIKE ? OR brand LIKE ?", like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.LowStockOnly {
		q = q.Where("current_stock <= low_stock_threshold")
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Product
	if err := q.Order("name").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Restock adds qty to a product's stock and logs the movement.
func (s *Service) Restock(ctx context.Context, productID uint, qty decimal.Decimal, notes string) (*RestockResult, error) {
	qty = currency.Round(qty)
	if !qty.IsPositive() {
		return nil, apperr.ErrInvalidQuantity
	}
	actor := audit.ActorFrom(ctx)

	var res RestockResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := LockProduct(tx, productID)
		if err != nil {
			return err
		}
		old := p.CurrentStock
		p.CurrentStock = currency.Round(old.Add(qty))
		if err := tx.Model(p).Update("current_stock", p.CurrentStock).Error; err != nil {
			return err
		}

		res.Log = models.InventoryLog{
			ProductID:      p.ID,
			Action:         models.StockRestock,
			QuantityChange: qty,
			OldQuantity:    old,
			NewQuantity:    p.CurrentStock,
			UserID:         actor.UserPtr(),
			Notes:          notes,
		}
		if err := LogStock(tx, &res.Log); err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditStockRestocked,
			ObjectType: "Product",
			ObjectID:   p.ID,
			Details: map[string]string{
				"quantity":  qty.String(),
				"old_stock": old.String(),
				"new_stock": p.CurrentStock.String(),
			},
		})
		res.Product = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ValuationItem is one product's stock valued at purchase price (USD).
type ValuationItem struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostPrice decimal.Decimal `json:"cost_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Valuation struct {
	Categories    []CategoryGroup `json:"categories"`
	GrandTotal    decimal.Decimal `json:"grand_total"`     // USD
	GrandTotalETB decimal.Decimal `json:"grand_total_etb"` // at the live rate
}

// Valuation groups stock on hand by category and values it at cost.
func (s *Service) Valuation(ctx context.Context) (*Valuation, error) {
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("category, name").Find(&products).Error; err != nil {
		return nil, err
	}

	var out Valuation
	index := make(map[string]int)
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		i, ok := index[cat]
		if !ok {
			out.Categories = append(out.Categories, CategoryGroup{CategoryName: cat})
			i = len(out.Categories) - 1
			index[cat] = i
		}
		total := currency.Round(p.CurrentStock.Mul(p.PurchasePrice))
		group := &out.Categories[i]
		group.Items = append(group.Items, ValuationItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.CurrentStock,
			CostPrice: p.PurchasePrice,
			TotalCost: total,
		})
		group.Subtotal = group.Subtotal.Add(total)
		out.GrandTotal = out.GrandTotal.Add(total)
	}
	out.GrandTotal = currency.Round(out.GrandTotal)
	out.GrandTotalETB = currency.Round(rates.ToETB(out.GrandTotal, currency.USD))
	return &out, nil
}
