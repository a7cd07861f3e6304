// Package profit computes per-item and per-sale profit, spreads
// overpayments over sale lines and reconciles everything into ETB.
package profit

import (
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// ItemProfit is one sale line with its cost, floor and profit, all in
// the sale's currency.
type ItemProfit struct {
	SaleID      uint          `json:"sale_id"`
	ItemID      uint          `json:"item_id"`
	ProductID   uint          `json:"product_id"`
	ProductName string        `json:"product_name"`
	Currency    currency.Code `json:"currency"`

	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"` // per unit, converted
	FloorPrice    decimal.Decimal `json:"floor_price"`    // per unit, converted

	Profit               decimal.Decimal `json:"profit"`
	Surplus              decimal.Decimal `json:"surplus"` // over the floor price
	AllocatedOverpayment decimal.Decimal `json:"allocated_overpayment"`
	FinalProfit          decimal.Decimal `json:"final_profit"`
}

// AllocateOverpayment spreads a sale's overpayment over its items in
// proportion to each item's share of the total. The rounding remainder
// goes to the last priced line so the shares add up to the overpayment.
// Items must have their Product loaded. ETB sales are costed at their
// snapshot rate, SOS and USD at the live table.
func AllocateOverpayment(sale *models.Sale, live currency.RateTable) []ItemProfit {
	rates := sale.Rates(live)
	over := sale.Overpayment()
	spread := sale.TotalAmount.IsPositive() && over.IsPositive()

	last := -1
	for i, it := range sale.Items {
		if it.TotalPrice.IsPositive() {
			last = i
		}
	}
	allocated := decimal.Zero

	out := make([]ItemProfit, 0, len(sale.Items))
	for i, it := range sale.Items {
		purchase := currency.Round(rates.FromUSD(it.Product.PurchasePrice, sale.Currency))
		floor := currency.Round(rates.FromUSD(it.Product.SellingPrice, sale.Currency))

		ip := ItemProfit{
			SaleID:        sale.ID,
			ItemID:        it.ID,
			ProductID:     it.ProductID,
			ProductName:   it.Product.Name,
			Currency:      sale.Currency,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TotalPrice:    it.TotalPrice,
			PurchasePrice: purchase,
			FloorPrice:    floor,
			Profit:        currency.Round(it.UnitPrice.Sub(purchase).Mul(it.Quantity)),
			Surplus:       currency.Round(it.UnitPrice.Sub(floor).Mul(it.Quantity)),
		}
		switch {
		case !spread:
		case i == last:
			ip.AllocatedOverpayment = over.Sub(allocated)
		default:
			ip.AllocatedOverpayment = currency.Round(it.TotalPrice.Div(sale.TotalAmount).Mul(over))
			allocated = allocated.Add(ip.AllocatedOverpayment)
		}
		ip.FinalProfit = currency.Round(ip.Profit.Add(ip.AllocatedOverpayment))
		out = append(out, ip)
	}
	return out
}
