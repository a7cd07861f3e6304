package profit

import (
	"testing"

	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(id uint, purchase, selling, unit, qty string) models.SaleItem {
	it := models.SaleItem{
		ID:        id,
		ProductID: id,
		Product:   models.Product{ID: id, Name: "p", PurchasePrice: d(purchase), SellingPrice: d(selling)},
		Quantity:  d(qty),
		UnitPrice: d(unit),
	}
	it.Recalculate()
	return it
}

func TestAllocateOverpaymentProportional(t *testing.T) {
	sale := &models.Sale{
		Currency:    currency.USD,
		TotalAmount: d("100"),
		AmountPaid:  d("110"),
		Items: []models.SaleItem{
			item(1, "50", "55", "60", "1"),
			item(2, "30", "35", "40", "1"),
		},
	}

	got := AllocateOverpayment(sale, currency.DefaultRates())
	require.Len(t, got, 2)
	assert.True(t, d("6").Equal(got[0].AllocatedOverpayment))
	assert.True(t, d("4").Equal(got[1].AllocatedOverpayment))
	assert.True(t, d("10").Equal(got[0].Profit))
	assert.True(t, d("16").Equal(got[0].FinalProfit))
	assert.True(t, d("14").Equal(got[1].FinalProfit))
	assert.True(t, d("5").Equal(got[0].Surplus))
}

func TestAllocateOverpaymentNoneWhenUnderpaidOrZeroTotal(t *testing.T) {
	underpaid := &models.Sale{
		Currency:    currency.USD,
		TotalAmount: d("100"),
		AmountPaid:  d("90"),
		Items:       []models.SaleItem{item(1, "50", "55", "100", "1")},
	}
	got := AllocateOverpayment(underpaid, currency.DefaultRates())
	assert.True(t, got[0].AllocatedOverpayment.IsZero())
	assert.True(t, got[0].FinalProfit.Equal(got[0].Profit))

	zero := &models.Sale{
		Currency:    currency.USD,
		TotalAmount: d("0"),
		AmountPaid:  d("5"),
		Items:       []models.SaleItem{item(1, "0", "0", "0", "1")},
	}
	got = AllocateOverpayment(zero, currency.DefaultRates())
	assert.True(t, got[0].AllocatedOverpayment.IsZero())
}

func TestETBUsesSnapshotAndSOSUsesLiveRate(t *testing.T) {
	live := currency.RateTable{USDToSOS: d("9000"), USDToETB: d("150")}
	snapshot := d("120")

	etb := &models.Sale{
		Currency:           currency.ETB,
		TotalAmount:        d("200"),
		AmountPaid:         d("200"),
		ExchangeRateAtSale: &snapshot,
		Items:              []models.SaleItem{item(1, "1", "1.5", "200", "1")},
	}
	got := AllocateOverpayment(etb, live)
	assert.True(t, d("120").Equal(got[0].PurchasePrice))
	assert.True(t, d("80").Equal(got[0].Profit))

	sos := &models.Sale{
		Currency:    currency.SOS,
		TotalAmount: d("12000"),
		AmountPaid:  d("12000"),
		Items:       []models.SaleItem{item(1, "1", "1.5", "12000", "1")},
	}
	got = AllocateOverpayment(sos, live)
	assert.True(t, d("9000").Equal(got[0].PurchasePrice))
	assert.True(t, d("3000").Equal(got[0].Profit))
}

func TestSaleProfitScalesByPaidFraction(t *testing.T) {
	sale := &models.Sale{
		Currency:    currency.USD,
		TotalAmount: d("24"),
		AmountPaid:  d("20"),
		Items:       []models.SaleItem{item(1, "5", "8", "8", "3")},
	}
	sp := SaleProfit(sale, currency.DefaultRates())
	assert.True(t, d("9").Equal(sp.Expected))
	assert.True(t, d("7.5").Equal(sp.Actual))
	assert.True(t, sp.Overpayment.IsZero())
	assert.True(t, d("900").Equal(sp.ExpectedETB))
	assert.True(t, d("750").Equal(sp.ActualETB))
	assert.True(t, d("2400").Equal(sp.RevenueETB))
}

func TestSaleProfitZeroTotal(t *testing.T) {
	sale := &models.Sale{Currency: currency.SOS, TotalAmount: d("0"), AmountPaid: d("0")}
	sp := SaleProfit(sale, currency.DefaultRates())
	assert.True(t, sp.Expected.IsZero())
	assert.True(t, sp.Actual.IsZero())
}

func TestAllocateOverpaymentSharesAddUpToOverpayment(t *testing.T) {
	sale := &models.Sale{
		Currency:    currency.USD,
		TotalAmount: d("30"),
		AmountPaid:  d("40"),
		Items: []models.SaleItem{
			item(1, "5", "8", "10", "1"),
			item(2, "5", "8", "10", "1"),
			item(3, "5", "8", "10", "1"),
		},
	}

	got := AllocateOverpayment(sale, currency.DefaultRates())
	require.Len(t, got, 3)
	assert.True(t, d("3.33").Equal(got[0].AllocatedOverpayment))
	assert.True(t, d("3.33").Equal(got[1].AllocatedOverpayment))
	assert.True(t, d("3.34").Equal(got[2].AllocatedOverpayment))

	sum := decimal.Zero
	for _, ip := range got {
		sum = sum.Add(ip.AllocatedOverpayment)
	}
	assert.True(t, sale.Overpayment().Equal(sum), "shares sum to %s", sum)
}

func TestSaleProfitRevaluesETBSaleAtLiveRate(t *testing.T) {
	snapshot := d("100")
	sale := &models.Sale{
		Currency:           currency.ETB,
		TotalAmount:        d("800"),
		AmountPaid:         d("900"),
		ExchangeRateAtSale: &snapshot,
		Items:              []models.SaleItem{item(1, "5", "8", "800", "1")},
	}
	live := currency.RateTable{USDToSOS: d("8000"), USDToETB: d("120")}

	sp := SaleProfit(sale, live)
	assert.True(t, d("300").Equal(sp.Expected))
	assert.True(t, d("300").Equal(sp.Actual))
	assert.True(t, d("100").Equal(sp.Overpayment))
	assert.True(t, d("960").Equal(sp.RevenueETB))
	assert.True(t, d("1080").Equal(sp.CollectedETB))
	assert.True(t, d("360").Equal(sp.ExpectedETB))
	assert.True(t, d("360").Equal(sp.ActualETB))
	assert.True(t, d("120").Equal(sp.OverpaymentETB))
}
