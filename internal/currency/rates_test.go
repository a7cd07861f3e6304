package currency

import (
	"errors"
	"testing"

	"go-pos-ledger/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    Code
		wantErr bool
	}{
		{"USD", USD, false},
		{" sos ", SOS, false},
		{"etb", ETB, false},
		{"EUR", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperr.ErrValidationFailed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToETB(t *testing.T) {
	rates := RateTable{USDToSOS: d("8000"), USDToETB: d("100")}

	assert.True(t, d("500").Equal(rates.ToETB(d("5"), USD)))
	assert.True(t, d("50").Equal(rates.ToETB(d("4000"), SOS)))
	assert.True(t, d("42.5").Equal(rates.ToETB(d("42.5"), ETB)))
}

func TestZeroRateDegradesToZero(t *testing.T) {
	rates := RateTable{USDToSOS: decimal.Zero, USDToETB: decimal.Zero}

	assert.True(t, rates.ToETB(d("4000"), SOS).IsZero())
	assert.True(t, rates.ToUSD(d("4000"), SOS).IsZero())
	assert.True(t, rates.ToUSD(d("100"), ETB).IsZero())
}

func TestFromUSDAndBack(t *testing.T) {
	rates := DefaultRates()

	assert.True(t, d("40000").Equal(rates.FromUSD(d("5"), SOS)))
	assert.True(t, d("500").Equal(rates.FromUSD(d("5"), ETB)))
	assert.True(t, d("5").Equal(rates.FromUSD(d("5"), USD)))
	assert.True(t, d("5").Equal(rates.ToUSD(d("40000"), SOS)))
}

func TestWithETBSnapshot(t *testing.T) {
	live := DefaultRates()
	snap := d("120")

	assert.True(t, d("120").Equal(live.WithETBSnapshot(&snap).USDToETB))
	assert.True(t, d("100").Equal(live.USDToETB), "live table is not mutated")
	assert.True(t, d("100").Equal(live.WithETBSnapshot(nil).USDToETB))

	zero := decimal.Zero
	assert.True(t, d("100").Equal(live.WithETBSnapshot(&zero).USDToETB))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, "2.35", Round(d("2.345")).StringFixed(2))
	assert.Equal(t, "2.34", Round(d("2.3449")).StringFixed(2))
	assert.Equal(t, "0.01", Round(d("0.005")).StringFixed(2))
}

func TestDebtAndOverpayment(t *testing.T) {
	assert.True(t, d("4").Equal(DebtFor(d("24"), d("20"))))
	assert.True(t, DebtFor(d("24"), d("30")).IsZero())
	assert.True(t, d("6").Equal(OverpaymentFor(d("24"), d("30"))))
	assert.True(t, OverpaymentFor(d("24"), d("20")).IsZero())
}
