package currency

import "github.com/shopspring/decimal"

// Fallback rates used when no settings row has been saved yet.
var (
	DefaultUSDToSOS = decimal.NewFromInt(8000)
	DefaultUSDToETB = decimal.NewFromInt(100)
)

// RateTable holds the operator-set USD cross rates.
// A zero rate degrades conversions through it to zero instead of failing.
type RateTable struct {
	USDToSOS decimal.Decimal `json:"usd_to_sos_rate"`
	USDToETB decimal.Decimal `json:"usd_to_etb_rate"`
}

func DefaultRates() RateTable {
	return RateTable{USDToSOS: DefaultUSDToSOS, USDToETB: DefaultUSDToETB}
}

// WithETBSnapshot returns a copy whose ETB leg uses the rate captured on
// an ETB sale. A nil or non-positive snapshot leaves the live rate.
func (t RateTable) WithETBSnapshot(rate *decimal.Decimal) RateTable {
	if rate != nil && rate.IsPositive() {
		t.USDToETB = *rate
	}
	return t
}

// FromUSD converts a USD amount into code. Not rounded.
func (t RateTable) FromUSD(amount decimal.Decimal, code Code) decimal.Decimal {
	switch code {
	case SOS:
		return amount.Mul(t.USDToSOS)
	case ETB:
		return amount.Mul(t.USDToETB)
	default:
		return amount
	}
}

// ToUSD converts an amount in code into USD. Not rounded.
func (t RateTable) ToUSD(amount decimal.Decimal, code Code) decimal.Decimal {
	switch code {
	case SOS:
		return safeDiv(amount, t.USDToSOS)
	case ETB:
		return safeDiv(amount, t.USDToETB)
	default:
		return amount
	}
}

// ToETB converts an amount in code into ETB, the reporting currency. Not rounded.
func (t RateTable) ToETB(amount decimal.Decimal, code Code) decimal.Decimal {
	switch code {
	case USD:
		return amount.Mul(t.USDToETB)
	case SOS:
		return safeDiv(amount, t.USDToSOS).Mul(t.USDToETB)
	default:
		return amount
	}
}

func safeDiv(amount, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(rate)
}
