package settings_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/settings"
	"go-pos-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *settings.Store {
	db := testutil.NewDB(t)
	log := testutil.NewLogger()
	return settings.NewStore(db, cache.New(nil), time.Minute, audit.NewTrail(log), log)
}

func TestRatesDefaultsWhenUnset(t *testing.T) {
	store := newStore(t)

	rates, err := store.Rates(context.Background())
	require.NoError(t, err)
	testutil.AssertDec(t, "8000", rates.USDToSOS)
	testutil.AssertDec(t, "100", rates.USDToETB)
}

func TestUpdateThenRead(t *testing.T) {
	db := testutil.NewDB(t)
	log := testutil.NewLogger()
	store := settings.NewStore(db, cache.New(nil), time.Minute, audit.NewTrail(log), log)
	ctx := context.Background()

	_, err := store.Update(ctx, currency.RateTable{USDToSOS: testutil.Dec("8500"), USDToETB: testutil.Dec("125.5")})
	require.NoError(t, err)
	_, err = store.Update(ctx, currency.RateTable{USDToSOS: testutil.Dec("8600"), USDToETB: testutil.Dec("130")})
	require.NoError(t, err)

	rates, err := store.Rates(ctx)
	require.NoError(t, err)
	testutil.AssertDec(t, "8600", rates.USDToSOS)
	testutil.AssertDec(t, "130", rates.USDToETB)

	var rows int64
	require.NoError(t, db.Model(&models.CurrencySettings{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "settings is a singleton")
	assert.Equal(t, int64(2), testutil.CountAudit(t, db, models.AuditCurrencyUpdated))
}

func TestUpdateRejectsNonPositiveRates(t *testing.T) {
	store := newStore(t)

	cases := []currency.RateTable{
		{USDToSOS: testutil.Dec("0"), USDToETB: testutil.Dec("100")},
		{USDToSOS: testutil.Dec("8000"), USDToETB: testutil.Dec("-1")},
	}
	for _, rates := range cases {
		_, err := store.Update(context.Background(), rates)
		assert.True(t, errors.Is(err, apperr.ErrValidationFailed))
	}
}
