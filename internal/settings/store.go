// Package settings persists the operator-set currency rates.
package settings

import (
	"context"
	"errors"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const ratesCacheKey = "settings:currency_rates"

type Store struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
	trail *audit.Trail
	log   *logrus.Logger
}

func NewStore(db *gorm.DB, c *cache.Cache, ttl time.Duration, trail *audit.Trail, log *logrus.Logger) *Store {
	return &Store{db: db, cache: c, ttl: ttl, trail: trail, log: log}
}

// Rates returns the current table: cache, then the settings row, then
// the defaults when nothing was ever saved.
func (s *Store) Rates(ctx context.Context) (currency.RateTable, error) {
	var cached currency.RateTable
	found, err := s.cache.GetObject(ctx, ratesCacheKey, &cached)
	if err != nil {
		config.LogError(s.log, "settings", "Rates", "read rate cache", nil, err)
	} else if found {
		return cached, nil
	}

	var row models.CurrencySettings
	err = s.db.WithContext(ctx).Order("id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return currency.DefaultRates(), nil
	}
	if err != nil {
		return currency.RateTable{}, err
	}

	table := row.Table()
	if err := s.cache.SetObject(ctx, ratesCacheKey, table, s.ttl); err != nil {
		config.LogError(s.log, "settings", "Rates", "write rate cache", nil, err)
	}
	return table, nil
}

// Update replaces both rates. Each must be strictly positive.
func (s *Store) Update(ctx context.Context, rates currency.RateTable) (currency.RateTable, error) {
	if !rates.USDToSOS.IsPositive() || !rates.USDToETB.IsPositive() {
		return currency.RateTable{}, apperr.Invalid("exchange rates must be greater than zero")
	}
	actor := audit.ActorFrom(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CurrencySettings
		err := tx.Order("id").First(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		old := currency.DefaultRates()
		if row.ID != 0 {
			old = row.Table()
		}

		row.USDToSOSRate = rates.USDToSOS
		row.USDToETBRate = rates.USDToETB
		row.UpdatedBy = actor.UserPtr()
		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditCurrencyUpdated,
			ObjectType: "CurrencySettings",
			ObjectID:   row.ID,
			Details: map[string]string{
				"old_usd_to_sos": old.USDToSOS.String(),
				"old_usd_to_etb": old.USDToETB.String(),
				"new_usd_to_sos": rates.USDToSOS.String(),
				"new_usd_to_etb": rates.USDToETB.String(),
			},
		})
		return nil
	})
	if err != nil {
		return currency.RateTable{}, err
	}

	if err := s.cache.Remove(ctx, ratesCacheKey); err != nil {
		config.LogError(s.log, "settings", "Update", "invalidate rate cache", nil, err)
	}
	return rates, nil
}
