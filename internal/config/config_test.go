package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.RateCacheTTL)
	assert.Equal(t, "SO", cfg.PhoneRegion)
	assert.False(t, cfg.AllowRegistration)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.RedisAddress)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CORS_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("ALLOW_REGISTRATION", "true")
	v.Set("PHONE_REGION", "et")

	cfg := fromViper(v)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.AllowRegistration)
	assert.Equal(t, "ET", cfg.PhoneRegion)
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("nonsense").GetLevel())
}

func TestLogError(t *testing.T) {
	logger := NewLogger("info")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	LogError(logger, "ledger", "CreateSale", "decrement stock", map[string]any{"product_id": 3}, errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"module":"ledger"`)
	assert.Contains(t, out, `"funcName":"CreateSale"`)
	assert.Contains(t, out, `"msg":"boom"`)
	assert.Contains(t, out, `"product_id":3`)
}
