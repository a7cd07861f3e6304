package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is everything the server reads from the environment (or .env).
type Config struct {
	Port              string
	BaseURL           string
	GinMode           string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	JWTSecret         string
	TokenTTL          time.Duration
	AllowRegistration bool
	RedisAddress      string
	RedisPassword     string
	RateCacheTTL      time.Duration
	GeminiAPIKey      string
	CORSOrigins       []string
	LogLevel          string
	PhoneRegion       string
	LowStockLimit     int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ALLOW_REGISTRATION", false)
	v.SetDefault("RATE_CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PHONE_REGION", "SO")
	v.SetDefault("LOW_STOCK_LIMIT", 10)
}

// Load reads .env (if present) and the process environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:              v.GetString("PORT"),
		BaseURL:           v.GetString("BASE_URL"),
		GinMode:           v.GetString("GIN_MODE"),
		DBDSN:             v.GetString("DB_DSN"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		AllowRegistration: v.GetBool("ALLOW_REGISTRATION"),
		RedisAddress:      v.GetString("REDIS_ADDRESS"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RateCacheTTL:      v.GetDuration("RATE_CACHE_TTL"),
		GeminiAPIKey:      v.GetString("GEMINI_API_KEY"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		LogLevel:          v.GetString("LOG_LEVEL"),
		PhoneRegion:       strings.ToUpper(v.GetString("PHONE_REGION")),
		LowStockLimit:     v.GetInt("LOW_STOCK_LIMIT"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
