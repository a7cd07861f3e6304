package main

import (
	"context"
	"os"
	"time"

	"go-pos-ledger/internal/ai"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/auth"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/catalog"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/customer"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/debt"
	"go-pos-ledger/internal/handlers"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/profit"
	"go-pos-ledger/internal/settings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.LogLevel)

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisCache, err := cache.Connect(ctx, cfg.RedisAddress, cfg.RedisPassword, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.WithError(err).Fatal("JWT_SECRET is not usable")
	}

	trail := audit.NewTrail(log)
	rates := settings.NewStore(db, redisCache, cfg.RateCacheTTL, trail, log)
	products := catalog.NewService(db, rates, trail)
	customers := customer.NewService(db, trail, cfg.PhoneRegion)
	reconciler := profit.NewReconciler(db, rates)

	h := &handlers.Handler{
		DB:                db,
		Issuer:            issuer,
		Catalog:           products,
		Customers:         customers,
		Ledger:            ledger.New(db, rates, trail),
		Debts:             debt.NewService(db, trail, redisCache),
		Settings:          rates,
		Reconciler:        reconciler,
		Log:               log,
		AllowRegistration: cfg.AllowRegistration,
		LowStockLimit:     cfg.LowStockLimit,
	}
	if cfg.GeminiAPIKey != "" {
		h.Assistant = ai.NewAgent(cfg.GeminiAPIKey, products, customers, reconciler, log)
	} else {
		log.Info("GEMINI_API_KEY not set, assistant disabled")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	// --- The Bridge to the React frontend ---
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.RegisterRoutes(r)

	// --- DEPLOYMENT: Serve React Frontend ---
	if _, err := os.Stat("./web/index.html"); err == nil {
		r.Static("/assets", "./web/assets")
		// SPA Catch-All: a refresh on "/dashboard" must still load the app.
		r.NoRoute(func(c *gin.Context) {
			c.File("./web/index.html")
		})
	}

	log.WithField("base_url", cfg.BaseURL).Info("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server failed to start")
	}
}
