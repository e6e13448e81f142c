package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jongan69/coinlocker/internal/bot"
	"github.com/jongan69/coinlocker/internal/config"
	"github.com/jongan69/coinlocker/internal/custody"
	"github.com/jongan69/coinlocker/internal/database"
	"github.com/jongan69/coinlocker/internal/kraken"
	"github.com/jongan69/coinlocker/internal/middleware"
	"github.com/jongan69/coinlocker/internal/poller"
	"github.com/jongan69/coinlocker/internal/service"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	exchange := kraken.NewClient(cfg.Kraken.APIKey, cfg.Kraken.APISecret, cfg.Kraken.BaseURL, cfg.Kraken.Timeout)
	cust := custody.NewClient(cfg.Custody.BaseURL, cfg.Custody.Timeout)
	deposits := service.NewDepositService(db, exchange)

	b, err := bot.New(cfg.Telegram.Token, db, deposits, cust)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := setupRouter(cfg, exchange)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Health server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	go func() {
		if err := poller.New(db, exchange, cfg.Poller.Interval).Run(ctx); err != nil {
			log.Printf("poller stopped: %v", err)
		}
	}()

	go func() {
		if err := b.Run(ctx); err != nil {
			log.Printf("bot stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func setupRouter(cfg *config.Config, exchange *kraken.Client) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())

	rateLimiter := middleware.NewIPRateLimiter(cfg.RateLimit)
	router.Use(rateLimiter.RateLimit())

	started := time.Now()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.GET("/api/status", func(c *gin.Context) {
		price, err := exchange.AssetPrice(c.Request.Context(), "XBT")
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
				"uptime": time.Since(started).String(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"uptime":        time.Since(started).String(),
			"btc_usd_price": price,
		})
	})

	return router
}
