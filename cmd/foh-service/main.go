package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"foh-coordinator/internal/checkout"
	"foh-coordinator/internal/checkout/checkout_api"
	"foh-coordinator/internal/config"
	"foh-coordinator/internal/database"
	"foh-coordinator/internal/inventory"
	invdb "foh-coordinator/internal/inventory/db"
	"foh-coordinator/internal/inventory/inventory_api"
	"foh-coordinator/internal/kitchen"
	"foh-coordinator/internal/kitchen/kitchen_api"
	"foh-coordinator/internal/logger"
	loyaltydb "foh-coordinator/internal/loyalty/db"
	"foh-coordinator/internal/order"
	orderdb "foh-coordinator/internal/order/db"
	"foh-coordinator/internal/order/order_api"
	"foh-coordinator/internal/redislock"
	"foh-coordinator/internal/session"
	sessiondb "foh-coordinator/internal/session/db"
	"foh-coordinator/internal/session/session_api"
	"foh-coordinator/internal/table"
	tabledb "foh-coordinator/internal/table/db"
	"foh-coordinator/internal/table/table_api"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if err := database.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	if err := database.Seed(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Seed failed: %v", err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	var lock *redislock.Lock
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The coordinator stays correct without Redis; the fast-path
		// double-tap guard is simply disabled.
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable, fast-path locks disabled: %v", err))
	} else {
		lock = redislock.New(redisClient, 30*time.Second)
	}

	// --- Services ---
	orderStore := &orderdb.DB{Bun: bunDB}
	tableStore := &tabledb.DB{Bun: bunDB}
	sessionStore := &sessiondb.DB{Bun: bunDB}
	loyaltyStore := &loyaltydb.DB{Bun: bunDB}
	inventoryStore := &invdb.DB{Bun: bunDB}

	sessionSvc := session.NewService(sessionStore, cfg.Session.TTL, cfg.Session.SelfOrderBaseURL, log)

	orderSvc := order.NewService(orderStore, nil, cfg.Order.CodePrefix, orderdb.IsDuplicate, log)
	tableSvc := table.NewService(tableStore, orderSvc, sessionSvc, lock, log)
	orderSvc.Tables = tableSvc

	kitchenSvc := kitchen.NewService(orderStore, log)
	checkoutSvc := checkout.NewService(orderStore, loyaltyStore, tableSvc, sessionSvc, lock, log)
	inventorySvc := inventory.NewService(inventoryStore, log)

	// --- Handlers ---
	tableHandler := table_api.NewHandler(tableSvc, log)
	orderHandler := order_api.NewHandler(orderSvc, log)
	kitchenHandler := kitchen_api.NewHandler(kitchenSvc, log)
	checkoutHandler := checkout_api.NewHandler(checkoutSvc, log)
	sessionHandler := session_api.NewHandler(sessionSvc, log)
	inventoryHandler := inventory_api.NewHandler(inventorySvc, log)

	// --- Router ---
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tables", tableHandler.ListTables)
		r.Post("/tables/{tableID}/open", tableHandler.OpenTable)
		r.Post("/takeaway", tableHandler.StartTakeaway)

		r.Get("/kitchen/orders", kitchenHandler.Snapshot)

		r.Get("/orders/{orderID}", orderHandler.GetOrder)
		r.Post("/orders/{orderID}/lines", orderHandler.AddLine)
		r.Post("/orders/{orderID}/cancel", orderHandler.CancelOrder)
		r.Post("/orders/{orderID}/settle", checkoutHandler.Settle)
		r.Post("/lines/{lineID}/advance", orderHandler.AdvanceLine)

		r.Get("/sessions/{token}", sessionHandler.Validate)
		r.Get("/sessions/{token}/qr", sessionHandler.QR)

		r.Post("/inventory/{ingredientID}/restock", inventoryHandler.Restock)
		r.Post("/inventory/{ingredientID}/consume", inventoryHandler.Consume)
		r.Post("/inventory/{ingredientID}/adjust", inventoryHandler.Adjust)
		r.Get("/inventory/low-stock", inventoryHandler.LowStock)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Front-of-house coordinator running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "Shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	log.Info("SERVER", "Server exited gracefully")
}
