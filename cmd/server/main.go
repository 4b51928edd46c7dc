package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ordovik/eshop/internal/config"
	"github.com/ordovik/eshop/internal/events"
	"github.com/ordovik/eshop/internal/hash"
	"github.com/ordovik/eshop/internal/httpserver"
	"github.com/ordovik/eshop/internal/middleware/accessgate"
	"github.com/ordovik/eshop/internal/models"
	"github.com/ordovik/eshop/internal/service"
	"github.com/ordovik/eshop/internal/tokens"
	"github.com/ordovik/eshop/pkg/db"
	"github.com/ordovik/eshop/pkg/logging"
	loggingmw "github.com/ordovik/eshop/pkg/middleware/logging"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	hasher := hash.Hasher{Cost: cfg.BcryptCost}
	authSvc := &service.AuthService{
		DB:      gdb,
		Hasher:  hasher,
		Access:  tokens.Issuer{Secret: cfg.JWTAccessSecret, TTL: cfg.AccessTokenTTL},
		Refresh: tokens.Issuer{Secret: cfg.JWTRefreshSecret, TTL: cfg.RefreshTokenTTL},
	}
	orderSvc := &service.OrderService{DB: gdb}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Gate:     &accessgate.Gate{AccessSecret: cfg.JWTAccessSecret},
		Auth:     &httpserver.AuthHandler{Svc: authSvc, Events: producer},
		Orders:   &httpserver.OrderHandler{Svc: orderSvc, Events: producer},
		Items:    &httpserver.OrderItemHandler{Svc: orderSvc, Events: producer},
		Products: &httpserver.ProductHandler{DB: gdb, Events: producer},
		Users:    &httpserver.UserHandler{DB: gdb},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
