package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/api"
	"github.com/RoyceAzure/lab/storefront/internal/api/handler"
	"github.com/RoyceAzure/lab/storefront/internal/api/router"
	"github.com/RoyceAzure/lab/storefront/internal/appcontext"
	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = ".env"
	}

	cf, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}
	l := logger.New(cf.LogLevel, cf.LogPretty)

	app, err := appcontext.NewApplicationContext(cf, l)
	if err != nil {
		l.Fatal().Err(err).Msg("setup application failed")
	}

	// 初始化 handler
	server := api.NewServer(
		handler.NewOrderHandler(app.OrderService),
		handler.NewProductHandler(app.ProductService),
		handler.NewUserHandler(),
		handler.NewHealthHandler(app.HealthChecks()),
	)

	// 設置路由
	r := router.SetupRouter(server, app.IdentityService, router.Options{
		AllowedOrigins:   cf.CorsAllowedOrigins,
		OrderRateLimiter: app.OrderRateLimiter,
	}, l)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cf.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 設置訊號監聽
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutDownCompleted := make(chan struct{}, 1)
	go func() {
		<-sigChan
		l.Info().Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Server shutdown error")
		}
		if err := app.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("Application shutdown error")
		}
		shutDownCompleted <- struct{}{}
	}()

	l.Info().Str("addr", srv.Addr).Msg("Server starting")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.Fatal().Err(err).Msg("server stopped")
	}
	<-shutDownCompleted
	l.Info().Msg("closed completed")
}
