package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/estorehq/estore/internal/accounts"
	"github.com/estorehq/estore/internal/auth"
	"github.com/estorehq/estore/internal/catalog"
	"github.com/estorehq/estore/internal/config"
	"github.com/estorehq/estore/internal/httpx"
	"github.com/estorehq/estore/internal/orders"
	"github.com/estorehq/estore/internal/pkg/cache"
	"github.com/estorehq/estore/internal/pkg/telemetry"
	"github.com/estorehq/estore/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingOn {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName)
		if err != nil {
			slog.Error("failed to initialise tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var productCache cache.Cache
	if cfg.RedisAddr != "" {
		productCache = cache.NewRedisCache(cfg.RedisAddr, "estore")
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	accountsSvc := accounts.NewService(db.Users(), tokens)
	catalogSvc := catalog.NewService(db.Products(), db.Reviews(), productCache)
	ordersSvc := orders.NewService(catalogSvc, db.Orders())

	handler := httpx.NewHandler(accountsSvc, catalogSvc, ordersSvc)
	router := httpx.NewRouter(handler, auth.NewMiddleware(tokens))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, "estore-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("estore API running", "addr", srv.Addr, "db", cfg.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}
}
