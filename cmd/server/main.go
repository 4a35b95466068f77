package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/app"
	"github.com/tinoosan/treasury/internal/config"
	"github.com/tinoosan/treasury/internal/httpapi"
	"github.com/tinoosan/treasury/internal/ledger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()
	if a.Account.ID != uuid.Nil {
		logger.Info("DEV seed ("+a.Backend+")", "account_id", a.Account.ID.String(), "account_code", a.Account.Code)
		printDevSeedBanner(a.Account)
	}

	handler := httpapi.New(httpapi.Deps{
		Movements:   a.Movements,
		Closures:    a.Closures,
		Importer:    a.Importer,
		Jobs:        a.Jobs,
		Reader:      a.Reader,
		Ready:       a.Ready,
		AccountCode: cfg.AccountCode,
		ImportDir:   cfg.ImportDir,
		Currency:    "COP",
		Auth:        httpapi.AuthConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience},
		Logger:      logger,
	}).Handler()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("treasury service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
}

// printDevSeedBanner prints the seeded account for easy copy/paste of IDs.
func printDevSeedBanner(acc ledger.Account) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("account_id:   %s\n", acc.ID.String())
	fmt.Printf("account_code: %s\n", acc.Code)
	fmt.Println("==================================================")
}
