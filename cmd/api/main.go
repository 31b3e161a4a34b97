package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/handler"
	"github.com/gbese/gbese-backend/internal/logging"
	"github.com/gbese/gbese-backend/internal/middleware"
	"github.com/gbese/gbese-backend/internal/notify"
	"github.com/gbese/gbese-backend/internal/repository"
	"github.com/gbese/gbese-backend/internal/service"
	"github.com/gbese/gbese-backend/internal/service/credit"
	"github.com/gbese/gbese-backend/internal/service/debt"
	"github.com/gbese/gbese-backend/internal/service/dtp"
	"github.com/gbese/gbese-backend/internal/service/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("gbese-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	mux := buildMux(db, cfg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Recovery(middleware.Tracing(middleware.Logging(mux))),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func buildMux(db *sql.DB, cfg *config.Config) *http.ServeMux {
	users := repository.NewUserRepository(db)
	accounts := repository.NewAccountRepository(db)
	transactions := repository.NewTransactionRepository(db)
	providers := repository.NewProviderRepository(db)
	applications := repository.NewApplicationRepository(db)
	obligations := repository.NewObligationRepository(db)
	requests := repository.NewTransferRequestRepository(db)
	notifications := repository.NewNotificationRepository(db)
	idempotency := repository.NewIdempotencyRepository(db)

	notifier := notify.NewService(notifications)

	accountSvc := service.NewAccountService(users, accounts, notifications, notifier, db, cfg)
	transferSvc := transfer.NewService(accounts, transactions, users, notifier, db, cfg)
	creditSvc := credit.NewService(providers, applications, obligations, accounts, transactions, notifier, db, cfg)
	debtSvc := debt.NewService(obligations, accounts, transactions, notifier, db)
	dtpSvc := dtp.NewService(requests, obligations, accounts, users, transactions, notifier, db, cfg)

	authHandler := handler.NewAuthHandler(accountSvc, users, cfg.JWTSecret, cfg.JWTExpiry())
	accountHandler := handler.NewAccountHandler(accountSvc)
	transferHandler := handler.NewTransferHandler(transferSvc)
	creditHandler := handler.NewCreditHandler(creditSvc)
	debtHandler := handler.NewDebtHandler(debtSvc)
	dtpHandler := handler.NewDTPHandler(dtpSvc)
	healthHandler := handler.NewHealthHandler(db)

	authed := middleware.Auth(cfg.JWTSecret)
	idempotent := func(h http.Handler) http.Handler {
		return authed(middleware.Idempotency(idempotency)(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("GET /api/v1/users/me", authed(http.HandlerFunc(accountHandler.Me)))
	mux.Handle("GET /api/v1/account", authed(http.HandlerFunc(accountHandler.Get)))
	mux.Handle("POST /api/v1/account/credit-limit", authed(http.HandlerFunc(accountHandler.IncreaseCreditLimit)))
	mux.Handle("POST /api/v1/account/daily-limit", authed(http.HandlerFunc(accountHandler.SetDailyLimit)))
	mux.Handle("GET /api/v1/notifications", authed(http.HandlerFunc(accountHandler.Notifications)))

	mux.Handle("POST /api/v1/transfers", idempotent(http.HandlerFunc(transferHandler.Create)))
	mux.Handle("POST /api/v1/deposits", idempotent(http.HandlerFunc(transferHandler.Deposit)))
	mux.Handle("POST /api/v1/withdrawals", idempotent(http.HandlerFunc(transferHandler.Withdraw)))
	mux.Handle("POST /api/v1/deposits/settle", authed(http.HandlerFunc(transferHandler.SettleDeposit)))
	mux.Handle("POST /api/v1/withdrawals/settle", authed(http.HandlerFunc(transferHandler.SettleWithdrawal)))
	mux.Handle("GET /api/v1/transactions", authed(http.HandlerFunc(transferHandler.List)))
	mux.Handle("GET /api/v1/transactions/{reference}", authed(http.HandlerFunc(transferHandler.Get)))

	mux.Handle("GET /api/v1/credit/providers", authed(http.HandlerFunc(creditHandler.ListProviders)))
	mux.Handle("GET /api/v1/credit/providers/{id}", authed(http.HandlerFunc(creditHandler.GetProvider)))
	mux.Handle("POST /api/v1/credit/applications", idempotent(http.HandlerFunc(creditHandler.Apply)))
	mux.Handle("GET /api/v1/credit/applications/{id}", authed(http.HandlerFunc(creditHandler.GetApplication)))

	mux.Handle("GET /api/v1/debts", authed(http.HandlerFunc(debtHandler.List)))
	mux.Handle("GET /api/v1/debts/{id}", authed(http.HandlerFunc(debtHandler.Get)))
	mux.Handle("POST /api/v1/debts/{id}/repay", idempotent(http.HandlerFunc(debtHandler.Repay)))
	mux.Handle("GET /api/v1/debts/{id}/payments", authed(http.HandlerFunc(debtHandler.Payments)))
	mux.Handle("POST /api/v1/debts/{id}/schedules", authed(http.HandlerFunc(debtHandler.CreateSchedule)))
	mux.Handle("GET /api/v1/debts/{id}/schedules", authed(http.HandlerFunc(debtHandler.ListSchedules)))

	mux.Handle("POST /api/v1/debt-transfers", idempotent(http.HandlerFunc(dtpHandler.Initiate)))
	mux.Handle("POST /api/v1/debt-transfers/{id}/respond", idempotent(http.HandlerFunc(dtpHandler.Respond)))
	mux.Handle("DELETE /api/v1/debt-transfers/{id}", authed(http.HandlerFunc(dtpHandler.Cancel)))
	mux.Handle("GET /api/v1/debt-transfers/{id}", authed(http.HandlerFunc(dtpHandler.Get)))
	mux.Handle("GET /api/v1/debt-transfers/incoming", authed(http.HandlerFunc(dtpHandler.ListIncoming)))
	mux.Handle("GET /api/v1/debt-transfers/outgoing", authed(http.HandlerFunc(dtpHandler.ListOutgoing)))
	mux.Handle("GET /api/v1/debt-transfers/matches", authed(http.HandlerFunc(dtpHandler.Matches)))

	return mux
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connectDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeS) * time.Second)

	for i := range 30 {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
