// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	payAdapters "github.com/abdulbosit19980204/journal/internal/infra/adapters/payment"
	"github.com/abdulbosit19980204/journal/internal/infra/api"
	"github.com/abdulbosit19980204/journal/internal/infra/db/memory"
	pg "github.com/abdulbosit19980204/journal/internal/infra/db/postgres"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"
	red "github.com/abdulbosit19980204/journal/internal/infra/redis"
	"github.com/abdulbosit19980204/journal/internal/infra/sched"
	"github.com/abdulbosit19980204/journal/internal/infra/storage"
	"github.com/abdulbosit19980204/journal/internal/infra/telegram"
	"github.com/abdulbosit19980204/journal/internal/infra/worker"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/rs/zerolog"
)

var (
	version = "dev"
	commit  = "none"
)

type stores struct {
	users    repository.UserRepository
	wallet   repository.WalletTransactionRepository
	receipts repository.ReceiptRepository
	invoices repository.InvoiceRepository
	plans    repository.SubscriptionPlanRepository
	subs     repository.SubscriptionRepository
	history  repository.SubscriptionHistoryRepository
	tm       repository.TransactionManager
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, in-memory store allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting billing service")

	// ---- Storage ----
	var st stores
	switch cfg.Database.Driver {
	case "memory":
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("database.driver=memory is only allowed with -dev")
		}
		s := memory.NewStore()
		st = stores{
			users:    memory.NewUserRepo(s),
			wallet:   memory.NewWalletRepo(s),
			receipts: memory.NewReceiptRepo(s),
			invoices: memory.NewInvoiceRepo(s),
			plans:    memory.NewPlanRepo(s),
			subs:     memory.NewSubscriptionRepo(s),
			history:  memory.NewHistoryRepo(s),
			tm:       memory.NewTxManager(s),
		}
		logger.Warn().Msg("using in-memory store; data is lost on exit")
	default:
		if cfg.Database.Migrate {
			if err := pg.Migrate(cfg.Database.URL); err != nil {
				logger.Fatal().Err(err).Msg("migrations")
			}
		}
		pool, err := pg.NewPgxPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		go pg.ReportPoolStats(ctx, pool, 15*time.Second)
		st = stores{
			users:    pg.NewUserRepo(pool),
			wallet:   pg.NewWalletRepo(pool),
			receipts: pg.NewReceiptRepo(pool),
			invoices: pg.NewInvoiceRepo(pool),
			plans:    pg.NewPlanRepo(pool),
			subs:     pg.NewSubscriptionRepo(pool),
			history:  pg.NewHistoryRepo(pool),
			tm:       pg.NewTxManager(pool),
		}
	}

	// ---- Redis (optional) ----
	var (
		locker  red.Locker
		limiter api.Limiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
		st.plans = pg.NewPlanRepoCacheDecorator(st.plans, redisClient, cfg.Redis.TTL, logger)
	} else {
		logger.Warn().Msg("redis disabled: no plan cache, sweep locks or upload rate limits")
	}

	// ---- Gateways & notifications ----
	if cfg.Payment.Noop.Enabled && !cfg.Runtime.Dev {
		logger.Fatal().Msg("payment.noop must not be enabled outside -dev")
	}
	registry, err := payAdapters.NewRegistry(cfg.Payment, cfg.Billing.GatewayTimeout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateways")
	}
	for _, g := range registry.ListAvailable() {
		logger.Info().Str("provider", g.ID).Msg("payment gateway enabled")
	}

	tgNotifier, err := telegram.NewAdminNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}
	notifyPool := worker.NewPool(2, logger)
	notifyPool.Start(ctx)
	notifier := worker.NewAsyncNotifier(tgNotifier, notifyPool)

	files, err := storage.NewLocalReceiptStore(cfg.Billing.ReceiptDir, cfg.Billing.ReceiptMaxBytes, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("receipt storage")
	}

	// ---- Use cases ----
	currency := cfg.Billing.Currency
	userUC := usecase.NewUserUseCase(st.users, st.tm, logger)
	ledgerUC := usecase.NewLedgerUseCase(st.users, st.wallet, st.tm, logger)
	planUC := usecase.NewPlanUseCase(st.plans, logger)
	subUC := usecase.NewSubscriptionUseCase(st.users, st.plans, st.subs, st.history, st.invoices, ledgerUC, currency, st.tm, logger)
	paymentUC := usecase.NewPaymentUseCase(st.invoices, st.users, st.plans, ledgerUC, subUC, registry, notifier, currency, st.tm, logger)
	receiptUC := usecase.NewReceiptUseCase(st.receipts, st.users, ledgerUC, notifier, st.tm, logger)
	meteringUC := usecase.NewMeteringUseCase(st.users, st.plans, st.subs, ledgerUC, st.tm, logger)
	txUC := usecase.NewTransactionsUseCase(st.wallet, st.receipts, logger)
	statsUC := usecase.NewStatsUseCase(st.users, st.wallet, st.receipts, logger)

	// ---- HTTP ----
	srv := api.NewServer(api.Deps{
		Users:        userUC,
		Ledger:       ledgerUC,
		Receipts:     receiptUC,
		Subs:         subUC,
		Plans:        planUC,
		Payments:     paymentUC,
		Metering:     meteringUC,
		Transactions: txUC,
		Stats:        statsUC,
		Files:        files,
		Limiter:      limiter,
	}, api.Options{
		Port:             cfg.HTTP.Port,
		JWTSecret:        cfg.Auth.JWTSecret,
		Issuer:           cfg.Auth.Issuer,
		RequestTimeout:   cfg.HTTP.RequestTimeout,
		ReceiptMaxBytes:  cfg.Billing.ReceiptMaxBytes,
		ReceiptsPerHour:  cfg.Billing.ReceiptsPerHour,
		DefaultReturnURL: cfg.Billing.DefaultReturnURL,
	}, logger)

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("job", name).Msg("background job stopped")
			}
		}()
	}

	// ---- Background sweeps ----
	reconciler := sched.NewPaymentReconciler(paymentUC, locker, cfg.Billing.ReconcileInterval, cfg.Billing.ReconcileAfter, logger)
	expiry := sched.NewExpiryWorker(cfg.Billing.ExpiryInterval, subUC, locker, logger)
	run("reconcile_payments", reconciler.Run)
	run("expire_subscriptions", expiry.Run)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.ListenAndServe() }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logger.Info().Str("signal", sig.String()).Msg("shutdown requested")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdown(srv, cfg.HTTP.ShutdownTimeout, logger)
	cancel()
	wg.Wait()
	notifyPool.Stop()
	logger.Info().Msg("bye")
}

func shutdown(srv *api.Server, timeout time.Duration, logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
