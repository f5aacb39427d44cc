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

	"github.com/baharkarakas/provider-payouts/internal/api"
	"github.com/baharkarakas/provider-payouts/internal/auth"
	"github.com/baharkarakas/provider-payouts/internal/config"
	"github.com/baharkarakas/provider-payouts/internal/currency"
	"github.com/baharkarakas/provider-payouts/internal/db"
	"github.com/baharkarakas/provider-payouts/internal/email"
	"github.com/baharkarakas/provider-payouts/internal/jobs"
	"github.com/baharkarakas/provider-payouts/internal/logger"
	"github.com/baharkarakas/provider-payouts/internal/metrics"
	"github.com/baharkarakas/provider-payouts/internal/models"
	"github.com/baharkarakas/provider-payouts/internal/push"
	"github.com/baharkarakas/provider-payouts/internal/repository/postgres"
	"github.com/baharkarakas/provider-payouts/internal/services"
	"github.com/baharkarakas/provider-payouts/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, dbPool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(dbPool)
	wp := worker.NewPool(cfg.OutboxWorkers)
	defer wp.Stop()

	mailer := email.NewSMTPMailer(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Secure:   cfg.SMTPSecure,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})

	var pushSender push.Sender
	if cfg.FirebaseCredentialsFile != "" {
		fcm, err := push.NewFCM(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			log.Error("firebase", "err", err)
			os.Exit(1)
		}
		pushSender = fcm
	} else {
		log.Info("push channel disabled, FIREBASE_CREDENTIALS_FILE not set")
	}

	dispatcher := services.NewDispatcher(repos.Profiles, repos.Outbox, services.DispatcherConfig{
		AppURL:      cfg.AppURL,
		PushEnabled: pushSender != nil,
	}, log)
	withdrawalSvc := services.NewWithdrawalService(repos.Balances, repos.Settings, repos.Withdrawals,
		repos.PaymentMethods, dispatcher, services.WithdrawalConfig{
			Defaults: models.PlatformSettings{
				FeePercentage:      cfg.DefaultFeePercentage,
				MinWithdrawalCents: cfg.DefaultMinWithdrawalCents,
				MaxWithdrawalCents: cfg.DefaultMaxWithdrawalCents,
			},
			Cooldown: cfg.WithdrawalCooldown,
		}, log)
	earningsSvc := services.NewEarningsService(withdrawalSvc,
		currency.NewConverter(cfg.CurrencyAPIURL, cfg.CurrencyTimeout), log)
	deliverer := services.NewDeliverer(repos.Outbox, repos.Notifications, repos.DeviceTokens,
		mailer, pushSender, wp, services.DeliveryConfig{
			Batch:       cfg.OutboxBatch,
			MaxAttempts: cfg.OutboxMaxAttempts,
			BaseBackoff: cfg.OutboxBaseBackoff,
		}, log)
	tracker := services.NewMessageTracker(repos.PendingMessages, repos.Profiles, mailer,
		services.MessageTrackerConfig{
			Delay:  cfg.MessageNotifyDelay,
			Batch:  cfg.MessageSweepBatch,
			AppURL: cfg.AppURL,
		}, log)

	sched, err := jobs.NewScheduler(jobs.Config{
		MessageSweepSpec: cfg.MessageSweepSpec,
		OutboxDrainSpec:  cfg.OutboxDrainSpec,
	}, tracker, deliverer, log)
	if err != nil {
		log.Error("scheduler", "err", err)
		os.Exit(1)
	}
	sched.Start()

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:            cfg,
		Tokens:         auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL),
		Withdrawals:    withdrawalSvc,
		Earnings:       earningsSvc,
		PaymentMethods: services.NewPaymentMethodService(repos.PaymentMethods),
		Notifications:  services.NewNotificationService(repos.Notifications, repos.DeviceTokens),
		Dispatcher:     dispatcher,
		Messages:       tracker,
		Refunds:        services.NewRefundService(repos.Refunds),
		Outbox:         deliverer,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sched.Stop(shutdownCtx)
}
