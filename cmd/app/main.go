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

	"course-payments/internal/config"
	"course-payments/internal/domain/ports/adapter"
	notifyAdapters "course-payments/internal/infra/adapters/notify"
	payAdapters "course-payments/internal/infra/adapters/payment"
	pg "course-payments/internal/infra/db/postgres"
	"course-payments/internal/infra/logging"
	"course-payments/internal/infra/metrics"
	red "course-payments/internal/infra/redis"
	"course-payments/internal/infra/sched"
	"course-payments/internal/infra/web"
	"course-payments/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	pg.StartPoolStatsReporter(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	courseRepo := pg.NewCourseRepo(pool)
	featureRepo := pg.NewFeatureRepo(pool)
	sessionRepo := pg.NewCheckoutSessionRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	enrollmentRepo := pg.NewEnrollmentRepo(pool)
	grantRepo := pg.NewFeatureGrantRepo(pool)
	certificateRepo := pg.NewCertificateRepo(pool)
	auditRepo := pg.NewAuditLogRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Adapters ----
	var gateway adapter.CheckoutGateway
	if cfg.Runtime.Dev && cfg.Payment.Stripe.SecretKey == "" {
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("payment gateway: noop (dev mode, no stripe key)")
	} else {
		gateway = payAdapters.NewStripeGateway(
			cfg.Payment.Stripe.SecretKey,
			cfg.Payment.Stripe.SuccessURL,
			cfg.Payment.Stripe.CancelURL,
			logger,
		)
	}

	var notifier adapter.Notifier
	if cfg.Notify.Telegram.Token != "" {
		notifier, err = notifyAdapters.NewTelegramNotifier(cfg.Notify.Telegram.Token, logger)
		if err != nil {
			return fmt.Errorf("telegram notifier: %w", err)
		}
	} else {
		notifier = notifyAdapters.NewNoopNotifier(logger)
		logger.Warn().Msg("notifier: noop (no telegram token)")
	}

	// ---- Use cases ----
	auditUC := usecase.NewAuditUseCase(auditRepo, logger)
	notifUC := usecase.NewNotificationUseCase(userRepo, notifier, logger)
	eligibilityUC := usecase.NewEligibilityUseCase(userRepo, courseRepo, featureRepo, enrollmentRepo, grantRepo, logger)
	checkoutUC := usecase.NewCheckoutUseCase(eligibilityUC, sessionRepo, gateway,
		cfg.Payment.Stripe.SuccessURL, cfg.Payment.Stripe.CancelURL, logger)
	reconcileUC := usecase.NewReconcileUseCase(sessionRepo, paymentRepo, enrollmentRepo, grantRepo,
		userRepo, eligibilityUC, gateway, tm, auditUC, notifUC, logger)
	certificateUC := usecase.NewCertificateUseCase(enrollmentRepo, certificateRepo, tm, auditUC, logger)
	adminUC := usecase.NewAdminUseCase(userRepo, paymentRepo, tm, auditUC, logger)

	// ---- HTTP server ----
	translators, err := web.NewTranslators("en", "pt-BR")
	if err != nil {
		return fmt.Errorf("translators: %w", err)
	}
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := web.NewServer(
		eligibilityUC, checkoutUC, reconcileUC, certificateUC, adminUC,
		auth, rateLimiter,
		cfg.Checkout.RateLimitPerMinute,
		cfg.Payment.Stripe.WebhookSecret,
		translators, cfg.Checkout.DefaultLocale,
		logger,
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Stale-session sweeper ----
	sweeper := sched.NewCheckoutReconciler(
		reconcileUC, sessionRepo,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.BatchSize,
		logger,
	)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	return nil
}
