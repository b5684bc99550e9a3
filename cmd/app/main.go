// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain/ports/adapter"
	"course-enrollment/internal/domain/ports/repository"
	tele "course-enrollment/internal/infra/adapters/telegram"
	pg "course-enrollment/internal/infra/db/postgres"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/mail"
	"course-enrollment/internal/infra/metrics"
	red "course-enrollment/internal/infra/redis"
	"course-enrollment/internal/infra/sched"
	"course-enrollment/internal/infra/web"
	"course-enrollment/internal/infra/worker"
	"course-enrollment/internal/usecase"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Str("path", *cfgPath).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("service stopped with error")
	}
	logger.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	// ---- Redis (optional at runtime: limiter and lock fail open, FX cache falls through) ----
	var (
		redisClient *red.Client
		limiter     adapter.RateLimiter
		locker      adapter.Locker
	)
	redisClient, err = red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without rate limiting, locks and fx cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	students := pg.NewStudentRepo(pool)
	payments := pg.NewPaymentRepo(pool)
	courses := pg.NewCourseRepo(pool)
	checkpoints := pg.NewMailboxCheckpointRepo(pool)
	var fxRates repository.FXRateRepository = pg.NewFXRateRepo(pool)
	if redisClient != nil {
		fxRates = pg.NewFXRateRepoCacheDecorator(fxRates, redisClient, cfg.Redis.TTL, logger)
	}

	// ---- Operator alerts ----
	var notifier adapter.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID != 0 {
		n, err := tele.NewAdminNotifier(cfg.Telegram, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram notifier unavailable, alerts go to the log")
			notifier = tele.NewNoopNotifier(logger)
		} else {
			notifier = n
		}
	} else {
		notifier = tele.NewNoopNotifier(logger)
	}
	workers := worker.NewPool(cfg.Telegram.Workers, logger)
	notifier = worker.NewAsyncNotifier(notifier, workers, 10*time.Second, logger)

	// ---- Mailbox client ----
	var mailbox adapter.MailboxClient
	gmail, err := mail.NewGmailClient(cfg.Mailbox, logger)
	switch {
	case err == nil:
		mailbox = gmail
	case errors.Is(err, mail.ErrMissingCredentials):
		logger.Warn().Msg("mailbox credentials not set, automatic activation disabled")
	default:
		return err
	}

	// ---- Use cases ----
	activation := usecase.NewActivationUseCase(payments, students, tm, notifier, usecase.ActivationOptions{
		NotifyOnReject:   *cfg.Payment.NotifyOnReject,
		NotifyOnActivate: *cfg.Payment.NotifyOnActivate,
	}, logger)
	checkout := usecase.NewCheckoutUseCase(
		students, courses, fxRates, payments,
		usecase.NewActivationCodeGenerator(payments),
		tm, limiter,
		usecase.CheckoutOptions{
			Provider:            cfg.Payment.Provider,
			RedirectURL:         cfg.Payment.RedirectURL,
			Instructions:        cfg.Payment.Instructions,
			SupportedCurrencies: cfg.Payment.SupportedCurrencies,
			RateLimit:           cfg.Checkout.RateLimit,
			RateWindow:          cfg.Checkout.RateWindow,
		},
		logger,
	)
	ingestor := usecase.NewMailboxUseCase(checkpoints, mailbox, activation, locker, usecase.MailboxOptions{
		WebhookSecret:  cfg.Mailbox.WebhookSecret,
		ProviderFilter: cfg.Mailbox.ProviderFilter,
		MaxMessages:    cfg.Mailbox.MaxMessages,
		SeenCacheSize:  cfg.Mailbox.SeenCacheSize,
	}, logger)
	watch := usecase.NewWatchUseCase(checkpoints, mailbox, cfg.Mailbox.PubSubTopic, logger)
	progress := usecase.NewProgressUseCase(
		students,
		pg.NewStepRepo(pool),
		pg.NewStepCompletionRepo(pool),
		pg.NewTemplateStepRepo(pool),
		tm,
		logger,
	)

	// ---- HTTP ----
	router := web.NewRouter(web.Deps{
		Activation: activation,
		Checkout:   checkout,
		Mailbox:    ingestor,
		Watch:      watch,
		Progress:   progress,
		Auth:       web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		JobToken:   cfg.Auth.JobToken,
		Dev:        cfg.Runtime.Dev,
		Health:     healthCheck(pool),
	}, cfg.HTTP.RequestTimeout, logger)
	srv := web.NewServer(cfg.HTTP, router, logger)

	// ---- Run ----
	g, gctx := errgroup.WithContext(ctx)
	workers.Start(gctx)
	g.Go(srv.Start)
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second, logger)
		return nil
	})
	if mailbox != nil && cfg.Mailbox.PubSubTopic != "" {
		renewer := sched.NewWatchRenewer(watch, cfg.Scheduler.WatchRenewInterval, cfg.Scheduler.WatchRenewBefore, logger)
		g.Go(func() error {
			renewer.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		workers.Stop()
		return err
	})

	logger.Info().Str("version", version).Int("port", cfg.HTTP.Port).Msg("service started")
	return g.Wait()
}

func healthCheck(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
