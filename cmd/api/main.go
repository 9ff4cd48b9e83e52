package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/calendly"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/store"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/conversation"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/email"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http/router"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/repository"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/nlp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/onelink"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/reports"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/scheduler"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/whatsapp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/db"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if cfg.IsDatabaseEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, cfg, "migrations")
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")

		if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			pool = p
			return nil
		}); err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		defer pool.Close()
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL not configured; leads are kept in memory")
	}

	eventBus := events.NewInMemoryBus(log)

	linkStore, err := newLinkStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize booking store", "error", err)
		panic("failed to initialize booking store: " + err.Error())
	}

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	var leadRepo repository.Repository
	if pool != nil {
		leadRepo = repository.NewPostgres(pool)
	} else {
		leadRepo = repository.NewMemory()
	}
	leadService := leads.NewService(leadRepo, eventBus, log)

	minter := newMinter(cfg, log)
	bookingService := booking.NewService(linkStore, minter, leadService, eventBus, log, cfg.GetBookingLinkTTL())

	sweeper := booking.NewSweeper(linkStore, eventBus, log,
		cfg.GetBookingRetention(), cfg.GetBookingHistoryRetention(), cfg.GetBookingSweepInterval())
	go sweeper.Run(ctx)

	onelinkService := onelink.NewService(bookingService, log, cfg.GetBookingLinkTTL())
	go onelinkService.Run(ctx, time.Hour)

	analyzer := newAnalyzer(ctx, cfg, log)

	var sender whatsapp.Sender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		sender = client
	} else {
		log.Warn("WHATSAPP_URL not configured; outbound messages are logged only")
		sender = whatsapp.NewLogSender(log)
	}

	var mailer email.Sender
	if cfg.GetEmailEnabled() {
		mailer = email.NewSMTPSender(cfg)
	} else {
		mailer = email.NewLogSender(log)
	}
	reporter := reports.NewReporter(leadService, bookingService, mailer, eventBus, log,
		cfg.GetReportRecipients(), cfg.GetCompanyName())

	orchestrator := conversation.NewOrchestrator(
		leadService, bookingService, onelinkService, analyzer, sender,
		reminderScheduler, eventBus, log, validator.New(),
		cfg.GetPublicBaseURL(), cfg.GetCompanyName())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	var health apphttp.HealthChecker
	if pool != nil {
		health = db.NewPoolAdapter(pool)
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			booking.NewModule(booking.NewHandler(bookingService, sweeper, log)),
			onelink.NewModule(onelinkService),
			leads.NewModule(leads.NewHandler(leadService)),
			whatsapp.NewModule(cfg, orchestrator, log),
			reports.NewModule(reporter),
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// newLinkStore picks the booking-link store backend. Redis keeps links across
// restarts; memory is for development and single-instance deployments.
func newLinkStore(cfg *config.Config, log *logger.Logger) (store.LinkStore, error) {
	if cfg.GetBookingStoreKind() != "redis" {
		log.Info("booking store initialized", "kind", "memory")
		return store.NewMemoryStore(), nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	log.Info("booking store initialized", "kind", "redis", "addr", opt.Addr)
	return store.NewRedisStore(client), nil
}

// newMinter uses the Calendly API when credentials are configured and the
// plain fallback URL otherwise.
func newMinter(cfg *config.Config, log *logger.Logger) booking.LinkMinter {
	local := booking.NewLocalMinter(cfg.GetCalendlyFallbackURL())
	if !cfg.IsCalendlyEnabled() {
		log.Warn("Calendly credentials not configured; using the fallback booking URL")
		return local
	}
	client := calendly.NewClient(cfg.GetCalendlyAPIKey(), cfg.GetCalendlyEventTypeURI())
	return booking.NewProviderMinter(client, local, log)
}

func newAnalyzer(ctx context.Context, cfg *config.Config, log *logger.Logger) nlp.Analyzer {
	if cfg.IsGeminiEnabled() {
		analyzer, err := nlp.NewGeminiAnalyzer(ctx, cfg.GetGeminiAPIKey(), cfg.GetGeminiModel(), cfg.GetCompanyName(), log)
		if err == nil {
			log.Info("gemini analyzer initialized", "model", cfg.GetGeminiModel())
			return analyzer
		}
		log.Error("failed to initialize gemini analyzer, falling back to keywords", "error", err)
	} else {
		log.Warn("GEMINI_API_KEY not configured; using the keyword analyzer")
	}
	return nlp.NewKeywordAnalyzer(cfg.GetCompanyName())
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (conversation.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; booking reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
