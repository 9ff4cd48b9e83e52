package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/store"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/email"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/repository"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/reports"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/scheduler"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/whatsapp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/db"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// The worker consumes asynq tasks: booking reminders queued by the API and
// the cron-scheduled daily report. It shares the Redis booking store with
// the API so reminder checks see current link state.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.IsDatabaseEnabled() {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			panic("failed to connect to database: " + err.Error())
		}
		pool = p
		defer pool.Close()
	}

	eventBus := events.NewInMemoryBus(log)

	linkStore, err := newLinkStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize booking store", "error", err)
		panic("failed to initialize booking store: " + err.Error())
	}

	var leadRepo repository.Repository
	if pool != nil {
		leadRepo = repository.NewPostgres(pool)
	} else {
		leadRepo = repository.NewMemory()
	}
	leadService := leads.NewService(leadRepo, eventBus, log)

	minter := booking.NewLocalMinter(cfg.GetCalendlyFallbackURL())
	bookingService := booking.NewService(linkStore, minter, leadService, eventBus, log, cfg.GetBookingLinkTTL())

	var sender whatsapp.Sender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		sender = client
	} else {
		sender = whatsapp.NewLogSender(log)
	}

	var mailer email.Sender
	if cfg.GetEmailEnabled() {
		mailer = email.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; report emails are logged only")
		mailer = email.NewLogSender(log)
	}
	reporter := reports.NewReporter(leadService, bookingService, mailer, eventBus, log,
		cfg.GetReportRecipients(), cfg.GetCompanyName())

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run()
	defer periodic.Shutdown()

	worker, err := scheduler.NewWorker(cfg, bookingService, sender, reporter, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("worker stopped")
}

func newLinkStore(cfg *config.Config, log *logger.Logger) (store.LinkStore, error) {
	if cfg.GetBookingStoreKind() != "redis" {
		// A memory store in the worker cannot see links issued by the API
		// process; reminders will be dropped as unknown links.
		log.Warn("BOOKING_STORE is memory; reminder checks only see this process's links")
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
