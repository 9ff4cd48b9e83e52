package scheduler

import (
	"context"
	"fmt"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/reports"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/whatsapp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes scheduled tasks: booking reminders and the daily report.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	booking  *booking.Service
	sender   whatsapp.Sender
	reporter *reports.Reporter
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bookingSvc *booking.Service, sender whatsapp.Sender, reporter *reports.Reporter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		booking:  bookingSvc,
		sender:   sender,
		reporter: reporter,
		log:      log,
	}

	mux.HandleFunc(TaskBookingReminder, w.handleBookingReminder)
	mux.HandleFunc(TaskDailyReport, w.handleDailyReport)

	return w, nil
}

// handleBookingReminder nudges the lead about an unused booking link. A link
// that was used, expired, or replaced since the task was queued drops the
// reminder silently.
func (w *Worker) handleBookingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBookingReminderPayload(task)
	if err != nil {
		return err
	}

	link, err := w.booking.Link(ctx, payload.BookingID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !link.IsActive() {
		return nil
	}

	result, err := w.booking.Validate(ctx, payload.BookingID)
	if err != nil {
		return err
	}
	if !result.CanBook {
		return nil
	}

	message := reminderMessage(payload.Sequence)
	if err := w.sender.SendMessage(ctx, payload.ContactKey, message); err != nil {
		w.log.ExternalCallFailed("whatsapp", "send_reminder", err)
		return err
	}

	w.log.WithContact(payload.ContactKey).Info("booking reminder sent",
		"booking_id", payload.BookingID, "sequence", payload.Sequence)
	return nil
}

func (w *Worker) handleDailyReport(ctx context.Context, _ *asynq.Task) error {
	if w.reporter == nil {
		return nil
	}
	return w.reporter.SendDaily(ctx)
}

func reminderMessage(sequence int) string {
	if sequence >= 2 {
		return "Quick reminder: your booking link expires in about an hour. Grab a slot now so we don't lose your spot!"
	}
	return "Hi! Just checking in. Your personalized booking link is still waiting for you. Pick a time that suits you and let's talk!"
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
