package scheduler

import (
	"fmt"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/hibiken/asynq"
)

// Daily report goes out at 08:00 server time.
const dailyReportCron = "0 8 * * *"

// Periodic registers recurring tasks with the asynq scheduler. Exactly one
// instance should run per deployment.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})
	if _, err := sched.Register(dailyReportCron, NewDailyReportTask(), asynq.Queue(queue)); err != nil {
		return nil, err
	}

	return &Periodic{scheduler: sched, log: log}, nil
}

// Run drives the cron registrations until shutdown.
func (p *Periodic) Run() {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}

// Shutdown stops the scheduler loop.
func (p *Periodic) Shutdown() {
	if p == nil || p.scheduler == nil {
		return
	}
	p.scheduler.Shutdown()
}
