// Package scheduler queues and runs deferred work over asynq: booking-link
// reminders and the daily lead report.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Reminder offsets measured from link issuance. The link itself lives 24h, so
// the second nudge lands one hour before expiry.
const (
	firstReminderAfter = 4 * time.Hour
	finalReminderAfter = 23 * time.Hour
)

// Client enqueues deferred tasks. A nil Client disables scheduling, which is
// how deployments without Redis run.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleReminders queues the follow-up nudges for a freshly issued booking
// link. Implements the conversation module's reminder hook.
func (c *Client) ScheduleReminders(ctx context.Context, contactKey, bookingID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	now := time.Now()
	offsets := []time.Duration{firstReminderAfter, finalReminderAfter}
	for i, offset := range offsets {
		task, err := NewBookingReminderTask(BookingReminderPayload{
			ContactKey: contactKey,
			BookingID:  bookingID,
			Sequence:   i + 1,
		})
		if err != nil {
			return err
		}
		if _, err := c.client.EnqueueContext(ctx, task,
			asynq.ProcessAt(now.Add(offset)), asynq.Queue(c.queue)); err != nil {
			return err
		}
	}
	return nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
