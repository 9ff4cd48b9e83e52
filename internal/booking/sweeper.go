package booking

import (
	"context"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/store"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// Sweeper garbage-collects booking links that left the active state longer
// than the retention window ago. It never performs business state
// transitions: an active link past its deadline is left for the validator
// to retire, the sweeper only removes already-terminal records.
type Sweeper struct {
	store            store.LinkStore
	bus              events.Bus
	log              *logger.Logger
	retention        time.Duration
	historyRetention time.Duration
	interval         time.Duration

	now func() time.Time
}

// NewSweeper creates a sweeper. historyRetention of zero means booking
// history is kept forever.
func NewSweeper(linkStore store.LinkStore, bus events.Bus, log *logger.Logger, retention, historyRetention, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:            linkStore,
		bus:              bus,
		log:              log,
		retention:        retention,
		historyRetention: historyRetention,
		interval:         interval,
		now:              time.Now,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("booking link sweeper started",
		"interval", s.interval.String(), "retention", s.retention.String())

	if _, err := s.Sweep(ctx); err != nil {
		s.log.Error("startup sweep failed", "error", err.Error())
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("booking link sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("scheduled sweep failed", "error", err.Error())
			}
		}
	}
}

// Sweep purges terminal links whose deactivation is older than the
// retention window and returns how many records were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	links, err := s.store.All(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, link := range links {
		if !link.PurgeEligible(now, s.retention) {
			continue
		}
		if err := s.store.Delete(ctx, link.BookingID); err != nil {
			return purged, err
		}
		s.log.BookingEvent("purged", link.BookingID, link.ContactKey)
		purged++
	}

	if s.historyRetention > 0 {
		pruned, err := s.store.PruneHistory(ctx, now.Add(-s.historyRetention))
		if err != nil {
			return purged, err
		}
		if pruned > 0 {
			s.log.Info("booking history pruned", "entries", pruned)
		}
	}

	if purged > 0 && s.bus != nil {
		s.bus.Publish(ctx, events.BookingLinksSwept{BaseEvent: events.NewBaseEvent(), Purged: purged})
	}
	return purged, nil
}
