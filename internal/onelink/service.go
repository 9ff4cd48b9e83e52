// Package onelink issues short redirect tokens that wrap a booking URL and
// expire after the first click. The lead receives a short link on our own
// domain; opening it once redirects to the real scheduling page, opening it
// again shows an expiry page.
package onelink

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/google/uuid"
)

// AccessTracker receives a notification when a wrapped booking URL is
// dereferenced. The booking module uses this to maintain access counters.
type AccessTracker interface {
	TrackAccess(ctx context.Context, bookingID string) (bool, error)
}

type entry struct {
	target    string
	bookingID string
	used      bool
	createdAt time.Time
}

// Service stores redirect tokens in memory. Tokens are short-lived by
// design: the cleanup pass drops anything older than the max age whether
// used or not.
type Service struct {
	mu      sync.Mutex
	links   map[string]*entry
	tracker AccessTracker
	log     *logger.Logger
	maxAge  time.Duration

	now func() time.Time
}

// NewService creates the one-click link service. tracker may be nil.
func NewService(tracker AccessTracker, log *logger.Logger, maxAge time.Duration) *Service {
	return &Service{
		links:   make(map[string]*entry),
		tracker: tracker,
		log:     log,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Wrap stores the target URL under a fresh token and returns the token.
// The booking_id query parameter, when present, is remembered so the first
// click can be reported to the access tracker.
func (s *Service) Wrap(targetURL string) string {
	token := uuid.NewString()

	var bookingID string
	if parsed, err := url.Parse(targetURL); err == nil {
		bookingID = parsed.Query().Get("booking_id")
	}

	s.mu.Lock()
	s.links[token] = &entry{target: targetURL, bookingID: bookingID, createdAt: s.now()}
	s.mu.Unlock()

	s.log.Info("one-click link created", "token", token, "booking_id", bookingID)
	return token
}

// Redeem consumes a token and returns its target URL. The first call wins;
// later calls get a gone error, unknown tokens a not-found error.
func (s *Service) Redeem(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	link, ok := s.links[token]
	if !ok {
		s.mu.Unlock()
		return "", apperr.NotFound("invalid or expired booking link")
	}
	if link.used {
		s.mu.Unlock()
		return "", apperr.Gone("this booking link has already been used")
	}
	link.used = true
	target := link.target
	bookingID := link.bookingID
	s.mu.Unlock()

	s.log.Info("one-click link redeemed", "token", token, "booking_id", bookingID)

	if s.tracker != nil && bookingID != "" {
		if _, err := s.tracker.TrackAccess(ctx, bookingID); err != nil {
			// Access accounting is informational; the redirect still happens.
			s.log.Warn("track link access failed", "booking_id", bookingID, "error", err.Error())
		}
	}
	return target, nil
}

// Cleanup drops tokens older than the max age and returns how many were
// removed.
func (s *Service) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, link := range s.links {
		if now.Sub(link.createdAt) > s.maxAge {
			delete(s.links, token)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("one-click links cleaned up", "removed", removed, "remaining", len(s.links))
	}
	return removed
}

// Run cleans up on the given interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}
