// Package booking owns the one-time-use booking link lifecycle: issuing
// links, validating them, consuming booking-completed webhooks, and sweeping
// stale records.
package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/store"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/phone"

	"github.com/google/uuid"
)

// BookedRecord carries the booking outcome handed to the lead storage
// collaborator when a webhook confirms a completed booking.
type BookedRecord struct {
	BookingID string
	EventRef  string
	BookedAt  time.Time
}

// LeadMarker is the slice of lead storage the webhook processor needs: mark
// a contact's lead as booked so the conversation moves to its terminal stage.
type LeadMarker interface {
	MarkBooked(ctx context.Context, contactKey string, record BookedRecord) error
}

// Service implements the booking-link lifecycle. All state transitions run
// under a single mutex so concurrent webhook deliveries and issue requests
// observe each other's writes.
type Service struct {
	store  store.LinkStore
	minter LinkMinter
	leads  LeadMarker
	bus    events.Bus
	log    *logger.Logger
	ttl    time.Duration

	mu  sync.Mutex
	now func() time.Time
}

// NewService wires the booking service. leads may be nil when no lead
// storage is configured. ttl is the link lifetime (24h in production).
func NewService(linkStore store.LinkStore, minter LinkMinter, leads LeadMarker, bus events.Bus, log *logger.Logger, ttl time.Duration) *Service {
	return &Service{
		store:  linkStore,
		minter: minter,
		leads:  leads,
		bus:    bus,
		log:    log,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a booking link for the lead. When the contact already holds
// an active link it is returned unchanged (reused=true) so retried "send me
// the link" requests are safe. A contact that has ever completed a booking
// gets a conflict error instead.
func (s *Service) Issue(ctx context.Context, lead domain.LeadSnapshot) (link *domain.Link, reused bool, err error) {
	contactKey := phone.ContactKey(lead.Phone)
	if contactKey == "" {
		return nil, false, apperr.Validation("lead phone number is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	booked, err := s.store.HasBooked(ctx, contactKey)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindInternal, "check booking history", err)
	}
	if booked {
		return nil, false, apperr.Conflict(domain.ReasonAlreadyBooked)
	}

	existing, err := s.store.ActiveByContact(ctx, contactKey)
	if err == nil {
		if !existing.ExpiredAt(now) {
			return existing, true, nil
		}
		// The stored link outlived its deadline without being checked.
		// Retire it and mint a fresh one instead of handing out a dead URL.
		existing.Deactivate(domain.StateExpired, now)
		if err := s.store.Put(ctx, existing); err != nil {
			return nil, false, apperr.Wrap(apperr.KindInternal, "expire stale link", err)
		}
		s.log.BookingEvent("expired", existing.BookingID, contactKey)
	} else if !errors.Is(err, store.ErrLinkNotFound) {
		return nil, false, apperr.Wrap(apperr.KindInternal, "look up active link", err)
	}

	bookingID := uuid.NewString()
	expiresAt := now.Add(s.ttl)

	minted, err := s.minter.Mint(ctx, lead, bookingID, expiresAt)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindInternal, "mint booking link", err)
	}

	link = &domain.Link{
		BookingID:    bookingID,
		ContactKey:   contactKey,
		Lead:         lead,
		URL:          minted.URL,
		State:        domain.StateActive,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
		MaxUsage:     1,
		EventTypeURI: minted.EventTypeURI,
	}
	if err := s.store.Put(ctx, link); err != nil {
		return nil, false, apperr.Wrap(apperr.KindInternal, "store booking link", err)
	}

	s.log.BookingEvent("issued", bookingID, contactKey)
	s.publish(ctx, events.BookingLinkIssued{
		BaseEvent:  events.NewBaseEvent(),
		BookingID:  bookingID,
		ContactKey: contactKey,
		ExpiresAt:  expiresAt,
	})
	return link, false, nil
}

// Validate checks whether the link can still be used. The check order is
// deliberate: used before expired, so callers can tell "already used" apart
// from "timed out". Observing a lapsed deadline also retires the stored
// record, which is how active links transition to expired.
func (s *Service) Validate(ctx context.Context, bookingID string) (domain.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	link, err := s.store.Get(ctx, bookingID)
	if errors.Is(err, store.ErrLinkNotFound) {
		return domain.ValidationResult{Reason: domain.ReasonNotFound}, nil
	}
	if err != nil {
		return domain.ValidationResult{}, apperr.Wrap(apperr.KindInternal, "load booking link", err)
	}

	result := domain.ValidationResult{BookingID: bookingID}

	if link.State == domain.StateUsed {
		result.WasUsed = true
		result.Reason = domain.ReasonAlreadyUsed
		return result, nil
	}

	if link.State == domain.StateExpired || link.ExpiredAt(now) {
		if link.State == domain.StateActive {
			link.Deactivate(domain.StateExpired, now)
			if err := s.store.Put(ctx, link); err != nil {
				return domain.ValidationResult{}, apperr.Wrap(apperr.KindInternal, "expire booking link", err)
			}
			s.log.BookingEvent("expired", bookingID, link.ContactKey)
		}
		result.Expired = true
		result.Reason = domain.ReasonExpired
		return result, nil
	}

	if link.UsageExhausted() {
		result.UsageExceeded = true
		result.Reason = domain.ReasonUsageExceeded
		return result, nil
	}

	booked, err := s.store.HasBooked(ctx, link.ContactKey)
	if err != nil {
		return domain.ValidationResult{}, apperr.Wrap(apperr.KindInternal, "check booking history", err)
	}
	if booked {
		result.AlreadyBooked = true
		result.Reason = domain.ReasonAlreadyBooked
		return result, nil
	}

	result.IsValid = true
	result.CanBook = true
	result.Reason = domain.ReasonValid
	result.RemainingUsage = link.MaxUsage - link.UsageCount
	result.SecondsToExpiry = int64(link.ExpiresAt.Sub(now).Seconds())
	return result, nil
}

// ProcessWebhook consumes a provider webhook delivery. Only booking-completed
// events touch link state; everything else is dropped with a log line. The
// method is idempotent under at-least-once delivery: a duplicate event finds
// the link no longer active and does nothing.
func (s *Service) ProcessWebhook(ctx context.Context, event WebhookEvent) error {
	if event.Event != EventInviteeCreated {
		s.log.WebhookDropped("calendly", "unhandled event type: "+event.Event)
		return nil
	}

	bookingID := event.Payload.Invitee.Tracking.UTMParameters["booking_id"]
	if bookingID == "" {
		s.log.WebhookDropped("calendly", "payload missing booking_id tracking parameter")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	link, err := s.store.Get(ctx, bookingID)
	if errors.Is(err, store.ErrLinkNotFound) {
		// Link already purged. Any history entry appended before the purge
		// remains the durable record, so this is safe to drop.
		s.log.WebhookDropped("calendly", "booking_id does not resolve to a stored link: "+bookingID)
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load booking link", err)
	}

	if !link.IsActive() {
		s.log.WithContact(link.ContactKey).Info("duplicate booking webhook ignored",
			"booking_id", bookingID, "state", string(link.State))
		return nil
	}

	link.RecordAccess(now)
	link.MarkUsed(now)
	if err := s.store.Put(ctx, link); err != nil {
		return apperr.Wrap(apperr.KindInternal, "deactivate booking link", err)
	}

	entry := domain.HistoryEntry{
		BookingID:    bookingID,
		ContactKey:   link.ContactKey,
		EventRef:     event.Payload.Event.URI,
		InviteeName:  event.Payload.Invitee.Name,
		InviteeEmail: event.Payload.Invitee.Email,
		StartTime:    event.Payload.Event.StartTime,
		EndTime:      event.Payload.Event.EndTime,
		BookedAt:     now,
	}
	if err := s.store.AppendHistory(ctx, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, "append booking history", err)
	}

	if s.leads != nil {
		record := BookedRecord{BookingID: bookingID, EventRef: entry.EventRef, BookedAt: now}
		if err := s.leads.MarkBooked(ctx, link.ContactKey, record); err != nil {
			// Lead storage lagging behind must not fail the webhook; the
			// history entry is already the durable record.
			s.log.WithContact(link.ContactKey).Error("mark lead booked failed",
				"booking_id", bookingID, "error", err.Error())
		}
	}

	s.log.BookingEvent("used", bookingID, link.ContactKey)
	s.publish(ctx, events.BookingCompleted{
		BaseEvent:    events.NewBaseEvent(),
		BookingID:    bookingID,
		ContactKey:   link.ContactKey,
		EventRef:     entry.EventRef,
		InviteeEmail: entry.InviteeEmail,
		StartTime:    entry.StartTime,
		EndTime:      entry.EndTime,
	})
	return nil
}

// TrackAccess notes that a link URL was opened and reports whether this was
// the first access. Access is informational only and never changes state.
func (s *Service) TrackAccess(ctx context.Context, bookingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.store.Get(ctx, bookingID)
	if errors.Is(err, store.ErrLinkNotFound) {
		return false, apperr.NotFound(domain.ReasonNotFound)
	}
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "load booking link", err)
	}

	link.RecordAccess(s.now())
	if err := s.store.Put(ctx, link); err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "record link access", err)
	}
	return link.AccessCount == 1, nil
}

// Deactivate manually retires a link without a booking. Deactivating a link
// that already left the active state is a no-op.
func (s *Service) Deactivate(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.store.Get(ctx, bookingID)
	if errors.Is(err, store.ErrLinkNotFound) {
		return apperr.NotFound(domain.ReasonNotFound)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "load booking link", err)
	}
	if !link.IsActive() {
		return nil
	}

	link.Deactivate(domain.StateExpired, s.now())
	if err := s.store.Put(ctx, link); err != nil {
		return apperr.Wrap(apperr.KindInternal, "deactivate booking link", err)
	}
	s.log.BookingEvent("deactivated", bookingID, link.ContactKey)
	return nil
}

// Link returns a stored link by booking ID.
func (s *Service) Link(ctx context.Context, bookingID string) (*domain.Link, error) {
	link, err := s.store.Get(ctx, bookingID)
	if errors.Is(err, store.ErrLinkNotFound) {
		return nil, apperr.NotFound(domain.ReasonNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load booking link", err)
	}
	return link, nil
}

// ContactStatus summarizes a contact's booking situation for operators and
// for the conversation orchestrator's "can I offer a link" check.
type ContactStatus struct {
	ContactKey    string       `json:"contactKey"`
	CanBook       bool         `json:"canBook"`
	Reason        string       `json:"reason,omitempty"`
	AlreadyBooked bool         `json:"alreadyBooked"`
	ActiveLink    *domain.Link `json:"activeLink,omitempty"`
}

// StatusForContact reports whether the phone number may receive a new
// booking and surfaces its current active link if any.
func (s *Service) StatusForContact(ctx context.Context, rawPhone string) (ContactStatus, error) {
	contactKey := phone.ContactKey(rawPhone)
	if contactKey == "" {
		return ContactStatus{}, apperr.Validation("phone number is required")
	}

	status := ContactStatus{ContactKey: contactKey}

	booked, err := s.store.HasBooked(ctx, contactKey)
	if err != nil {
		return ContactStatus{}, apperr.Wrap(apperr.KindInternal, "check booking history", err)
	}
	if booked {
		status.AlreadyBooked = true
		status.Reason = domain.ReasonAlreadyBooked
		return status, nil
	}

	active, err := s.store.ActiveByContact(ctx, contactKey)
	if err == nil && !active.ExpiredAt(s.now()) {
		status.ActiveLink = active
	} else if err != nil && !errors.Is(err, store.ErrLinkNotFound) {
		return ContactStatus{}, apperr.Wrap(apperr.KindInternal, "look up active link", err)
	}

	status.CanBook = true
	return status, nil
}

// LinksForContact returns every stored link for the phone number, newest first.
func (s *Service) LinksForContact(ctx context.Context, rawPhone string) ([]*domain.Link, error) {
	contactKey := phone.ContactKey(rawPhone)
	if contactKey == "" {
		return nil, apperr.Validation("phone number is required")
	}
	links, err := s.store.ByContact(ctx, contactKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load contact links", err)
	}
	return links, nil
}

// HistoryForContact returns the phone number's completed bookings.
func (s *Service) HistoryForContact(ctx context.Context, rawPhone string) ([]domain.HistoryEntry, error) {
	contactKey := phone.ContactKey(rawPhone)
	if contactKey == "" {
		return nil, apperr.Validation("phone number is required")
	}
	entries, err := s.store.HistoryByContact(ctx, contactKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load booking history", err)
	}
	return entries, nil
}

// SystemStatus aggregates link counts for the admin status endpoint.
type SystemStatus struct {
	TotalLinks   int `json:"totalLinks"`
	ActiveLinks  int `json:"activeLinks"`
	UsedLinks    int `json:"usedLinks"`
	ExpiredLinks int `json:"expiredLinks"`
}

// Status counts stored links per state.
func (s *Service) Status(ctx context.Context) (SystemStatus, error) {
	links, err := s.store.All(ctx)
	if err != nil {
		return SystemStatus{}, apperr.Wrap(apperr.KindInternal, "load links", err)
	}
	status := SystemStatus{TotalLinks: len(links)}
	for _, link := range links {
		switch link.State {
		case domain.StateActive:
			status.ActiveLinks++
		case domain.StateUsed:
			status.UsedLinks++
		case domain.StateExpired:
			status.ExpiredLinks++
		}
	}
	return status, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}
