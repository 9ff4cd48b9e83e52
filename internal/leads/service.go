// Package leads manages prospect records and their conversation state.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/repository"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// Service owns lead reads and writes. The conversation orchestrator goes
// through it for every turn.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger

	now func() time.Time
}

// NewService creates the lead service.
func NewService(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// GetOrCreate loads the contact's lead, creating a fresh one in the initial
// stage when none exists.
func (s *Service) GetOrCreate(ctx context.Context, contactKey string) (*domain.Lead, error) {
	lead, err := s.repo.GetByContact(ctx, contactKey)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, "load lead", err)
	}

	lead = domain.NewLead(contactKey, s.now())
	if err := s.repo.Save(ctx, lead); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create lead", err)
	}
	s.log.WithContact(contactKey).Info("lead created", "lead_id", lead.ID.String())
	return lead, nil
}

// Get returns the lead for the contact key.
func (s *Service) Get(ctx context.Context, contactKey string) (*domain.Lead, error) {
	lead, err := s.repo.GetByContact(ctx, contactKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load lead", err)
	}
	return lead, nil
}

// Save persists lead mutations made by the orchestrator.
func (s *Service) Save(ctx context.Context, lead *domain.Lead) error {
	lead.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, lead); err != nil {
		return apperr.Wrap(apperr.KindInternal, "save lead", err)
	}
	return nil
}

// ChangeStage moves the lead to a new stage and publishes the transition.
func (s *Service) ChangeStage(ctx context.Context, lead *domain.Lead, to domain.Stage) error {
	if !to.Valid() {
		return apperr.Validation("unknown conversation stage")
	}
	if lead.Stage == to {
		return nil
	}
	from := lead.Stage
	lead.Stage = to
	if err := s.Save(ctx, lead); err != nil {
		return err
	}

	s.log.WithContact(lead.ContactKey).Info("lead stage changed",
		"from", string(from), "to", string(to))
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent:  events.NewBaseEvent(),
			ContactKey: lead.ContactKey,
			FromStage:  string(from),
			ToStage:    string(to),
		})
	}
	return nil
}

// MarkBooked records a completed booking on the lead and moves it to the
// completed stage. Implements the booking module's lead-storage hook.
func (s *Service) MarkBooked(ctx context.Context, contactKey string, record booking.BookedRecord) error {
	lead, err := s.GetOrCreate(ctx, contactKey)
	if err != nil {
		return err
	}
	lead.MarkBooked(record.BookingID, record.EventRef, record.BookedAt)
	if err := s.Save(ctx, lead); err != nil {
		return err
	}
	s.log.WithContact(contactKey).Info("lead marked booked", "booking_id", record.BookingID)
	return nil
}

// List returns all leads for the admin view.
func (s *Service) List(ctx context.Context) ([]*domain.Lead, error) {
	leads, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list leads", err)
	}
	return leads, nil
}

// CreatedSince returns leads created at or after the cutoff, newest first.
func (s *Service) CreatedSince(ctx context.Context, cutoff time.Time) ([]*domain.Lead, error) {
	leads, err := s.repo.CreatedSince(ctx, cutoff)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list recent leads", err)
	}
	return leads, nil
}
