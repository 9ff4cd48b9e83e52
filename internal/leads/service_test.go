package leads

import (
	"context"
	"testing"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/repository"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

const testContact = "+919876543210"

func newTestService() *Service {
	log := logger.New("development")
	return NewService(repository.NewMemory(), events.NewInMemoryBus(log), log)
}

func TestGetOrCreate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	lead, err := svc.GetOrCreate(ctx, testContact)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if lead.Stage != domain.StageInitial {
		t.Fatalf("new lead should start in initial, got %s", lead.Stage)
	}

	again, err := svc.GetOrCreate(ctx, testContact)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if again.ID != lead.ID {
		t.Fatalf("expected the same lead on repeat lookup")
	}
}

func TestChangeStagePublishesOnce(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	svc := NewService(repository.NewMemory(), bus, log)
	ctx := context.Background()

	changes := make(chan events.Event, 4)
	bus.Subscribe(events.EventLeadStageChanged, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		changes <- e
		return nil
	}))

	lead, err := svc.GetOrCreate(ctx, testContact)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := svc.ChangeStage(ctx, lead, domain.StageCollectingInfo); err != nil {
		t.Fatalf("change stage: %v", err)
	}
	// Same-stage transition is a no-op and must not publish.
	if err := svc.ChangeStage(ctx, lead, domain.StageCollectingInfo); err != nil {
		t.Fatalf("repeat change stage: %v", err)
	}

	select {
	case e := <-changes:
		change := e.(events.LeadStageChanged)
		if change.FromStage != "initial" || change.ToStage != "collecting_info" {
			t.Fatalf("unexpected transition %s -> %s", change.FromStage, change.ToStage)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a stage change event")
	}
	select {
	case <-changes:
		t.Fatalf("no-op transition must not publish")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChangeStageRejectsUnknownStage(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	lead, err := svc.GetOrCreate(ctx, testContact)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if err := svc.ChangeStage(ctx, lead, domain.Stage("bogus")); err == nil {
		t.Fatalf("expected error for unknown stage")
	}
}

func TestMarkBooked(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	bookedAt := time.Now()
	record := booking.BookedRecord{
		BookingID: "bk-1",
		EventRef:  "https://api.calendly.com/scheduled_events/evt-1",
		BookedAt:  bookedAt,
	}
	if err := svc.MarkBooked(ctx, testContact, record); err != nil {
		t.Fatalf("mark booked: %v", err)
	}

	lead, err := svc.Get(ctx, testContact)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !lead.HasBooked || lead.BookingID != "bk-1" {
		t.Fatalf("booking outcome not recorded: %+v", lead)
	}
	if lead.Stage != domain.StageCompleted {
		t.Fatalf("booked lead should be completed, got %s", lead.Stage)
	}
	if lead.BookedAt == nil || !lead.BookedAt.Equal(bookedAt) {
		t.Fatalf("bookedAt not recorded")
	}
}

func TestMissingFieldsPerService(t *testing.T) {
	lead := domain.NewLead(testContact, time.Now())
	lead.Fields[domain.FieldService] = domain.ServiceJobEurope
	lead.Fields[domain.FieldName] = "Aarav"
	lead.Fields[domain.FieldNumber] = testContact

	missing := lead.MissingFields()
	want := map[string]bool{domain.FieldWorkType: true, domain.FieldEmail: true, domain.FieldResidence: true}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing fields, got %v", len(want), missing)
	}
	for _, field := range missing {
		if !want[field] {
			t.Fatalf("unexpected missing field %s", field)
		}
	}

	lead.Fields[domain.FieldService] = domain.ServiceEducationAbroad
	missing = lead.MissingFields()
	found := false
	for _, field := range missing {
		if field == domain.FieldEducationCountry {
			found = true
		}
	}
	if !found {
		t.Fatalf("education abroad must require a destination country, got %v", missing)
	}
}

func TestMergeFieldsDoesNotOverwrite(t *testing.T) {
	lead := domain.NewLead(testContact, time.Now())
	lead.Fields[domain.FieldName] = "Aarav"

	changed := lead.MergeFields(map[string]string{
		domain.FieldName:  "Someone Else",
		domain.FieldEmail: "aarav@example.com",
		domain.FieldCourse: "",
	})
	if !changed {
		t.Fatalf("new email should count as a change")
	}
	if lead.Fields[domain.FieldName] != "Aarav" {
		t.Fatalf("existing answers must not be overwritten")
	}
	if lead.Fields[domain.FieldEmail] != "aarav@example.com" {
		t.Fatalf("new values should be merged")
	}
	if _, ok := lead.Fields[domain.FieldCourse]; ok {
		t.Fatalf("empty values must not be merged")
	}
}

func TestCreatedSince(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, testContact); err != nil {
		t.Fatalf("get or create: %v", err)
	}

	recent, err := svc.CreatedSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("created since: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent lead, got %d", len(recent))
	}

	none, err := svc.CreatedSince(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("created since: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no leads created in the future, got %d", len(none))
	}
}
