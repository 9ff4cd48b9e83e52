package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/store"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads"
	leadsdomain "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/repository"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/nlp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/onelink"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/whatsapp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/validator"
)

const testPhone = "+919876543210"

// scriptedAnalyzer returns a fixed analysis per call and delegates replies
// to the keyword analyzer so conversations read sensibly.
type scriptedAnalyzer struct {
	analyses []nlp.Analysis
	calls    int
	fallback *nlp.KeywordAnalyzer
}

func (a *scriptedAnalyzer) Analyze(_ context.Context, _ string, _ nlp.ConversationContext) (nlp.Analysis, error) {
	if a.calls >= len(a.analyses) {
		return nlp.Analysis{Intent: nlp.IntentOther, Emotion: "neutral"}, nil
	}
	analysis := a.analyses[a.calls]
	a.calls++
	return analysis, nil
}

func (a *scriptedAnalyzer) Reply(ctx context.Context, analysis nlp.Analysis, convo nlp.ConversationContext) (string, error) {
	return a.fallback.Reply(ctx, analysis, convo)
}

type capturingSender struct {
	sent []string
}

func (s *capturingSender) SendMessage(_ context.Context, _, message string) error {
	s.sent = append(s.sent, message)
	return nil
}

type recordingScheduler struct {
	bookingIDs []string
}

func (r *recordingScheduler) ScheduleReminders(_ context.Context, _, bookingID string) error {
	r.bookingIDs = append(r.bookingIDs, bookingID)
	return nil
}

func newTestOrchestrator(t *testing.T, analyzer nlp.Analyzer) (*Orchestrator, *leads.Service, *capturingSender, *recordingScheduler) {
	t.Helper()
	log := logger.New("development")

	leadSvc := leads.NewService(repository.NewMemory(), nil, log)
	bookingSvc := booking.NewService(
		store.NewMemoryStore(),
		booking.NewLocalMinter("https://calendly.com/acme/consultation"),
		leadSvc, nil, log, 24*time.Hour,
	)
	onelinkSvc := onelink.NewService(bookingSvc, log, time.Hour)
	sender := &capturingSender{}
	scheduler := &recordingScheduler{}

	orch := NewOrchestrator(leadSvc, bookingSvc, onelinkSvc, analyzer, sender, scheduler,
		nil, log, validator.New(), "https://bot.example.com/", "Acme Consultants")
	return orch, leadSvc, sender, scheduler
}

func completeFields() map[string]string {
	return map[string]string{
		leadsdomain.FieldService:        "Education India",
		leadsdomain.FieldEducationPlace: "Bangalore",
		leadsdomain.FieldCourse:         "MBA",
		leadsdomain.FieldName:           "Priya Sharma",
		leadsdomain.FieldNumber:         testPhone,
		leadsdomain.FieldEmail:          "priya@example.com",
		leadsdomain.FieldResidence:      "Mumbai",
	}
}

func TestFirstMessageCreatesLeadAndAdvancesStage(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{{Intent: nlp.IntentGreeting, Emotion: "positive"}},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, leadSvc, sender, _ := newTestOrchestrator(t, analyzer)

	err := orch.HandleIncoming(context.Background(), whatsapp.InboundMessage{From: "whatsapp:" + testPhone, Body: "Hi there"})
	if err != nil {
		t.Fatalf("HandleIncoming failed: %v", err)
	}

	lead, err := leadSvc.Get(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("expected lead to exist: %v", err)
	}
	if lead.Stage != leadsdomain.StageCollectingInfo {
		t.Fatalf("expected collecting_info after first message, got %s", lead.Stage)
	}
	if len(lead.Conversation) != 2 {
		t.Fatalf("expected lead and assistant turns recorded, got %d", len(lead.Conversation))
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(sender.sent))
	}
}

func TestExtractedEntitiesFillIntakeFields(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{{
			Intent: nlp.IntentLeadCollection,
			Entities: map[string]string{
				leadsdomain.FieldName:  "Priya Sharma",
				leadsdomain.FieldEmail: "priya@example.com",
			},
		}},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, leadSvc, _, _ := newTestOrchestrator(t, analyzer)

	if err := orch.HandleIncoming(context.Background(), whatsapp.InboundMessage{From: testPhone, Body: "I'm Priya Sharma, priya@example.com"}); err != nil {
		t.Fatalf("HandleIncoming failed: %v", err)
	}

	lead, _ := leadSvc.Get(context.Background(), testPhone)
	if lead.Fields[leadsdomain.FieldName] != "Priya Sharma" {
		t.Fatalf("expected extracted name on the lead, got %q", lead.Fields[leadsdomain.FieldName])
	}
	if lead.Fields[leadsdomain.FieldEmail] != "priya@example.com" {
		t.Fatalf("expected extracted email on the lead, got %q", lead.Fields[leadsdomain.FieldEmail])
	}
}

func TestBogusExtractedValuesAreDropped(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{{
			Intent: nlp.IntentLeadCollection,
			Entities: map[string]string{
				leadsdomain.FieldEmail:  "not-an-email",
				leadsdomain.FieldNumber: "12",
				leadsdomain.FieldName:   "Priya Sharma",
			},
		}},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, leadSvc, _, _ := newTestOrchestrator(t, analyzer)

	if err := orch.HandleIncoming(context.Background(), whatsapp.InboundMessage{From: testPhone, Body: "details"}); err != nil {
		t.Fatalf("HandleIncoming failed: %v", err)
	}

	lead, _ := leadSvc.Get(context.Background(), testPhone)
	if lead.Fields[leadsdomain.FieldEmail] != "" {
		t.Fatalf("invalid email must be dropped, got %q", lead.Fields[leadsdomain.FieldEmail])
	}
	if lead.Fields[leadsdomain.FieldNumber] != "" {
		t.Fatalf("invalid number must be dropped, got %q", lead.Fields[leadsdomain.FieldNumber])
	}
	if lead.Fields[leadsdomain.FieldName] != "Priya Sharma" {
		t.Fatalf("valid entities must survive, got %q", lead.Fields[leadsdomain.FieldName])
	}
}

func TestCompleteIntakeMovesToScheduling(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{{Intent: nlp.IntentLeadCollection, Entities: completeFields()}},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, leadSvc, _, _ := newTestOrchestrator(t, analyzer)

	if err := orch.HandleIncoming(context.Background(), whatsapp.InboundMessage{From: testPhone, Body: "here are all my details"}); err != nil {
		t.Fatalf("HandleIncoming failed: %v", err)
	}

	lead, _ := leadSvc.Get(context.Background(), testPhone)
	if lead.Stage != leadsdomain.StageScheduling {
		t.Fatalf("expected scheduling once intake is complete, got %s", lead.Stage)
	}
}

func TestSchedulingIntentDeliversOneClickLink(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{
			{Intent: nlp.IntentLeadCollection, Entities: completeFields()},
			{Intent: nlp.IntentScheduling},
		},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, _, sender, scheduler := newTestOrchestrator(t, analyzer)
	ctx := context.Background()

	if err := orch.HandleIncoming(ctx, whatsapp.InboundMessage{From: testPhone, Body: "here are all my details"}); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if err := orch.HandleIncoming(ctx, whatsapp.InboundMessage{From: testPhone, Body: "let's schedule a call"}); err != nil {
		t.Fatalf("scheduling turn failed: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("expected two outbound messages, got %d", len(sender.sent))
	}
	reply := sender.sent[1]
	if !strings.Contains(reply, "https://bot.example.com/booking/") {
		t.Fatalf("expected a one-click booking URL in the reply, got %q", reply)
	}
	if len(scheduler.bookingIDs) != 1 {
		t.Fatalf("expected reminders scheduled once, got %d", len(scheduler.bookingIDs))
	}
}

func TestRepeatedSchedulingReusesLinkWithoutNewReminders(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{
			{Intent: nlp.IntentLeadCollection, Entities: completeFields()},
			{Intent: nlp.IntentScheduling},
			{Intent: nlp.IntentScheduling},
		},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, _, sender, scheduler := newTestOrchestrator(t, analyzer)
	ctx := context.Background()

	for _, body := range []string{"here are all my details", "book a call please", "can you resend the link?"} {
		if err := orch.HandleIncoming(ctx, whatsapp.InboundMessage{From: testPhone, Body: body}); err != nil {
			t.Fatalf("turn %q failed: %v", body, err)
		}
	}

	if !strings.Contains(sender.sent[2], "https://bot.example.com/booking/") {
		t.Fatalf("expected the resend to still carry a booking URL, got %q", sender.sent[2])
	}
	if len(scheduler.bookingIDs) != 1 {
		t.Fatalf("reused links must not schedule reminders again, got %d", len(scheduler.bookingIDs))
	}
}

func TestCompletedLeadGetsClosingMessage(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{{Intent: nlp.IntentQuestion}},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, leadSvc, sender, _ := newTestOrchestrator(t, analyzer)
	ctx := context.Background()

	lead, err := leadSvc.GetOrCreate(ctx, testPhone)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	lead.MarkBooked("bk-1", "https://api.calendly.com/scheduled_events/ev-1", time.Now())
	if err := leadSvc.Save(ctx, lead); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := orch.HandleIncoming(ctx, whatsapp.InboundMessage{From: testPhone, Body: "when is my call?"}); err != nil {
		t.Fatalf("HandleIncoming failed: %v", err)
	}
	if !strings.Contains(sender.sent[0], "consultation has been scheduled") {
		t.Fatalf("expected the closing message, got %q", sender.sent[0])
	}

	lead, _ = leadSvc.Get(ctx, testPhone)
	if lead.Stage != leadsdomain.StageCompleted {
		t.Fatalf("completed lead must stay completed, got %s", lead.Stage)
	}
}

func TestCompletedLeadCanReopenWithNewInquiry(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		analyses: []nlp.Analysis{{Intent: nlp.IntentServiceInquiry}},
		fallback: nlp.NewKeywordAnalyzer("Acme Consultants"),
	}
	orch, leadSvc, _, _ := newTestOrchestrator(t, analyzer)
	ctx := context.Background()

	lead, _ := leadSvc.GetOrCreate(ctx, testPhone)
	lead.MarkBooked("bk-1", "ev-1", time.Now())
	if err := leadSvc.Save(ctx, lead); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := orch.HandleIncoming(ctx, whatsapp.InboundMessage{From: testPhone, Body: "do you also help with jobs in Europe?"}); err != nil {
		t.Fatalf("HandleIncoming failed: %v", err)
	}

	lead, _ = leadSvc.Get(ctx, testPhone)
	if lead.Stage != leadsdomain.StageCollectingInfo {
		t.Fatalf("service inquiry should reopen the conversation, got %s", lead.Stage)
	}
}

func TestMissingSenderRejected(t *testing.T) {
	analyzer := &scriptedAnalyzer{fallback: nlp.NewKeywordAnalyzer("Acme Consultants")}
	orch, _, sender, _ := newTestOrchestrator(t, analyzer)

	err := orch.HandleIncoming(context.Background(), whatsapp.InboundMessage{From: "   ", Body: "hello"})
	if err == nil {
		t.Fatal("expected an error for a message without a sender")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no reply should go out, got %d", len(sender.sent))
	}
}
