// Package conversation orchestrates the WhatsApp intake flow: it records
// inbound messages, runs them through the analyzer, advances the lead
// through its stages, and hands out booking links when the lead is ready.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	bookingdomain "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads"
	leadsdomain "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/nlp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/onelink"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/whatsapp"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/phone"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/validator"
)

// ReminderScheduler queues follow-up nudges after a booking link goes out.
// The asynq-backed scheduler implements this; a nil scheduler disables
// reminders.
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, contactKey, bookingID string) error
}

// Orchestrator drives one conversation turn per inbound message.
type Orchestrator struct {
	leads     *leads.Service
	booking   *booking.Service
	onelink   *onelink.Service
	analyzer  nlp.Analyzer
	sender    whatsapp.Sender
	reminders ReminderScheduler
	bus       events.Bus
	log       *logger.Logger
	val       *validator.Validator

	publicBaseURL string
	companyName   string

	now func() time.Time
}

// NewOrchestrator wires the conversation flow. reminders may be nil.
func NewOrchestrator(
	leadSvc *leads.Service,
	bookingSvc *booking.Service,
	onelinkSvc *onelink.Service,
	analyzer nlp.Analyzer,
	sender whatsapp.Sender,
	reminders ReminderScheduler,
	bus events.Bus,
	log *logger.Logger,
	val *validator.Validator,
	publicBaseURL, companyName string,
) *Orchestrator {
	return &Orchestrator{
		leads:         leadSvc,
		booking:       bookingSvc,
		onelink:       onelinkSvc,
		analyzer:      analyzer,
		sender:        sender,
		reminders:     reminders,
		bus:           bus,
		log:           log,
		val:           val,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		companyName:   companyName,
		now:           time.Now,
	}
}

var _ whatsapp.MessageHandler = (*Orchestrator)(nil)

// HandleIncoming processes one inbound chat message end to end. External
// failures (model, provider, gateway) degrade the reply, they never lose
// the message: by the time this returns, the turn is on the lead's record.
func (o *Orchestrator) HandleIncoming(ctx context.Context, msg whatsapp.InboundMessage) error {
	contactKey := phone.ContactKey(msg.From)
	if contactKey == "" {
		return apperr.Validation("inbound message has no sender")
	}
	log := o.log.WithContact(contactKey)

	lead, err := o.leads.GetOrCreate(ctx, contactKey)
	if err != nil {
		return err
	}

	now := o.now()
	lead.AppendMessage("lead", msg.Body, now)

	if o.bus != nil {
		o.bus.Publish(ctx, events.LeadMessageReceived{
			BaseEvent:  events.NewBaseEvent(),
			ContactKey: contactKey,
			MessageID:  msg.MessageID,
			Length:     len(msg.Body),
		})
	}

	convo := nlp.ConversationContext{
		Stage:         string(lead.Stage),
		Fields:        lead.Fields,
		MissingFields: lead.MissingFields(),
	}
	analysis, err := o.analyzer.Analyze(ctx, msg.Body, convo)
	if err != nil {
		// Analyzers fall back internally; reaching here means even the
		// fallback failed. Carry on with an empty reading.
		log.Error("message analysis failed", "error", err.Error())
		analysis = nlp.Analysis{Intent: nlp.IntentOther, Emotion: "neutral"}
	}

	lead.MergeFields(o.sanitizeEntities(analysis.Entities))

	reply := o.advance(ctx, lead, analysis, msg.Body, log)

	lead.AppendMessage("assistant", reply, o.now())
	if err := o.leads.Save(ctx, lead); err != nil {
		return err
	}

	if err := o.sender.SendMessage(ctx, contactKey, reply); err != nil {
		// The turn is recorded; delivery failures are logged and the
		// gateway can be retried on the next message.
		log.ExternalCallFailed("whatsapp", "send_message", err)
	}
	return nil
}

// sanitizeEntities drops extracted values the analyzer got wrong: emails
// that are not emails and phone numbers that do not normalize to E.164.
func (o *Orchestrator) sanitizeEntities(entities map[string]string) map[string]string {
	for key, value := range entities {
		switch key {
		case leadsdomain.FieldEmail:
			if o.val.Var(value, "email") != nil {
				delete(entities, key)
			}
		case leadsdomain.FieldNumber:
			if o.val.Var(phone.NormalizeE164(value), "e164") != nil {
				delete(entities, key)
			}
		}
	}
	return entities
}

// advance applies the stage machine for one turn and returns the reply.
func (o *Orchestrator) advance(ctx context.Context, lead *leadsdomain.Lead, analysis nlp.Analysis, body string, log *logger.Logger) string {
	// A completed lead asking new questions re-enters the intake flow.
	if lead.Stage == leadsdomain.StageCompleted {
		if analysis.Intent == nlp.IntentServiceInquiry || analysis.Intent == nlp.IntentLeadCollection {
			o.changeStage(ctx, lead, leadsdomain.StageCollectingInfo)
			return o.reply(ctx, analysis, lead)
		}
		return o.completedMessage()
	}

	if lead.Stage == leadsdomain.StageInitial {
		o.changeStage(ctx, lead, leadsdomain.StageCollectingInfo)
	}

	if lead.Stage == leadsdomain.StageCollectingInfo && len(lead.MissingFields()) == 0 {
		o.changeStage(ctx, lead, leadsdomain.StageScheduling)
	}

	if lead.Stage == leadsdomain.StageScheduling && o.wantsToSchedule(analysis, body) {
		return o.offerBookingLink(ctx, lead, log)
	}

	return o.reply(ctx, analysis, lead)
}

func (o *Orchestrator) wantsToSchedule(analysis nlp.Analysis, body string) bool {
	if analysis.Intent == nlp.IntentScheduling {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "schedule") || strings.Contains(lower, "call")
}

// offerBookingLink issues (or reuses) the lead's one-time booking link,
// wraps it in a one-click redirect, and queues reminders.
func (o *Orchestrator) offerBookingLink(ctx context.Context, lead *leadsdomain.Lead, log *logger.Logger) string {
	snapshot := bookingdomain.LeadSnapshot{
		Name:      lead.Fields[leadsdomain.FieldName],
		Email:     lead.Fields[leadsdomain.FieldEmail],
		Phone:     lead.ContactKey,
		Residence: lead.Fields[leadsdomain.FieldResidence],
		Service:   lead.Fields[leadsdomain.FieldService],
	}

	link, reused, err := o.booking.Issue(ctx, snapshot)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return "It looks like you already have a consultation booked with us! If you need to reschedule or have any questions, just let me know."
		}
		log.Error("issue booking link failed", "error", err.Error())
		return "I'd love to schedule a call with you! However, I'm having trouble generating the booking link right now. Could you please try again in a moment?"
	}

	token := o.onelink.Wrap(link.URL)
	oneClickURL := fmt.Sprintf("%s/booking/%s", o.publicBaseURL, token)

	if !reused && o.reminders != nil {
		if err := o.reminders.ScheduleReminders(ctx, lead.ContactKey, link.BookingID); err != nil {
			log.Error("schedule reminders failed", "booking_id", link.BookingID, "error", err.Error())
		}
	}

	return fmt.Sprintf("Perfect! Here's your personalized booking link (it expires after first use for security):\n\n%s\n\nClick the link to schedule your consultation. I'm looking forward to our call!", oneClickURL)
}

func (o *Orchestrator) reply(ctx context.Context, analysis nlp.Analysis, lead *leadsdomain.Lead) string {
	convo := nlp.ConversationContext{
		Stage:         string(lead.Stage),
		Fields:        lead.Fields,
		MissingFields: lead.MissingFields(),
	}
	text, err := o.analyzer.Reply(ctx, analysis, convo)
	if err != nil || strings.TrimSpace(text) == "" {
		return fmt.Sprintf("I'm here to help you with %s's education and job services. Tell me a bit about yourself and what you're looking for!", o.companyName)
	}
	return text
}

func (o *Orchestrator) completedMessage() string {
	return fmt.Sprintf("Thank you for your interest in our services!\n\nYour consultation has been scheduled and you should have received the booking link.\n\nIf you have any questions or need to reschedule, just let me know!\n\nBest regards,\n%s", o.companyName)
}

func (o *Orchestrator) changeStage(ctx context.Context, lead *leadsdomain.Lead, to leadsdomain.Stage) {
	if err := o.leads.ChangeStage(ctx, lead, to); err != nil {
		o.log.WithContact(lead.ContactKey).Error("stage change failed",
			"to", string(to), "error", err.Error())
	}
}
