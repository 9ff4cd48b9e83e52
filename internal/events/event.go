package events

import "time"

// Event names for cross-module subscriptions.
const (
	EventLeadMessageReceived = "lead.message_received"
	EventLeadStageChanged    = "lead.stage_changed"
	EventBookingLinkIssued   = "booking.link_issued"
	EventBookingCompleted    = "booking.completed"
	EventBookingLinkSwept    = "booking.links_swept"
	EventDailyReportSent     = "report.daily_sent"
)

// LeadMessageReceived is published for every inbound chat message after it has
// been recorded on the lead's conversation history.
type LeadMessageReceived struct {
	BaseEvent
	ContactKey string
	MessageID  string
	Length     int
}

func (LeadMessageReceived) EventName() string { return EventLeadMessageReceived }

// LeadStageChanged is published when a lead moves to a different conversation stage.
type LeadStageChanged struct {
	BaseEvent
	ContactKey string
	FromStage  string
	ToStage    string
}

func (LeadStageChanged) EventName() string { return EventLeadStageChanged }

// BookingLinkIssued is published when a new booking link is created for a lead.
// Reused links do not re-publish this event.
type BookingLinkIssued struct {
	BaseEvent
	BookingID  string
	ContactKey string
	ExpiresAt  time.Time
}

func (BookingLinkIssued) EventName() string { return EventBookingLinkIssued }

// BookingCompleted is published exactly once per booking when a verified
// booking-completed webhook deactivates its link.
type BookingCompleted struct {
	BaseEvent
	BookingID    string
	ContactKey   string
	EventRef     string
	InviteeEmail string
	StartTime    time.Time
	EndTime      time.Time
}

func (BookingCompleted) EventName() string { return EventBookingCompleted }

// BookingLinksSwept is published after a cleanup pass purged stale records.
type BookingLinksSwept struct {
	BaseEvent
	Purged int
}

func (BookingLinksSwept) EventName() string { return EventBookingLinkSwept }

// DailyReportSent is published after the daily lead summary email went out.
type DailyReportSent struct {
	BaseEvent
	Recipients int
	LeadCount  int
}

func (DailyReportSent) EventName() string { return EventDailyReportSent }
