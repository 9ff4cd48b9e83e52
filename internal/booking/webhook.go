package booking

import "time"

// EventInviteeCreated is the provider event fired when a booking completes.
const EventInviteeCreated = "invitee.created"

// WebhookEvent is the scheduling provider's webhook envelope.
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// WebhookPayload carries the invitee and the scheduled event.
type WebhookPayload struct {
	Invitee Invitee        `json:"invitee"`
	Event   ScheduledEvent `json:"event"`
}

// Invitee is the person who booked. The tracking block echoes back the
// query parameters from the booking URL, which is how a provider-side
// booking is correlated to the link that produced it.
type Invitee struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Tracking Tracking `json:"tracking"`
}

// Tracking holds the echoed UTM parameters.
type Tracking struct {
	UTMParameters map[string]string `json:"utm_parameters"`
}

// ScheduledEvent describes the booked time slot.
type ScheduledEvent struct {
	URI       string    `json:"uri"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
