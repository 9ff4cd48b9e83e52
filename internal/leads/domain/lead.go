// Package domain contains the lead entity and the conversation stage machine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage is the lead's position in the intake conversation.
type Stage string

const (
	StageInitial        Stage = "initial"
	StageCollectingInfo Stage = "collecting_info"
	StageScheduling     Stage = "scheduling"
	StageCompleted      Stage = "completed"
)

// Valid reports whether the stage is one of the known values.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageCollectingInfo, StageScheduling, StageCompleted:
		return true
	}
	return false
}

// Service names with dedicated intake field sets.
const (
	ServiceEducationIndia  = "Education India"
	ServiceEducationAbroad = "Education Abroad"
	ServiceJobEurope       = "Job Europe"
)

// Intake field keys collected during the conversation.
const (
	FieldService          = "service"
	FieldName             = "name"
	FieldNumber           = "number"
	FieldEmail            = "email"
	FieldResidence        = "residence"
	FieldCourse           = "course"
	FieldEducationPlace   = "education_place"
	FieldEducationCountry = "education_country"
	FieldWorkType         = "work_type"
)

// RequiredFields returns the intake fields a lead must provide before the
// conversation can move to scheduling. The set depends on which service the
// lead is interested in.
func RequiredFields(service string) []string {
	switch service {
	case ServiceEducationIndia:
		return []string{FieldService, FieldEducationPlace, FieldCourse, FieldName, FieldNumber, FieldEmail, FieldResidence}
	case ServiceEducationAbroad:
		return []string{FieldService, FieldEducationCountry, FieldCourse, FieldName, FieldNumber, FieldEmail, FieldResidence}
	case ServiceJobEurope:
		return []string{FieldService, FieldWorkType, FieldName, FieldNumber, FieldEmail, FieldResidence}
	default:
		return []string{FieldService, FieldName, FieldNumber, FieldEmail, FieldResidence}
	}
}

// Message is one turn of the WhatsApp conversation.
type Message struct {
	Role string    `json:"role"` // "lead" or "assistant"
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

// Lead is a prospect talking to the assistant. Fields holds the intake
// answers keyed by the Field* constants.
type Lead struct {
	ID         uuid.UUID         `json:"id"`
	ContactKey string            `json:"contactKey"`
	Stage      Stage             `json:"stage"`
	Fields     map[string]string `json:"fields"`

	Conversation  []Message `json:"conversation"`
	LastMessageAt time.Time `json:"lastMessageAt"`

	HasBooked bool       `json:"hasBooked"`
	BookingID string     `json:"bookingId,omitempty"`
	EventRef  string     `json:"eventRef,omitempty"`
	BookedAt  *time.Time `json:"bookedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewLead creates a lead in the initial stage.
func NewLead(contactKey string, now time.Time) *Lead {
	return &Lead{
		ID:         uuid.New(),
		ContactKey: contactKey,
		Stage:      StageInitial,
		Fields:     make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MissingFields lists the required intake fields the lead has not answered
// yet, in collection order.
func (l *Lead) MissingFields() []string {
	var missing []string
	for _, field := range RequiredFields(l.Fields[FieldService]) {
		if l.Fields[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// MergeFields copies non-empty extracted values into the lead without
// overwriting answers already given.
func (l *Lead) MergeFields(extracted map[string]string) (changed bool) {
	for key, value := range extracted {
		if value == "" {
			continue
		}
		if l.Fields[key] != "" {
			continue
		}
		l.Fields[key] = value
		changed = true
	}
	return changed
}

// AppendMessage records a conversation turn.
func (l *Lead) AppendMessage(role, body string, at time.Time) {
	l.Conversation = append(l.Conversation, Message{Role: role, Body: body, At: at})
	l.LastMessageAt = at
}

// MarkBooked moves the lead to the completed stage with its booking outcome.
func (l *Lead) MarkBooked(bookingID, eventRef string, at time.Time) {
	l.HasBooked = true
	l.BookingID = bookingID
	l.EventRef = eventRef
	t := at
	l.BookedAt = &t
	l.Stage = StageCompleted
}
