// Package domain contains the booking-link entities and state machine.
package domain

import "time"

// State is the lifecycle state of a booking link.
type State string

const (
	// StateActive means the link can still be used to book.
	StateActive State = "active"
	// StateUsed means a booking was completed through this link.
	StateUsed State = "used"
	// StateExpired means the link timed out or was manually deactivated
	// without ever being used.
	StateExpired State = "expired"
)

// LeadSnapshot carries the lead details captured at link-issue time.
// The snapshot is frozen on the link so later edits to the lead record
// never change an already-minted URL.
type LeadSnapshot struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Residence string `json:"residence,omitempty"`
	Service   string `json:"service,omitempty"`
}

// Link is a one-time-use booking link issued to a single lead.
type Link struct {
	BookingID  string       `json:"bookingId"`
	ContactKey string       `json:"contactKey"`
	Lead       LeadSnapshot `json:"lead"`
	URL        string       `json:"url"`
	State      State        `json:"state"`

	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`

	UsageCount int `json:"usageCount"`
	MaxUsage   int `json:"maxUsage"`

	AccessCount    int        `json:"accessCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`

	// EventTypeURI is set when the link was minted through the scheduling
	// provider and identifies the provider-side resource to clean up.
	EventTypeURI string `json:"eventTypeUri,omitempty"`
}

// IsActive reports whether the link is still in the active state.
// Callers that care about time-based expiry must also check ExpiredAt.
func (l *Link) IsActive() bool {
	return l.State == StateActive
}

// ExpiredAt reports whether the link's lifetime has elapsed at the given
// instant. Expiry is derived from ExpiresAt, never from a background job,
// so a link is unusable the moment its deadline passes even if its stored
// state still says active.
func (l *Link) ExpiredAt(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// UsageExhausted reports whether the link reached its usage cap.
func (l *Link) UsageExhausted() bool {
	return l.UsageCount >= l.MaxUsage
}

// Deactivate transitions the link out of the active state. The transition
// is monotonic: a link that already left active keeps its original
// terminal state and deactivation timestamp.
func (l *Link) Deactivate(to State, now time.Time) {
	if l.State != StateActive {
		return
	}
	l.State = to
	t := now
	l.DeactivatedAt = &t
}

// MarkUsed consumes the link for a completed booking.
func (l *Link) MarkUsed(now time.Time) {
	l.UsageCount++
	l.Deactivate(StateUsed, now)
}

// RecordAccess notes that the link URL was opened.
func (l *Link) RecordAccess(now time.Time) {
	l.AccessCount++
	t := now
	l.LastAccessedAt = &t
}

// PurgeEligible reports whether the sweeper may delete this record.
// Active links are never purge-eligible regardless of age; only links that
// left the active state and sat in a terminal state past the retention
// window qualify.
func (l *Link) PurgeEligible(now time.Time, retention time.Duration) bool {
	if l.State == StateActive {
		return false
	}
	if l.DeactivatedAt == nil {
		return false
	}
	return now.Sub(*l.DeactivatedAt) > retention
}

// HistoryEntry is the permanent record of a completed booking. It outlives
// the link that produced it and is the source of truth for whether a
// contact has ever booked.
type HistoryEntry struct {
	BookingID    string    `json:"bookingId"`
	ContactKey   string    `json:"contactKey"`
	EventRef     string    `json:"eventRef,omitempty"`
	InviteeName  string    `json:"inviteeName,omitempty"`
	InviteeEmail string    `json:"inviteeEmail,omitempty"`
	StartTime    time.Time `json:"startTime,omitempty"`
	EndTime      time.Time `json:"endTime,omitempty"`
	BookedAt     time.Time `json:"bookedAt"`
}

// Validation reasons returned to callers checking a link before use.
const (
	ReasonNotFound      = "booking link not found"
	ReasonAlreadyUsed   = "booking link has already been used"
	ReasonExpired       = "booking link has expired"
	ReasonUsageExceeded = "booking link usage limit reached"
	ReasonAlreadyBooked = "an appointment has already been booked for this contact"
	ReasonValid         = "booking link is valid"
)

// ValidationResult explains whether a link can still be used and, when it
// cannot, exactly why.
type ValidationResult struct {
	IsValid         bool   `json:"isValid"`
	CanBook         bool   `json:"canBook"`
	Reason          string `json:"reason"`
	WasUsed         bool   `json:"wasUsed,omitempty"`
	Expired         bool   `json:"expired,omitempty"`
	UsageExceeded   bool   `json:"usageExceeded,omitempty"`
	AlreadyBooked   bool   `json:"alreadyBooked,omitempty"`
	BookingID       string `json:"bookingId,omitempty"`
	RemainingUsage  int    `json:"remainingUsage,omitempty"`
	SecondsToExpiry int64  `json:"secondsToExpiry,omitempty"`
}
