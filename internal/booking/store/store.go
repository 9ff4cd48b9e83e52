// Package store provides persistence for booking links and booking history.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"
)

// ErrLinkNotFound is returned when no link exists for the given booking ID.
var ErrLinkNotFound = errors.New("booking link not found")

// LinkStore persists booking links and the permanent booking history.
// Implementations must be safe for concurrent use.
type LinkStore interface {
	// Put inserts or replaces a link keyed by its booking ID.
	Put(ctx context.Context, link *domain.Link) error
	// Get returns the link for the booking ID or ErrLinkNotFound.
	Get(ctx context.Context, bookingID string) (*domain.Link, error)
	// Delete removes a link record. Deleting a missing link is not an error.
	Delete(ctx context.Context, bookingID string) error

	// ActiveByContact returns the contact's active link, or ErrLinkNotFound
	// when the contact has none.
	ActiveByContact(ctx context.Context, contactKey string) (*domain.Link, error)
	// ByContact returns every stored link for the contact, newest first.
	ByContact(ctx context.Context, contactKey string) ([]*domain.Link, error)
	// All returns every stored link. Used by the sweeper and status endpoints.
	All(ctx context.Context) ([]*domain.Link, error)

	// AppendHistory records a completed booking permanently.
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	// HistoryByContact returns the contact's completed bookings, newest first.
	HistoryByContact(ctx context.Context, contactKey string) ([]domain.HistoryEntry, error)
	// HasBooked reports whether the contact has ever completed a booking.
	HasBooked(ctx context.Context, contactKey string) (bool, error)
	// PruneHistory removes history entries booked before the cutoff and
	// returns how many were removed. A zero cutoff prunes nothing.
	PruneHistory(ctx context.Context, cutoff time.Time) (int, error)
}
