// Package repository persists leads. Two implementations exist: an
// in-memory map for standalone deployments and a Postgres-backed one for
// durable installs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
)

// ErrNotFound is returned when no lead exists for the contact key.
var ErrNotFound = errors.New("lead not found")

// Repository stores leads keyed by contact key.
type Repository interface {
	// GetByContact returns the lead for the contact key or ErrNotFound.
	GetByContact(ctx context.Context, contactKey string) (*domain.Lead, error)
	// Save inserts or replaces a lead.
	Save(ctx context.Context, lead *domain.Lead) error
	// List returns all leads, most recently updated first.
	List(ctx context.Context) ([]*domain.Lead, error)
	// CreatedSince returns leads created at or after the cutoff.
	CreatedSince(ctx context.Context, cutoff time.Time) ([]*domain.Lead, error)
}
