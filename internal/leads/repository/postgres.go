package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores leads durably. Intake fields and the conversation ride in
// jsonb columns since their shape varies per service.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Repository = (*Postgres)(nil)

const leadColumns = `id, contact_key, stage, fields, conversation, last_message_at,
	has_booked, booking_id, event_ref, booked_at, created_at, updated_at`

func (r *Postgres) GetByContact(ctx context.Context, contactKey string) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE contact_key = $1
	`, contactKey)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	return lead, nil
}

func (r *Postgres) Save(ctx context.Context, lead *domain.Lead) error {
	fields, err := json.Marshal(lead.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	conversation, err := json.Marshal(lead.Conversation)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO leads (
			id, contact_key, stage, fields, conversation, last_message_at,
			has_booked, booking_id, event_ref, booked_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (contact_key) DO UPDATE SET
			stage = EXCLUDED.stage,
			fields = EXCLUDED.fields,
			conversation = EXCLUDED.conversation,
			last_message_at = EXCLUDED.last_message_at,
			has_booked = EXCLUDED.has_booked,
			booking_id = EXCLUDED.booking_id,
			event_ref = EXCLUDED.event_ref,
			booked_at = EXCLUDED.booked_at,
			updated_at = EXCLUDED.updated_at
	`,
		lead.ID, lead.ContactKey, string(lead.Stage), fields, conversation, nullableTime(lead.LastMessageAt),
		lead.HasBooked, nullableString(lead.BookingID), nullableString(lead.EventRef), lead.BookedAt,
		lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save lead: %w", err)
	}
	return nil
}

func (r *Postgres) List(ctx context.Context) ([]*domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *Postgres) CreatedSince(ctx context.Context, cutoff time.Time) ([]*domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list recent leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]*domain.Lead, error) {
	var out []*domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		lead          domain.Lead
		stage         string
		fields        []byte
		conversation  []byte
		lastMessageAt *time.Time
		bookingID     *string
		eventRef      *string
	)
	err := row.Scan(
		&lead.ID, &lead.ContactKey, &stage, &fields, &conversation, &lastMessageAt,
		&lead.HasBooked, &bookingID, &eventRef, &lead.BookedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.Stage = domain.Stage(stage)
	if err := json.Unmarshal(fields, &lead.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(conversation, &lead.Conversation); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	if lastMessageAt != nil {
		lead.LastMessageAt = *lastMessageAt
	}
	if bookingID != nil {
		lead.BookingID = *bookingID
	}
	if eventRef != nil {
		lead.EventRef = *eventRef
	}
	return &lead, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
