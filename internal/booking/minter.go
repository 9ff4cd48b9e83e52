package booking

import (
	"context"
	"net/url"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/calendly"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// MintedLink is a booking URL ready to hand to a lead. EventTypeURI is set
// only when the scheduling provider minted the URL.
type MintedLink struct {
	URL          string
	EventTypeURI string
}

// LinkMinter produces the booking URL for a new link. Minting must not fail
// the issue flow: implementations either always succeed or fall back to a
// local URL internally.
type LinkMinter interface {
	Mint(ctx context.Context, lead domain.LeadSnapshot, bookingID string, expiresAt time.Time) (MintedLink, error)
}

// LocalMinter builds tracked booking URLs on top of a fixed scheduling page.
// Prefill and tracking parameters ride along as query parameters so the
// provider echoes the booking ID back in webhook payloads.
type LocalMinter struct {
	baseURL string
}

// NewLocalMinter creates a minter that decorates the given scheduling page URL.
func NewLocalMinter(baseURL string) *LocalMinter {
	return &LocalMinter{baseURL: baseURL}
}

var _ LinkMinter = (*LocalMinter)(nil)

func (m *LocalMinter) Mint(_ context.Context, lead domain.LeadSnapshot, bookingID string, expiresAt time.Time) (MintedLink, error) {
	params := url.Values{}
	if lead.Name != "" {
		params.Set("name", lead.Name)
	}
	if lead.Email != "" {
		params.Set("email", lead.Email)
	}
	if lead.Phone != "" {
		params.Set("phone", lead.Phone)
	}
	params.Set("utm_source", "whatsapp_bot")
	params.Set("utm_medium", "chat")
	params.Set("utm_campaign", "lead_booking")
	params.Set("booking_id", bookingID)
	params.Set("one_time_use", "true")
	params.Set("expires_at", expiresAt.UTC().Format(time.RFC3339))

	return MintedLink{URL: m.baseURL + "?" + params.Encode()}, nil
}

// ProviderMinter asks the scheduling provider for a true single-use link and
// falls back to the local minter when the provider is slow or down. The lead
// never waits longer than the mint timeout for a URL.
type ProviderMinter struct {
	client  *calendly.Client
	local   *LocalMinter
	log     *logger.Logger
	timeout time.Duration
}

// NewProviderMinter wraps the provider client with a local fallback.
func NewProviderMinter(client *calendly.Client, local *LocalMinter, log *logger.Logger) *ProviderMinter {
	return &ProviderMinter{client: client, local: local, log: log, timeout: 5 * time.Second}
}

var _ LinkMinter = (*ProviderMinter)(nil)

func (m *ProviderMinter) Mint(ctx context.Context, lead domain.LeadSnapshot, bookingID string, expiresAt time.Time) (MintedLink, error) {
	mintCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	providerLink, err := m.client.CreateSingleUseLink(mintCtx)
	if err != nil {
		m.log.ExternalCallFailed("calendly", "create_scheduling_link", err)
		return m.local.Mint(ctx, lead, bookingID, expiresAt)
	}

	// Keep prefill and tracking on the provider URL too so webhook
	// correlation works the same on both mint paths.
	decorated := decorateURL(providerLink.BookingURL, lead, bookingID, expiresAt)
	return MintedLink{URL: decorated, EventTypeURI: providerLink.OwnerURI}, nil
}

func decorateURL(raw string, lead domain.LeadSnapshot, bookingID string, expiresAt time.Time) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	params := parsed.Query()
	if lead.Name != "" {
		params.Set("name", lead.Name)
	}
	if lead.Email != "" {
		params.Set("email", lead.Email)
	}
	if lead.Phone != "" {
		params.Set("phone", lead.Phone)
	}
	params.Set("utm_source", "whatsapp_bot")
	params.Set("utm_medium", "chat")
	params.Set("utm_campaign", "lead_booking")
	params.Set("booking_id", bookingID)
	params.Set("one_time_use", "true")
	params.Set("expires_at", expiresAt.UTC().Format(time.RFC3339))
	parsed.RawQuery = params.Encode()
	return parsed.String()
}
