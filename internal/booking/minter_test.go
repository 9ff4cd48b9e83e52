package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking/calendly"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

func TestLocalMinterBuildsTrackedURL(t *testing.T) {
	minter := NewLocalMinter("https://calendly.com/dream-axis/30min")
	expiresAt := time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC)

	minted, err := minter.Mint(context.Background(), testLead(), "bk-123", expiresAt)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if minted.EventTypeURI != "" {
		t.Fatalf("local mint must not claim a provider resource")
	}

	parsed, err := url.Parse(minted.URL)
	if err != nil {
		t.Fatalf("parse minted URL: %v", err)
	}
	params := parsed.Query()
	for key, want := range map[string]string{
		"name":         "Aarav Sharma",
		"email":        "aarav@example.com",
		"phone":        testPhone,
		"utm_source":   "whatsapp_bot",
		"utm_medium":   "chat",
		"utm_campaign": "lead_booking",
		"booking_id":   "bk-123",
		"one_time_use": "true",
		"expires_at":   "2026-09-02T12:00:00Z",
	} {
		if got := params.Get(key); got != want {
			t.Fatalf("param %s: expected %q, got %q", key, want, got)
		}
	}
}

func TestLocalMinterSkipsEmptyPrefill(t *testing.T) {
	minter := NewLocalMinter("https://calendly.com/dream-axis/30min")
	lead := testLead()
	lead.Name = ""
	lead.Email = ""

	minted, err := minter.Mint(context.Background(), lead, "bk-123", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	params, err := url.ParseQuery(strings.SplitN(minted.URL, "?", 2)[1])
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if params.Has("name") || params.Has("email") {
		t.Fatalf("empty prefill fields must be omitted: %s", minted.URL)
	}
}

func TestProviderMinterDecoratesProviderURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scheduling_links" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resource":{"booking_url":"https://calendly.com/d/abc-xyz","owner":"https://api.calendly.com/event_types/et-1"}}`))
	}))
	defer srv.Close()

	client := calendly.NewClient("test-key", "https://api.calendly.com/event_types/et-1").WithBaseURL(srv.URL)
	minter := NewProviderMinter(client, NewLocalMinter("https://calendly.com/dream-axis/30min"), logger.New("development"))

	minted, err := minter.Mint(context.Background(), testLead(), "bk-123", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if minted.EventTypeURI != "https://api.calendly.com/event_types/et-1" {
		t.Fatalf("expected provider resource URI, got %q", minted.EventTypeURI)
	}
	if !strings.HasPrefix(minted.URL, "https://calendly.com/d/abc-xyz?") {
		t.Fatalf("expected provider URL, got %s", minted.URL)
	}
	if !strings.Contains(minted.URL, "booking_id=bk-123") {
		t.Fatalf("provider URL must still carry the booking id: %s", minted.URL)
	}
}

func TestProviderMinterFallsBackWhenProviderFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := calendly.NewClient("test-key", "https://api.calendly.com/event_types/et-1").WithBaseURL(srv.URL)
	minter := NewProviderMinter(client, NewLocalMinter("https://calendly.com/dream-axis/30min"), logger.New("development"))

	minted, err := minter.Mint(context.Background(), testLead(), "bk-123", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("fallback mint must not fail: %v", err)
	}
	if !strings.HasPrefix(minted.URL, "https://calendly.com/dream-axis/30min?") {
		t.Fatalf("expected local fallback URL, got %s", minted.URL)
	}
	if minted.EventTypeURI != "" {
		t.Fatalf("fallback mint must not claim a provider resource")
	}
}
