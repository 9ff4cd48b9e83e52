// Package calendly is a thin client for the scheduling provider's API.
// Calls are best effort: callers fall back to a locally built link when the
// provider is slow or down.
package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.calendly.com"

// Client talks to the Calendly v2 API.
type Client struct {
	baseURL      string
	apiKey       string
	eventTypeURI string
	httpClient   *http.Client
}

// NewClient creates a Calendly API client for the given event type.
func NewClient(apiKey, eventTypeURI string) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		apiKey:       apiKey,
		eventTypeURI: eventTypeURI,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// SchedulingLink is a provider-minted single-use booking URL.
type SchedulingLink struct {
	BookingURL string
	OwnerURI   string
}

type schedulingLinkRequest struct {
	MaxEventCount int    `json:"max_event_count"`
	Owner         string `json:"owner"`
	OwnerType     string `json:"owner_type"`
}

type schedulingLinkResponse struct {
	Resource struct {
		BookingURL string `json:"booking_url"`
		Owner      string `json:"owner"`
	} `json:"resource"`
}

// CreateSingleUseLink mints a scheduling link capped at one event.
func (c *Client) CreateSingleUseLink(ctx context.Context) (*SchedulingLink, error) {
	body, err := json.Marshal(schedulingLinkRequest{
		MaxEventCount: 1,
		Owner:         c.eventTypeURI,
		OwnerType:     "EventType",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scheduling link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scheduling_links", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scheduling link request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call calendly: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("calendly returned %d: %s", resp.StatusCode, snippet)
	}

	var out schedulingLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scheduling link response: %w", err)
	}
	if out.Resource.BookingURL == "" {
		return nil, fmt.Errorf("calendly response missing booking_url")
	}
	return &SchedulingLink{BookingURL: out.Resource.BookingURL, OwnerURI: out.Resource.Owner}, nil
}

// CancelEvent cancels a scheduled event by its URI. Best effort; callers
// log failures and move on.
func (c *Client) CancelEvent(ctx context.Context, eventURI, reason string) error {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return fmt.Errorf("marshal cancellation: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, eventURI+"/cancellation", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build cancellation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call calendly: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendly returned %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
