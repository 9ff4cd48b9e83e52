package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/gin-gonic/gin"
)

type stubConfig struct{ verifyToken string }

func (s stubConfig) GetWhatsAppURL() string         { return "" }
func (s stubConfig) GetWhatsAppKey() string         { return "" }
func (s stubConfig) GetWhatsAppDeviceID() string    { return "" }
func (s stubConfig) GetWhatsAppVerifyToken() string { return s.verifyToken }

func newWebhookRouter(t *testing.T, verifyToken string) (*gin.Engine, *[]InboundMessage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var mu sync.Mutex
	received := &[]InboundMessage{}
	handler := MessageHandlerFunc(func(_ context.Context, msg InboundMessage) error {
		mu.Lock()
		defer mu.Unlock()
		*received = append(*received, msg)
		return nil
	})

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	module := NewModule(stubConfig{verifyToken: verifyToken}, handler, logger.New("development"))
	module.RegisterRoutes(&apphttp.RouterContext{
		Engine:             engine,
		V1:                 v1,
		Admin:              v1.Group("/admin"),
		WebhookRateLimiter: func(c *gin.Context) { c.Next() },
	})
	return engine, received
}

func TestVerifyHandshake(t *testing.T) {
	engine, _ := newWebhookRouter(t, "secret-token")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/whatsapp/webhook?hub.verify_token=secret-token&hub.challenge=challenge-42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "challenge-42" {
		t.Fatalf("expected echoed challenge, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/whatsapp/webhook?hub.verify_token=wrong", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad token, got %d", rec.Code)
	}
}

func TestReceiveMessage(t *testing.T) {
	engine, received := newWebhookRouter(t, "secret-token")

	body := `{"from":"whatsapp:+919876543210","message":"Hello!","id":"msg-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Token", "secret-token")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(*received) != 1 || (*received)[0].Body != "Hello!" {
		t.Fatalf("expected one handled message, got %v", *received)
	}
}

func TestReceiveRejectsBadToken(t *testing.T) {
	engine, received := newWebhookRouter(t, "secret-token")

	body := `{"from":"+919876543210","message":"Hello!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if len(*received) != 0 {
		t.Fatalf("unauthenticated message must not reach the handler")
	}
}

func TestReceiveAcknowledgesMalformedPayload(t *testing.T) {
	engine, received := newWebhookRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/whatsapp/webhook", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("malformed webhook must still be acknowledged, got %d", rec.Code)
	}
	if len(*received) != 0 {
		t.Fatalf("malformed payload must not reach the handler")
	}
}
