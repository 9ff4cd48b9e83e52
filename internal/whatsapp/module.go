package whatsapp

import (
	"context"
	"net/http"

	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http/response"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/gin-gonic/gin"
)

// InboundMessage is one chat message delivered by the gateway webhook.
type InboundMessage struct {
	From      string `json:"from" binding:"required"`
	Body      string `json:"message" binding:"required"`
	MessageID string `json:"id"`
}

// MessageHandler consumes inbound chat messages. The conversation
// orchestrator implements this.
type MessageHandler interface {
	HandleIncoming(ctx context.Context, msg InboundMessage) error
}

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(ctx context.Context, msg InboundMessage) error

func (f MessageHandlerFunc) HandleIncoming(ctx context.Context, msg InboundMessage) error {
	return f(ctx, msg)
}

// Module receives inbound WhatsApp webhooks and hands messages to the
// conversation orchestrator.
type Module struct {
	cfg     config.WhatsAppConfig
	handler MessageHandler
	log     *logger.Logger
}

// NewModule creates the WhatsApp webhook module.
func NewModule(cfg config.WhatsAppConfig, handler MessageHandler, log *logger.Logger) *Module {
	return &Module{cfg: cfg, handler: handler, log: log}
}

var _ apphttp.Module = (*Module)(nil)

func (m *Module) Name() string { return "whatsapp" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/whatsapp")
	group.GET("/webhook", m.verify)
	group.POST("/webhook", ctx.WebhookRateLimiter, m.receive)
}

// verify answers the gateway's subscription handshake: echo the challenge
// when the verify token matches.
func (m *Module) verify(c *gin.Context) {
	token := c.Query("hub.verify_token")
	if token == "" {
		token = c.Query("token")
	}
	if m.cfg.GetWhatsAppVerifyToken() == "" || token != m.cfg.GetWhatsAppVerifyToken() {
		response.Error(c, http.StatusForbidden, "verification failed", nil)
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

func (m *Module) receive(c *gin.Context) {
	if verifyToken := m.cfg.GetWhatsAppVerifyToken(); verifyToken != "" {
		if c.GetHeader("X-Webhook-Token") != verifyToken {
			response.Error(c, http.StatusUnauthorized, "invalid webhook token", nil)
			return
		}
	}

	var msg InboundMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		m.log.WebhookDropped("whatsapp", "malformed payload: "+err.Error())
		response.OK(c, gin.H{"received": true})
		return
	}

	if err := m.handler.HandleIncoming(c.Request.Context(), msg); err != nil {
		// The conversation layer absorbs its own failures; an error here
		// means we could not even record the message.
		m.log.WithContext(c.Request.Context()).Error("inbound message handling failed",
			"from", msg.From, "error", err.Error())
	}
	response.OK(c, gin.H{"received": true})
}
