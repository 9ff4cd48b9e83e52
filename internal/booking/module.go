package booking

import (
	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
)

// Module bundles the booking handler for route registration.
type Module struct {
	handler *Handler
}

// NewModule creates the booking HTTP module.
func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

var _ apphttp.Module = (*Module)(nil)

func (m *Module) Name() string { return "booking" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/booking")
	group.POST("/webhook", ctx.WebhookRateLimiter, m.handler.Webhook)
	group.GET("/links/:bookingID/validate", m.handler.ValidateLink)
	group.GET("/links/:bookingID/status", m.handler.LinkStatus)
	group.GET("/bookings/:phone", m.handler.LinksForPhone)
	group.GET("/validate/:phone", m.handler.ValidatePhone)
	group.GET("/history/:phone", m.handler.HistoryForPhone)

	admin := ctx.Admin.Group("/booking")
	admin.POST("/links/:bookingID/deactivate", m.handler.DeactivateLink)
	admin.GET("/status", m.handler.SystemStatus)
	admin.POST("/cleanup", m.handler.Cleanup)
}
