package booking

import (
	"net/http"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http/response"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler exposes the booking-link lifecycle over HTTP.
type Handler struct {
	service *Service
	sweeper *Sweeper
	log     *logger.Logger
}

// NewHandler creates the booking HTTP handler.
func NewHandler(service *Service, sweeper *Sweeper, log *logger.Logger) *Handler {
	return &Handler{service: service, sweeper: sweeper, log: log}
}

// Webhook receives provider booking notifications. It always acknowledges
// with 200 unless persistence fails, so the provider does not retry events
// we have deliberately dropped.
func (h *Handler) Webhook(c *gin.Context) {
	var event WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.log.WebhookDropped("calendly", "malformed payload: "+err.Error())
		response.OK(c, gin.H{"received": true})
		return
	}

	if err := h.service.ProcessWebhook(c.Request.Context(), event); err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{"received": true})
}

// ValidateLink checks a booking link by its ID.
func (h *Handler) ValidateLink(c *gin.Context) {
	result, err := h.service.Validate(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, result)
}

// LinkStatus reports whether a single link is currently active.
func (h *Handler) LinkStatus(c *gin.Context) {
	link, err := h.service.Link(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{
		"bookingId":   link.BookingID,
		"state":       link.State,
		"isActive":    link.IsActive(),
		"expiresAt":   link.ExpiresAt,
		"usageCount":  link.UsageCount,
		"accessCount": link.AccessCount,
	})
}

// LinksForPhone lists every stored link for a phone number.
func (h *Handler) LinksForPhone(c *gin.Context) {
	links, err := h.service.LinksForContact(c.Request.Context(), c.Param("phone"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{"count": len(links), "links": links})
}

// ValidatePhone reports whether a phone number may receive a new booking.
func (h *Handler) ValidatePhone(c *gin.Context) {
	status, err := h.service.StatusForContact(c.Request.Context(), c.Param("phone"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, status)
}

// HistoryForPhone lists a phone number's completed bookings.
func (h *Handler) HistoryForPhone(c *gin.Context) {
	entries, err := h.service.HistoryForContact(c.Request.Context(), c.Param("phone"))
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{"count": len(entries), "history": entries})
}

// DeactivateLink manually retires a link. Admin only.
func (h *Handler) DeactivateLink(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("bookingID")); err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{"deactivated": true})
}

// SystemStatus reports link counts per state. Admin only.
func (h *Handler) SystemStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, status)
}

// Cleanup triggers a sweep outside the schedule. Admin only.
func (h *Handler) Cleanup(c *gin.Context) {
	purged, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "cleanup failed", nil)
		return
	}
	response.OK(c, gin.H{"purged": purged})
}
