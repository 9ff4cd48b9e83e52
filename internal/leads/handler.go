package leads

import (
	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http/response"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/phone"

	"github.com/gin-gonic/gin"
)

// Handler exposes lead records to operators. All routes are admin only:
// conversation transcripts and contact details never sit on a public route.
type Handler struct {
	service *Service
}

// NewHandler creates the leads HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type leadSummary struct {
	ID            string `json:"id"`
	ContactKey    string `json:"contactKey"`
	Stage         string `json:"stage"`
	Name          string `json:"name,omitempty"`
	Service       string `json:"service,omitempty"`
	HasBooked     bool   `json:"hasBooked"`
	MessageCount  int    `json:"messageCount"`
	MissingFields int    `json:"missingFields"`
}

func summarize(lead *domain.Lead) leadSummary {
	return leadSummary{
		ID:            lead.ID.String(),
		ContactKey:    lead.ContactKey,
		Stage:         string(lead.Stage),
		Name:          lead.Fields[domain.FieldName],
		Service:       lead.Fields[domain.FieldService],
		HasBooked:     lead.HasBooked,
		MessageCount:  len(lead.Conversation),
		MissingFields: len(lead.MissingFields()),
	}
}

func (h *Handler) list(c *gin.Context) {
	all, err := h.service.List(c.Request.Context())
	if err != nil {
		response.DomainError(c, err)
		return
	}
	summaries := make([]leadSummary, 0, len(all))
	for _, lead := range all {
		summaries = append(summaries, summarize(lead))
	}
	response.OK(c, gin.H{"count": len(summaries), "leads": summaries})
}

func (h *Handler) get(c *gin.Context) {
	contactKey := phone.ContactKey(c.Param("phone"))
	lead, err := h.service.Get(c.Request.Context(), contactKey)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, lead)
}

// Module bundles the leads handler for route registration.
type Module struct {
	handler *Handler
}

// NewModule creates the leads HTTP module.
func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

var _ apphttp.Module = (*Module)(nil)

func (m *Module) Name() string { return "leads" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	admin := ctx.Admin.Group("/leads")
	admin.GET("", m.handler.list)
	admin.GET("/:phone", m.handler.get)
}
