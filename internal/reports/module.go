package reports

import (
	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Module exposes the manual report trigger for operators.
type Module struct {
	reporter *Reporter
}

// NewModule creates the reports HTTP module.
func NewModule(reporter *Reporter) *Module {
	return &Module{reporter: reporter}
}

var _ apphttp.Module = (*Module)(nil)

func (m *Module) Name() string { return "reports" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/reports/daily", m.sendDaily)
}

func (m *Module) sendDaily(c *gin.Context) {
	if err := m.reporter.SendDaily(c.Request.Context()); err != nil {
		response.DomainError(c, err)
		return
	}
	response.OK(c, gin.H{"sent": true})
}
