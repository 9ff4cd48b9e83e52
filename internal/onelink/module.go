package onelink

import (
	"net/http"

	apphttp "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/http"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/apperr"

	"github.com/gin-gonic/gin"
)

const invalidPage = `<html>
<head><title>Invalid Link</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
<h2>Invalid or expired booking link</h2>
<p>This link is no longer valid. Please contact us for a new booking link.</p>
</body>
</html>`

const usedPage = `<html>
<head><title>Link Expired</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
<h2>This booking link has already been used</h2>
<p>This link can only be used once and is now expired.</p>
<p>Please contact us for a new booking link if needed.</p>
</body>
</html>`

// Module serves the one-click redirect route. It registers on the engine
// root rather than under /api because leads open the URL in a browser.
type Module struct {
	service *Service
}

// NewModule creates the one-click link HTTP module.
func NewModule(service *Service) *Module {
	return &Module{service: service}
}

var _ apphttp.Module = (*Module)(nil)

func (m *Module) Name() string { return "onelink" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.GET("/booking/:token", m.redirect)
}

func (m *Module) redirect(c *gin.Context) {
	target, err := m.service.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		if apperr.Is(err, apperr.KindGone) {
			c.Data(http.StatusGone, "text/html; charset=utf-8", []byte(usedPage))
			return
		}
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(invalidPage))
		return
	}
	c.Redirect(http.StatusFound, target)
}
