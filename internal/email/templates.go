package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// ReportLead is one row in the daily report table.
type ReportLead struct {
	ContactKey string
	Name       string
	Service    string
	Stage      string
	HasBooked  bool
	CreatedAt  time.Time
}

// DailyReportData feeds the daily report template.
type DailyReportData struct {
	CompanyName  string
	ReportDate   string
	TotalLeads   int
	BookedLeads  int
	ActiveLinks  int
	Leads        []ReportLead
	GeneratedAt  string
}

// RenderDailyReport renders the daily lead summary email body.
func RenderDailyReport(data DailyReportData) (string, error) {
	return renderTemplate("daily_report.html", data)
}

func renderTemplate(name string, data any) (string, error) {
	tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
