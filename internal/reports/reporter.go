// Package reports emails the daily lead summary to the configured operators.
package reports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/booking"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/email"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads"
	leadsdomain "github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/leads/domain"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Reporter assembles and sends the daily lead report.
type Reporter struct {
	leads      *leads.Service
	booking    *booking.Service
	sender     email.Sender
	bus        events.Bus
	log        *logger.Logger
	recipients []string
	company    string

	now func() time.Time
}

// NewReporter wires the daily reporter. bus may be nil.
func NewReporter(leadSvc *leads.Service, bookingSvc *booking.Service, sender email.Sender, bus events.Bus, log *logger.Logger, recipients []string, companyName string) *Reporter {
	return &Reporter{
		leads:      leadSvc,
		booking:    bookingSvc,
		sender:     sender,
		bus:        bus,
		log:        log,
		recipients: recipients,
		company:    companyName,
		now:        time.Now,
	}
}

// SendDaily emails the summary of leads created in the last 24 hours to every
// configured recipient. A delivery failure to one recipient does not stop the
// others; the first error is returned after all sends were attempted.
func (r *Reporter) SendDaily(ctx context.Context) error {
	if len(r.recipients) == 0 {
		r.log.Info("daily report skipped, no recipients configured")
		return nil
	}

	now := r.now()
	cutoff := now.Add(-24 * time.Hour)

	recent, err := r.leads.CreatedSince(ctx, cutoff)
	if err != nil {
		return err
	}

	status, err := r.booking.Status(ctx)
	if err != nil {
		return err
	}

	data := email.DailyReportData{
		CompanyName: r.company,
		ReportDate:  now.Format("2 January 2006"),
		TotalLeads:  len(recent),
		ActiveLinks: status.ActiveLinks,
		GeneratedAt: now.Format(time.RFC1123),
	}
	for _, lead := range recent {
		if lead.HasBooked {
			data.BookedLeads++
		}
		data.Leads = append(data.Leads, email.ReportLead{
			ContactKey: lead.ContactKey,
			Name:       lead.Fields[leadsdomain.FieldName],
			Service:    lead.Fields[leadsdomain.FieldService],
			Stage:      string(lead.Stage),
			HasBooked:  lead.HasBooked,
			CreatedAt:  lead.CreatedAt,
		})
	}

	body, err := email.RenderDailyReport(data)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s lead report - %s", r.company, data.ReportDate)

	var (
		mu        sync.Mutex
		firstErr  error
		delivered int
	)
	g := &errgroup.Group{}
	g.SetLimit(4)
	for _, recipient := range r.recipients {
		g.Go(func() error {
			if err := r.sender.Send(ctx, recipient, subject, body); err != nil {
				r.log.ExternalCallFailed("smtp", "send_daily_report", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			mu.Lock()
			delivered++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if delivered > 0 {
		r.log.Info("daily report sent", "recipients", delivered, "leads", len(recent))
		if r.bus != nil {
			r.bus.Publish(ctx, events.DailyReportSent{
				BaseEvent:  events.NewBaseEvent(),
				Recipients: delivered,
				LeadCount:  len(recent),
			})
		}
	}
	return firstErr
}
