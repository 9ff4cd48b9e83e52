// Package email delivers operational emails (the daily lead report) over SMTP.
package email

import (
	"context"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// Sender delivers a rendered HTML email to one recipient.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// LogSender logs emails instead of delivering them. Used when no SMTP
// server is configured.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(_ context.Context, toEmail, subject, htmlContent string) error {
	s.log.Info("email (not delivered, no smtp configured)",
		"to", toEmail, "subject", subject, "length", len(htmlContent))
	return nil
}
