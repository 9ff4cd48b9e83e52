// Package whatsapp sends and receives WhatsApp messages through a gowa
// (go-whatsapp-web-multidevice) gateway.
package whatsapp

import (
	"context"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// Sender delivers an outbound WhatsApp message to a phone number.
type Sender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// LogSender logs outbound messages instead of delivering them. Used in
// development and tests when no gateway is configured.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) SendMessage(_ context.Context, phoneNumber, message string) error {
	s.log.Info("whatsapp message (not delivered, no gateway configured)",
		"phone", phoneNumber, "length", len(message))
	return nil
}
