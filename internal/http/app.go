// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"github.com/amanraj3103/whatsapp-lead-assistant-bot/internal/events"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/config"
	"github.com/amanraj3103/whatsapp-lead-assistant-bot/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.AdminConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and admin settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (nil when no database is configured).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
