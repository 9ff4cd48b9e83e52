// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	IsDatabaseEnabled() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// BookingConfig provides settings for the booking-link subsystem.
type BookingConfig interface {
	GetBookingLinkTTL() time.Duration
	GetBookingRetention() time.Duration
	GetBookingSweepInterval() time.Duration
	GetBookingHistoryRetention() time.Duration
	GetBookingStoreKind() string
	GetCalendlyAPIKey() string
	GetCalendlyEventTypeURI() string
	GetCalendlyFallbackURL() string
	GetPublicBaseURL() string
	IsCalendlyEnabled() bool
}

// AIConfig provides settings for the language-model analyzer.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsGeminiEnabled() bool
}

// WhatsAppConfig provides settings for the WhatsApp transport.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetWhatsAppVerifyToken() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetReportRecipients() []string
}

// AdminConfig provides settings for admin endpoint authentication.
type AdminConfig interface {
	GetAdminJWTSecret() string
}

// CompanyConfig provides presentation settings for outbound messages.
type CompanyConfig interface {
	GetCompanyName() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	PublicBaseURL           string
	DatabaseURL             string
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	BookingLinkTTL          time.Duration
	BookingRetention        time.Duration
	BookingSweepInterval    time.Duration
	BookingHistoryRetention time.Duration
	BookingStoreKind        string
	CalendlyAPIKey          string
	CalendlyEventTypeURI    string
	CalendlyFallbackURL     string
	GeminiAPIKey            string
	GeminiModel             string
	WhatsAppURL             string
	WhatsAppKey             string
	WhatsAppDeviceID        string
	WhatsAppVerifyToken     string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	ReportRecipients        []string
	AdminJWTSecret          string
	CompanyName             string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) IsDatabaseEnabled() bool { return c.DatabaseURL != "" }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// BookingConfig implementation
func (c *Config) GetBookingLinkTTL() time.Duration          { return c.BookingLinkTTL }
func (c *Config) GetBookingRetention() time.Duration        { return c.BookingRetention }
func (c *Config) GetBookingSweepInterval() time.Duration    { return c.BookingSweepInterval }
func (c *Config) GetBookingHistoryRetention() time.Duration { return c.BookingHistoryRetention }
func (c *Config) GetBookingStoreKind() string               { return c.BookingStoreKind }
func (c *Config) GetCalendlyAPIKey() string                 { return c.CalendlyAPIKey }
func (c *Config) GetCalendlyEventTypeURI() string           { return c.CalendlyEventTypeURI }
func (c *Config) GetCalendlyFallbackURL() string            { return c.CalendlyFallbackURL }
func (c *Config) GetPublicBaseURL() string                  { return c.PublicBaseURL }
func (c *Config) IsCalendlyEnabled() bool {
	return c.CalendlyAPIKey != "" && c.CalendlyEventTypeURI != ""
}

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }
func (c *Config) IsGeminiEnabled() bool   { return c.GeminiAPIKey != "" }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string         { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string         { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string    { return c.WhatsAppDeviceID }
func (c *Config) GetWhatsAppVerifyToken() string { return c.WhatsAppVerifyToken }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool         { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string           { return c.SMTPHost }
func (c *Config) GetSMTPPort() int              { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string       { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string       { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string      { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string   { return c.EmailFromAddress }
func (c *Config) GetReportRecipients() []string { return c.ReportRecipients }

// AdminConfig implementation
func (c *Config) GetAdminJWTSecret() string { return c.AdminJWTSecret }

// CompanyConfig implementation
func (c *Config) GetCompanyName() string { return c.CompanyName }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":3000"),
		PublicBaseURL:           strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		BookingLinkTTL:          mustDuration(getEnv("BOOKING_LINK_TTL", "24h")),
		BookingRetention:        mustDuration(getEnv("BOOKING_RETENTION", "24h")),
		BookingSweepInterval:    mustDuration(getEnv("BOOKING_SWEEP_INTERVAL", "3h")),
		BookingHistoryRetention: mustDuration(getEnv("BOOKING_HISTORY_RETENTION", "0")),
		BookingStoreKind:        strings.ToLower(getEnv("BOOKING_STORE", "memory")),
		CalendlyAPIKey:          getEnv("CALENDLY_API_KEY", ""),
		CalendlyEventTypeURI:    getEnv("CALENDLY_EVENT_TYPE_URI", ""),
		CalendlyFallbackURL:     getEnv("CALENDLY_FALLBACK_URL", "https://calendly.com/dream-axis/30min"),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		WhatsAppURL:             getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:             getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:        getEnv("WHATSAPP_DEVICE_ID", ""),
		WhatsAppVerifyToken:     getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		EmailEnabled:            emailEnabled && smtpHost != "",
		SMTPHost:                smtpHost,
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Lead Assistant"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		ReportRecipients:        splitCSV(getEnv("REPORT_RECIPIENTS", "")),
		AdminJWTSecret:          getEnv("ADMIN_JWT_SECRET", ""),
		CompanyName:             getEnv("COMPANY_NAME", "Dream Axis"),
	}

	if cfg.BookingLinkTTL <= 0 {
		return nil, fmt.Errorf("BOOKING_LINK_TTL must be positive")
	}
	if cfg.BookingRetention <= 0 {
		return nil, fmt.Errorf("BOOKING_RETENTION must be positive")
	}
	if cfg.BookingStoreKind != "memory" && cfg.BookingStoreKind != "redis" {
		return nil, fmt.Errorf("BOOKING_STORE must be memory or redis, got %q", cfg.BookingStoreKind)
	}
	if cfg.BookingStoreKind == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when BOOKING_STORE is redis")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
