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
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetBootstrapAdminEmail() string
	GetBootstrapAdminPassword() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// TelephonyConfig provides settings for the telephony provider and voice flow.
type TelephonyConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTelephonyCallerID() string
	GetPublicBaseURL() string
	GetVoiceTurnCap() int
	GetVoicePlaybookPath() string
	IsTelephonyEnabled() bool
}

// AIConfig provides settings for the reply generator.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetReplyTimeout() time.Duration
}

// SyncConfig provides settings for the ad-channel lead sync.
type SyncConfig interface {
	GetFacebookAccessToken() string
	GetFacebookLeadFormIDs() []string
	GetGoogleAdsAPIURL() string
	GetGoogleAdsAPIToken() string
	GetDefaultPreferredExam() string
	IsFacebookSyncEnabled() bool
	IsGoogleAdsSyncEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSyncPollInterval() time.Duration
}

// EmailConfig provides settings for counsellor notification email.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetCounsellorEmail() string
	GetDashboardBaseURL() string
	IsEmailEnabled() bool
}

// StorageConfig provides settings for MinIO recording archival.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketRecordings() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	AccessTokenTTL        time.Duration
	BootstrapAdminEmail   string
	BootstrapAdminPass    string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	PublicBaseURL         string
	TwilioAccountSID      string
	TwilioAuthToken       string
	TelephonyCallerID     string
	VoiceTurnCap          int
	VoicePlaybookPath     string
	GeminiAPIKey          string
	GeminiModel           string
	ReplyTimeout          time.Duration
	FacebookAccessToken   string
	FacebookLeadFormIDs   []string
	GoogleAdsAPIURL       string
	GoogleAdsAPIToken     string
	DefaultPreferredExam  string
	RedisURL              string
	AsynqQueueName        string
	AsynqConcurrency      int
	SyncPollInterval      time.Duration
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	CounsellorEmail       string
	DashboardBaseURL      string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinioBucketRecordings string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration    { return c.AccessTokenTTL }
func (c *Config) GetBootstrapAdminEmail() string      { return c.BootstrapAdminEmail }
func (c *Config) GetBootstrapAdminPassword() string   { return c.BootstrapAdminPass }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// TelephonyConfig implementation
func (c *Config) GetTwilioAccountSID() string  { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string   { return c.TwilioAuthToken }
func (c *Config) GetTelephonyCallerID() string { return c.TelephonyCallerID }
func (c *Config) GetPublicBaseURL() string     { return c.PublicBaseURL }
func (c *Config) GetVoiceTurnCap() int         { return c.VoiceTurnCap }
func (c *Config) GetVoicePlaybookPath() string { return c.VoicePlaybookPath }
func (c *Config) IsTelephonyEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TelephonyCallerID != ""
}

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string        { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string         { return c.GeminiModel }
func (c *Config) GetReplyTimeout() time.Duration { return c.ReplyTimeout }

// SyncConfig implementation
func (c *Config) GetFacebookAccessToken() string   { return c.FacebookAccessToken }
func (c *Config) GetFacebookLeadFormIDs() []string { return c.FacebookLeadFormIDs }
func (c *Config) GetGoogleAdsAPIURL() string       { return c.GoogleAdsAPIURL }
func (c *Config) GetGoogleAdsAPIToken() string     { return c.GoogleAdsAPIToken }
func (c *Config) GetDefaultPreferredExam() string  { return c.DefaultPreferredExam }
func (c *Config) IsFacebookSyncEnabled() bool {
	return c.FacebookAccessToken != "" && len(c.FacebookLeadFormIDs) > 0
}
func (c *Config) IsGoogleAdsSyncEnabled() bool {
	return c.GoogleAdsAPIURL != "" && c.GoogleAdsAPIToken != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetSyncPollInterval() time.Duration { return c.SyncPollInterval }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetCounsellorEmail() string  { return c.CounsellorEmail }
func (c *Config) GetDashboardBaseURL() string { return c.DashboardBaseURL }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.CounsellorEmail != ""
}

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketRecordings() string { return c.MinioBucketRecordings }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:        mustDuration(getEnv("JWT_ACCESS_TTL", "12h")),
		BootstrapAdminEmail:   getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPass:    getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		TelephonyCallerID:     getEnv("TELEPHONY_CALLER_ID", ""),
		VoiceTurnCap:          mustInt(getEnv("VOICE_TURN_CAP", "6")),
		VoicePlaybookPath:     getEnv("VOICE_PLAYBOOK_PATH", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ReplyTimeout:          mustDuration(getEnv("REPLY_TIMEOUT", "8s")),
		FacebookAccessToken:   getEnv("FACEBOOK_ACCESS_TOKEN", ""),
		FacebookLeadFormIDs:   splitCSV(getEnv("FACEBOOK_LEAD_FORM_IDS", "")),
		GoogleAdsAPIURL:       getEnv("GOOGLE_ADS_API_URL", ""),
		GoogleAdsAPIToken:     getEnv("GOOGLE_ADS_API_TOKEN", ""),
		DefaultPreferredExam:  getEnv("DEFAULT_PREFERRED_EXAM", "Sainik School"),
		RedisURL:              getEnv("REDIS_URL", ""),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "outreach"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SyncPollInterval:      mustDuration(getEnv("SYNC_POLL_INTERVAL", "15m")),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Admissions Outreach"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		CounsellorEmail:       getEnv("COUNSELLOR_EMAIL", ""),
		DashboardBaseURL:      getEnv("DASHBOARD_BASE_URL", "http://localhost:4200"),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketRecordings: getEnv("MINIO_BUCKET_RECORDINGS", "call-recordings"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.VoiceTurnCap < 1 {
		return nil, fmt.Errorf("VOICE_TURN_CAP must be positive")
	}
	if cfg.IsTelephonyEnabled() && cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("PUBLIC_BASE_URL is required when telephony is configured")
	}
	if cfg.IsEmailEnabled() && cfg.EmailFromAddress == "" {
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
