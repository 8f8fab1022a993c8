package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Upload backends selectable with UPLOAD_BACKEND
const (
	UploadBackendHTTP = "http"
	UploadBackendS3   = "s3"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Upload        UploadConfig
	ObjectStorage ObjectStorageConfig
	Records       RecordsConfig
	Identity      IdentityConfig
	Submission    SubmissionConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
}

// UploadConfig configures the multipart image host
type UploadConfig struct {
	Backend string
	URL     string
	Preset  string
}

// ObjectStorageConfig configures the S3-compatible upload backend
type ObjectStorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string
	Region          string
}

type RecordsConfig struct {
	APIBase string
}

// IdentityConfig enables the sign-in gate when SigningSecret is set
type IdentityConfig struct {
	SigningSecret string
	Issuer        string
	Audience      string
}

type SubmissionConfig struct {
	StepTimeout    time.Duration
	SessionTTL     time.Duration
	DefaultSociety string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("UPLOAD_BACKEND", UploadBackendHTTP)
	v.SetDefault("API_BASE", "http://localhost:4000")
	v.SetDefault("OBJECT_STORAGE_REGION", "us-east-1")
	v.SetDefault("SUBMISSION_STEP_TIMEOUT_SECONDS", 30)
	v.SetDefault("SESSION_TTL_MINUTES", 120)
	v.SetDefault("DEFAULT_SOCIETY", "Flux")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_BE_SERVICE_NAME", "induction-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "flux")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Upload: UploadConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("UPLOAD_BACKEND"))),
			URL:     strings.TrimSpace(v.GetString("UPLOAD_URL")),
			Preset:  strings.TrimSpace(v.GetString("UPLOAD_PRESET")),
		},
		ObjectStorage: ObjectStorageConfig{
			AccessKeyID:     v.GetString("OBJECT_STORAGE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("OBJECT_STORAGE_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("OBJECT_STORAGE_BUCKET_NAME"),
			Endpoint:        v.GetString("OBJECT_STORAGE_ENDPOINT"),
			Region:          v.GetString("OBJECT_STORAGE_REGION"),
		},
		Records: RecordsConfig{
			APIBase: v.GetString("API_BASE"),
		},
		Identity: IdentityConfig{
			SigningSecret: v.GetString("IDENTITY_SIGNING_SECRET"),
			Issuer:        v.GetString("IDENTITY_ISSUER"),
			Audience:      v.GetString("IDENTITY_AUDIENCE"),
		},
		Submission: SubmissionConfig{
			StepTimeout:    time.Duration(v.GetInt("SUBMISSION_STEP_TIMEOUT_SECONDS")) * time.Second,
			SessionTTL:     time.Duration(v.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
			DefaultSociety: v.GetString("DEFAULT_SOCIETY"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings the whole process depends on.
// Settings of individual submission steps (upload URL, storage credentials)
// are checked by the step itself when it runs.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	switch c.Upload.Backend {
	case UploadBackendHTTP, UploadBackendS3:
	default:
		return fmt.Errorf("UPLOAD_BACKEND must be one of: %s, %s", UploadBackendHTTP, UploadBackendS3)
	}

	if c.Submission.StepTimeout <= 0 {
		return fmt.Errorf("SUBMISSION_STEP_TIMEOUT_SECONDS must be positive")
	}
	if c.Submission.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IdentityGateEnabled reports whether sessions must sign in before editing
func (c *Config) IdentityGateEnabled() bool {
	return c.Identity.SigningSecret != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
