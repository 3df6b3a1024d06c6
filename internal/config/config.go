package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage providers
const (
	ProviderDrive = "drive"
	ProviderS3    = "s3"
)

// OAuthConfig contains the OAuth2 client and offline credential used to mint
// short-lived Drive access tokens
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	RefreshToken string `env:"REFRESH_TOKEN"`
}

// StorageConfig selects the remote storage provider and carries its settings
type StorageConfig struct {
	Provider      string `env:"STORAGE_PROVIDER" envDefault:"drive"`
	DriveEndpoint string `env:"DRIVE_ENDPOINT"`

	// S3-compatible settings
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	Prefix    string `env:"STORAGE_PREFIX"`
}

// BackupConfig contains source directories and trigger schedules
type BackupConfig struct {
	Enabled           bool   `env:"BACKUP_ENABLED" envDefault:"true"`
	DailyFolder       string `env:"DAILY_FOLDER"`
	KeycloakDirectory string `env:"KEYCLOAK_DIRECTORY"`
	DailySchedule     string `env:"DAILY_SCHEDULE" envDefault:"30 14 * * *"`
	KeycloakSchedule  string `env:"KEYCLOAK_SCHEDULE" envDefault:"30 14 * * 0"`
	Timezone          string `env:"BACKUP_TIMEZONE" envDefault:"UTC"`
}

// APIConfig contains health server settings
type APIConfig struct {
	Port int `env:"PORT" envDefault:"5005"`
}

// MonitoringConfig contains logging and metrics settings
type MonitoringConfig struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9100"`
}

type Config struct {
	OAuth      OAuthConfig
	Storage    StorageConfig
	Backup     BackupConfig
	API        APIConfig
	Monitoring MonitoringConfig
}

// LoadConfig reads an optional .env file, then parses the process environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal; an unreadable one is not
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Storage.Provider = strings.ToLower(strings.TrimSpace(cfg.Storage.Provider))

	if cfg.Backup.DailyFolder != "" {
		resolved, err := resolvePath(cfg.Backup.DailyFolder)
		if err != nil {
			return nil, fmt.Errorf("resolve DAILY_FOLDER: %w", err)
		}
		cfg.Backup.DailyFolder = resolved
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateStorageConfig()...)
	errs = append(errs, c.validateBackupConfig()...)
	errs = append(errs, c.validateAPIConfig()...)
	errs = append(errs, c.validateMonitoringConfig()...)

	return combineErrors(errs)
}

// Location returns the zone used for cron triggers and reference dates.
func (c *Config) Location() (*time.Location, error) {
	if c.Backup.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Backup.Timezone)
}

func (c *Config) validateStorageConfig() []error {
	var errs []error

	switch c.Storage.Provider {
	case ProviderDrive:
		if c.OAuth.ClientID == "" {
			errs = append(errs, fmt.Errorf("CLIENT_ID is required for drive storage"))
		}
		if c.OAuth.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("CLIENT_SECRET is required for drive storage"))
		}
		if c.OAuth.RefreshToken == "" {
			errs = append(errs, fmt.Errorf("REFRESH_TOKEN is required for drive storage"))
		}
		if c.Storage.DriveEndpoint != "" {
			if err := validateURL(c.Storage.DriveEndpoint); err != nil {
				errs = append(errs, fmt.Errorf("invalid DRIVE_ENDPOINT: %w", err))
			}
		}

	case ProviderS3:
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("STORAGE_BUCKET is required for s3 storage"))
		}
		if c.Storage.AccessKey == "" {
			errs = append(errs, fmt.Errorf("STORAGE_ACCESS_KEY is required for s3 storage"))
		}
		if c.Storage.SecretKey == "" {
			errs = append(errs, fmt.Errorf("STORAGE_SECRET_KEY is required for s3 storage"))
		}
		if c.Storage.Region == "" {
			errs = append(errs, fmt.Errorf("STORAGE_REGION is required for s3 storage"))
		}
		if c.Storage.Endpoint != "" {
			if err := validateURL(c.Storage.Endpoint); err != nil {
				errs = append(errs, fmt.Errorf("invalid STORAGE_ENDPOINT: %w", err))
			}
		}

	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_PROVIDER: %q", c.Storage.Provider))
	}

	return errs
}

func (c *Config) validateBackupConfig() []error {
	var errs []error

	if c.Backup.DailyFolder == "" {
		errs = append(errs, fmt.Errorf("DAILY_FOLDER is required"))
	}
	if c.Backup.KeycloakDirectory == "" {
		errs = append(errs, fmt.Errorf("KEYCLOAK_DIRECTORY is required"))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid BACKUP_TIMEZONE: %w", err))
	}

	// Schedules only matter when they will be registered
	if c.Backup.Enabled {
		if _, err := ParseCronSchedule(c.Backup.DailySchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid daily backup schedule: %w", err))
		}
		if _, err := ParseCronSchedule(c.Backup.KeycloakSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid keycloak backup schedule: %w", err))
		}
	}

	return errs
}

func (c *Config) validateAPIConfig() []error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return []error{fmt.Errorf("invalid API port number: %d", c.API.Port)}
	}
	return nil
}

func (c *Config) validateMonitoringConfig() []error {
	var errs []error

	// 0 disables the metrics listener
	if c.Monitoring.MetricsPort < 0 || c.Monitoring.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics port number: %d", c.Monitoring.MetricsPort))
	}
	if _, err := ParseLogLevel(c.Monitoring.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https scheme")
	}
	return nil
}

// Helper function to combine multiple errors
func combineErrors(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	return NewValidationError(errors)
}

// ValidationError represents multiple configuration validation errors
type ValidationError struct {
	Errors []error
}

// NewValidationError creates a new ValidationError
func NewValidationError(errors []error) *ValidationError {
	return &ValidationError{Errors: errors}
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	var errorMsgs []string
	errorMsgs = append(errorMsgs, "configuration validation failed:")
	for _, err := range ve.Errors {
		errorMsgs = append(errorMsgs, "  - "+err.Error())
	}
	return strings.Join(errorMsgs, "\n")
}

// Unwrap exposes the individual problems to errors.Is and errors.As
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}
