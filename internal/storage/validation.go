package storage

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.lumeweb.com/backup-agent/internal/config"
)

// validateS3Config checks the settings the S3 provider cannot work without
func validateS3Config(cfg config.StorageConfig) error {
	if cfg.Endpoint != "" {
		endpoint, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid S3 endpoint URL: %w", err)
		}
		if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
			return fmt.Errorf("S3 endpoint must use http or https scheme")
		}
	}

	if cfg.Bucket == "" {
		return fmt.Errorf("S3 bucket is required")
	}
	if !isValidBucketName(cfg.Bucket) {
		return fmt.Errorf("invalid S3 bucket name %q", cfg.Bucket)
	}
	if cfg.AccessKey == "" {
		return fmt.Errorf("S3 access key is required")
	}
	if cfg.SecretKey == "" {
		return fmt.Errorf("S3 secret key is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("S3 region is required")
	}
	return nil
}

// isValidBucketName checks if a bucket name meets S3 naming rules
func isValidBucketName(name string) bool {
	// S3 bucket naming rules: https://docs.aws.amazon.com/AmazonS3/latest/userguide/bucketnamingrules.html
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	// Must start and end with lowercase letter or number
	if !isAlphanumeric(rune(name[0])) || !isAlphanumeric(rune(name[len(name)-1])) {
		return false
	}

	if isIPAddress(name) {
		return false
	}

	if strings.Contains(name, "..") {
		return false
	}

	if strings.HasPrefix(name, "xn--") || strings.HasSuffix(name, "-s3alias") {
		return false
	}

	for _, r := range name {
		if !isAlphanumeric(r) && r != '.' && r != '-' {
			return false
		}
	}

	return true
}

func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if num, err := strconv.Atoi(part); err != nil || num < 0 || num > 255 {
			return false
		}
	}

	return true
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
