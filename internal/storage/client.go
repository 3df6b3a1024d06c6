package storage

import (
	"context"
	"fmt"
	"time"

	"go.lumeweb.com/backup-agent/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// NewClient constructs the provider selected by STORAGE_PROVIDER.
func NewClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.Storage.Provider {
	case config.ProviderDrive:
		tokenSource := NewTokenSource(ctx, cfg.OAuth, google.Endpoint, logger)
		opts := []option.ClientOption{option.WithTokenSource(tokenSource)}
		if cfg.Storage.DriveEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Storage.DriveEndpoint))
		}
		return NewDriveClient(ctx, logger, opts...)

	case config.ProviderS3:
		return NewS3Client(cfg.Storage, logger)

	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// LatencyObserver receives the duration of every remote call
type LatencyObserver interface {
	ObserveStorageLatency(operation string, seconds float64)
}

// Instrument wraps client so every call is timed.
func Instrument(client Client, observer LatencyObserver) Client {
	return &instrumentedClient{next: client, observer: observer}
}

type instrumentedClient struct {
	next     Client
	observer LatencyObserver
}

func (c *instrumentedClient) CreateContainer(ctx context.Context, name string) (string, error) {
	start := time.Now()
	defer func() {
		c.observer.ObserveStorageLatency("create_container", time.Since(start).Seconds())
	}()
	return c.next.CreateContainer(ctx, name)
}

func (c *instrumentedClient) UploadObject(ctx context.Context, containerID string, obj Object) (string, error) {
	start := time.Now()
	defer func() {
		c.observer.ObserveStorageLatency("upload_object", time.Since(start).Seconds())
	}()
	return c.next.UploadObject(ctx, containerID, obj)
}
