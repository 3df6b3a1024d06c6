package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lumeweb.com/backup-agent/internal/config"
	"go.uber.org/zap"
)

func TestNewClientSelectsProvider(t *testing.T) {
	ctx := context.Background()

	driveCfg := &config.Config{
		OAuth:   config.OAuthConfig{ClientID: "client", ClientSecret: "secret", RefreshToken: "refresh"},
		Storage: config.StorageConfig{Provider: config.ProviderDrive, DriveEndpoint: "http://localhost:1/drive/v3/"},
	}
	client, err := NewClient(ctx, driveCfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &DriveClient{}, client)

	s3Cfg := &config.Config{
		Storage: config.StorageConfig{
			Provider:  config.ProviderS3,
			Region:    "us-east-1",
			Bucket:    "backups",
			AccessKey: "key",
			SecretKey: "secret",
		},
	}
	client, err = NewClient(ctx, s3Cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &S3Client{}, client)

	_, err = NewClient(ctx, &config.Config{Storage: config.StorageConfig{Provider: "ftp"}}, zap.NewNop())
	assert.Error(t, err)
}

type recordingObserver struct {
	operations []string
}

func (r *recordingObserver) ObserveStorageLatency(operation string, seconds float64) {
	r.operations = append(r.operations, operation)
}

func TestInstrumentObservesEveryCall(t *testing.T) {
	fake := &fakeS3{}
	observer := &recordingObserver{}
	client := Instrument(newS3ClientWithAPI(fake, config.StorageConfig{Bucket: "backups"}, zap.NewNop()), observer)

	ctx := context.Background()
	id, err := client.CreateContainer(ctx, "Backup-2024-06-01")
	require.NoError(t, err)
	_, err = client.UploadObject(ctx, id, Object{Name: "a.gz", MimeType: "application/gz", Size: 1, Body: strings.NewReader("a")})
	require.NoError(t, err)

	assert.Equal(t, []string{"create_container", "upload_object"}, observer.operations)
}
