package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type driveFileMeta struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents"`
}

type uploadedFile struct {
	Meta        driveFileMeta
	ContentType string
	Content     string
}

// fakeDrive answers the two Files.Create shapes: plain JSON metadata for
// folders and multipart/related for media uploads.
type fakeDrive struct {
	mu      sync.Mutex
	folders []driveFileMeta
	uploads []uploadedFile
	status  int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/files") {
		http.NotFound(w, r)
		return
	}

	if f.status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"rejected by fake"}}`, f.status)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Query().Get("uploadType") == "" {
		var meta driveFileMeta
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.folders = append(f.folders, meta)
		fmt.Fprintf(w, `{"id":"folder-%d"}`, len(f.folders))
		return
	}

	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reader := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := reader.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var upload uploadedFile
	if err := json.NewDecoder(metaPart).Decode(&upload.Meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mediaPart, err := reader.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(mediaPart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	upload.ContentType = mediaPart.Header.Get("Content-Type")
	upload.Content = string(content)

	f.uploads = append(f.uploads, upload)
	fmt.Fprintf(w, `{"id":"file-%d"}`, len(f.uploads))
}

func newTestDriveClient(t *testing.T, fake *fakeDrive) *DriveClient {
	t.Helper()
	return newTestDriveClientWithLogger(t, fake, zap.NewNop())
}

func newTestDriveClientWithLogger(t *testing.T, fake *fakeDrive, logger *zap.Logger) *DriveClient {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewDriveClient(context.Background(), logger,
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestDriveCreateContainer(t *testing.T) {
	fake := &fakeDrive{}
	client := newTestDriveClient(t, fake)

	id, err := client.CreateContainer(context.Background(), "Backup-2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", id)

	require.Len(t, fake.folders, 1)
	assert.Equal(t, "Backup-2024-06-01", fake.folders[0].Name)
	assert.Equal(t, folderMimeType, fake.folders[0].MimeType)
	assert.Empty(t, fake.folders[0].Parents)
}

func TestDriveCreateContainerLeavesLoggingToCaller(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	client := newTestDriveClientWithLogger(t, &fakeDrive{}, zap.New(core))

	_, err := client.CreateContainer(context.Background(), "Backup-2024-06-01")
	require.NoError(t, err)

	// The orchestrator reports the created folder with its run id
	assert.Zero(t, logs.Len())
}

func TestDriveUploadObject(t *testing.T) {
	fake := &fakeDrive{}
	client := newTestDriveClient(t, fake)

	id, err := client.UploadObject(context.Background(), "folder-7", Object{
		Name:     "a-2024-06-01.gz",
		MimeType: "application/gz",
		Size:     int64(len("archive bytes")),
		Body:     strings.NewReader("archive bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "file-1", id)

	require.Len(t, fake.uploads, 1)
	upload := fake.uploads[0]
	assert.Equal(t, "a-2024-06-01.gz", upload.Meta.Name)
	assert.Equal(t, "application/gz", upload.Meta.MimeType)
	assert.Equal(t, []string{"folder-7"}, upload.Meta.Parents)
	assert.Equal(t, "application/gz", upload.ContentType)
	assert.Equal(t, "archive bytes", upload.Content)
}

func TestDriveErrorsAreRemoteAPIErrors(t *testing.T) {
	fake := &fakeDrive{status: http.StatusForbidden}
	client := newTestDriveClient(t, fake)

	_, err := client.CreateContainer(context.Background(), "Backup-2024-06-01")
	var remoteErr *RemoteAPIError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, OpCreateContainer, remoteErr.Op)
	assert.Equal(t, "Backup-2024-06-01", remoteErr.Name)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Code)

	_, err = client.UploadObject(context.Background(), "folder-1", Object{
		Name:     "realm.json",
		MimeType: "application/json",
		Size:     2,
		Body:     strings.NewReader("{}"),
	})
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, OpUploadObject, remoteErr.Op)
	assert.Equal(t, "realm.json", remoteErr.Name)
}
