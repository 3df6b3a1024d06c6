package backup

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.lumeweb.com/backup-agent/internal/storage"
)

var _ storage.Client = (*MockStorage)(nil)

type MockStorage struct {
	mock.Mock

	mu       sync.Mutex
	uploaded map[string][]byte
}

func (m *MockStorage) CreateContainer(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

// UploadObject drains the body before recording the call so tests can assert
// on what was streamed
func (m *MockStorage) UploadObject(ctx context.Context, containerID string, obj storage.Object) (string, error) {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.uploaded == nil {
		m.uploaded = make(map[string][]byte)
	}
	m.uploaded[containerID+"/"+obj.Name] = data
	m.mu.Unlock()

	args := m.Called(ctx, containerID, obj)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) Uploaded(containerID, name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.uploaded[containerID+"/"+name]
	return data, ok
}

func objectNamed(name string) interface{} {
	return mock.MatchedBy(func(obj storage.Object) bool {
		return obj.Name == name
	})
}

// countingRecorder tallies Recorder calls by label
type countingRecorder struct {
	mu          sync.Mutex
	jobs        map[string]int
	uploads     map[string]int
	deletions   map[string]int
	bytes       int64
	lastSuccess map[string]time.Time
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		jobs:        make(map[string]int),
		uploads:     make(map[string]int),
		deletions:   make(map[string]int),
		lastSuccess: make(map[string]time.Time),
	}
}

func (r *countingRecorder) IncJob(job, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job+"/"+status]++
}

func (r *countingRecorder) ObserveJobDuration(string, float64) {}

func (r *countingRecorder) SetLastSuccess(job string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSuccess[job] = t
}

func (r *countingRecorder) IncUpload(job, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[job+"/"+status]++
}

func (r *countingRecorder) AddUploadedBytes(_ string, bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes += bytes
}

func (r *countingRecorder) IncDeletion(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletions[status]++
}
