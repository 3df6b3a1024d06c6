package storage

import (
	"context"
	"fmt"
	"io"
)

// Client defines the interface for remote storage operations
type Client interface {
	// CreateContainer creates a grouping object named name and returns its id
	CreateContainer(ctx context.Context, name string) (string, error)
	// UploadObject streams obj into the container and returns the object id
	UploadObject(ctx context.Context, containerID string, obj Object) (string, error)
}

// Object is a single upload. Body is streamed, never buffered by the client.
type Object struct {
	Name     string
	MimeType string
	// Size is the body length in bytes, or -1 when unknown
	Size int64
	Body io.Reader
}

// Remote operations named in RemoteAPIError
const (
	OpCreateContainer = "create container"
	OpUploadObject    = "upload object"
)

// RemoteAPIError reports a failed create or upload call
type RemoteAPIError struct {
	Op   string
	Name string
	Err  error
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Name, e.Err)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }
