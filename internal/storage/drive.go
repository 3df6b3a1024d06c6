package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient stores containers as Drive folders and objects as files inside them
type DriveClient struct {
	service *drive.Service
	logger  *zap.Logger
}

// NewDriveClient builds a Drive v3 service. Authentication comes from opts,
// normally option.WithTokenSource backed by the refresh-token credential.
func NewDriveClient(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*DriveClient, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveClient{
		service: service,
		logger:  logger,
	}, nil
}

func (c *DriveClient) CreateContainer(ctx context.Context, name string) (string, error) {
	folder, err := c.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", &RemoteAPIError{Op: OpCreateContainer, Name: name, Err: err}
	}

	return folder.Id, nil
}

func (c *DriveClient) UploadObject(ctx context.Context, containerID string, obj Object) (string, error) {
	// ChunkSize(0) sends one multipart request streamed straight from the reader
	file, err := c.service.Files.Create(&drive.File{
		Name:     obj.Name,
		MimeType: obj.MimeType,
		Parents:  []string{containerID},
	}).
		Media(obj.Body, googleapi.ContentType(obj.MimeType), googleapi.ChunkSize(0)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", &RemoteAPIError{Op: OpUploadObject, Name: obj.Name, Err: err}
	}

	c.logger.Debug("Drive file created",
		zap.String("file_id", file.Id),
		zap.String("parent", containerID),
		zap.String("mime_type", obj.MimeType),
	)
	return file.Id, nil
}
