package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.lumeweb.com/backup-agent/internal/config"
	"go.uber.org/zap"
)

// s3API is the subset of the S3 client used here, narrowed for tests
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client maps containers onto key prefixes in a single bucket. A container
// is materialised by an empty "<prefix>/<name>-<id>/" marker object; the id
// keeps same-day runs from sharing a prefix.
type S3Client struct {
	api    s3API
	bucket string
	prefix string
	newID  func() string
	logger *zap.Logger
}

func NewS3Client(cfg config.StorageConfig, logger *zap.Logger) (*S3Client, error) {
	if err := validateS3Config(cfg); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return newS3ClientWithAPI(s3.New(opts), cfg, logger), nil
}

func newS3ClientWithAPI(api s3API, cfg config.StorageConfig, logger *zap.Logger) *S3Client {
	return &S3Client{
		api:    api,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		newID:  uuid.NewString,
		logger: logger,
	}
}

func (c *S3Client) CreateContainer(ctx context.Context, name string) (string, error) {
	key := path.Join(c.prefix, name+"-"+c.newID()) + "/"

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return "", &RemoteAPIError{Op: OpCreateContainer, Name: name, Err: err}
	}

	return key, nil
}

func (c *S3Client) UploadObject(ctx context.Context, containerID string, obj Object) (string, error) {
	key := containerID + obj.Name

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        obj.Body,
		ContentType: aws.String(obj.MimeType),
	}
	if obj.Size >= 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		return "", &RemoteAPIError{Op: OpUploadObject, Name: obj.Name, Err: err}
	}

	c.logger.Debug("S3 object written",
		zap.String("bucket", c.bucket),
		zap.String("key", key),
	)
	return key, nil
}
