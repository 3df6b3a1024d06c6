package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.lumeweb.com/backup-agent/internal/metrics"
	"go.lumeweb.com/backup-agent/internal/scanner"
	"go.lumeweb.com/backup-agent/internal/storage"
	"go.uber.org/zap"
)

// Recorder receives job and per-file outcomes. *metrics.Collector implements it.
type Recorder interface {
	IncJob(job, status string)
	ObserveJobDuration(job string, seconds float64)
	SetLastSuccess(job string, t time.Time)
	IncUpload(job, status string)
	AddUploadedBytes(job string, bytes int64)
	IncDeletion(status string)
}

// UploadResult is the outcome for one selected file. Err is set when the
// upload did not happen; DeleteErr only when the upload succeeded but the
// local copy could not be removed.
type UploadResult struct {
	Name      string
	Path      string
	Size      int64
	ObjectID  string
	Err       error
	Deleted   bool
	DeleteErr error
}

// Succeeded reports whether the remote upload completed
func (r UploadResult) Succeeded() bool {
	return r.Err == nil
}

// Pipeline uploads the selected files of one directory, sequentially
type Pipeline struct {
	storage storage.Client
	logger  *zap.Logger
	metrics Recorder
}

func NewPipeline(client storage.Client, logger *zap.Logger, recorder Recorder) *Pipeline {
	return &Pipeline{
		storage: client,
		logger:  logger,
		metrics: recorder,
	}
}

// Run scans sourcePath one level deep and uploads every matching regular
// file into containerID. Only a failed scan is returned as an error; per-file
// failures are reported in the results and never stop the loop.
func (p *Pipeline) Run(ctx context.Context, sourcePath, containerID string, mode Mode, referenceDate time.Time) ([]UploadResult, error) {
	entries, err := scanner.Scan(sourcePath)
	if err != nil {
		return nil, err
	}

	var results []UploadResult
	for _, entry := range entries {
		if entry.IsDirectory {
			continue
		}
		if !Matches(entry.Name, mode, referenceDate) {
			continue
		}

		path := filepath.Join(sourcePath, entry.Name)
		info, err := os.Stat(path)
		if err != nil {
			p.logger.Error("Failed to stat file",
				zap.String("file", entry.Name),
				zap.String("path", path),
				zap.String("operation", "stat"),
				zap.Error(err),
			)
			p.metrics.IncUpload(string(mode), metrics.StatusFailure)
			results = append(results, UploadResult{
				Name: entry.Name,
				Path: path,
				Err:  fmt.Errorf("failed to stat %s: %w", path, err),
			})
			continue
		}

		// Symlinks to directories, sockets and devices are not backed up
		if !info.Mode().IsRegular() {
			p.logger.Debug("Skipping non-regular file",
				zap.String("path", path),
				zap.Stringer("mode", info.Mode()),
			)
			continue
		}

		results = append(results, p.uploadFile(ctx, path, entry.Name, info.Size(), containerID, mode))
	}

	return results, nil
}

func (p *Pipeline) uploadFile(ctx context.Context, path, name string, size int64, containerID string, mode Mode) UploadResult {
	result := UploadResult{
		Name: name,
		Path: path,
		Size: size,
	}

	file, err := os.Open(path)
	if err != nil {
		p.logger.Error("Failed to open file",
			zap.String("file", name),
			zap.String("path", path),
			zap.String("operation", "open"),
			zap.Error(err),
		)
		p.metrics.IncUpload(string(mode), metrics.StatusFailure)
		result.Err = fmt.Errorf("failed to open %s: %w", path, err)
		return result
	}

	objectID, err := p.storage.UploadObject(ctx, containerID, storage.Object{
		Name:     name,
		MimeType: MimeType(name),
		Size:     size,
		Body:     file,
	})
	file.Close()

	if err != nil {
		p.logger.Error("Error uploading file",
			zap.String("file", name),
			zap.String("path", path),
			zap.String("container_id", containerID),
			zap.String("operation", "upload"),
			zap.Error(err),
		)
		p.metrics.IncUpload(string(mode), metrics.StatusFailure)
		result.Err = err
		return result
	}

	result.ObjectID = objectID
	p.metrics.IncUpload(string(mode), metrics.StatusSuccess)
	p.metrics.AddUploadedBytes(string(mode), size)
	p.logger.Info("Uploaded file",
		zap.String("file", name),
		zap.String("container_id", containerID),
		zap.String("object_id", objectID),
		zap.Int64("size_bytes", size),
	)

	if mode == ModeCredentialStore {
		p.removeLocal(&result)
	}

	return result
}

// removeLocal deletes an uploaded file. Failure is logged and recorded only.
func (p *Pipeline) removeLocal(result *UploadResult) {
	if err := os.Remove(result.Path); err != nil {
		p.logger.Warn("Failed to delete uploaded file",
			zap.String("file", result.Name),
			zap.String("path", result.Path),
			zap.String("operation", "delete"),
			zap.Error(err),
		)
		p.metrics.IncDeletion(metrics.StatusFailure)
		result.DeleteErr = fmt.Errorf("failed to delete %s: %w", result.Path, err)
		return
	}

	result.Deleted = true
	p.metrics.IncDeletion(metrics.StatusSuccess)
	p.logger.Info("Deleted file", zap.String("path", result.Path))
}
