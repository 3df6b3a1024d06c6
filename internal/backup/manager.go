package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.lumeweb.com/backup-agent/internal/config"
	"go.lumeweb.com/backup-agent/internal/metrics"
	"go.lumeweb.com/backup-agent/internal/scanner"
	"go.lumeweb.com/backup-agent/internal/storage"
	"go.uber.org/zap"
)

// Container base names; the run date is appended as "-YYYY-MM-DD"
const (
	DailyContainerBase           = "Backup"
	CredentialStoreContainerBase = "KeyCloakBackup"
)

// JobReport summarizes one orchestrator run
type JobReport struct {
	RunID         string
	Mode          Mode
	ContainerName string
	ContainerID   string
	ReferenceDate time.Time
	Results       []UploadResult
	Started       time.Time
	Finished      time.Time
}

func (r *JobReport) Uploaded() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

func (r *JobReport) Failed() int {
	return len(r.Results) - r.Uploaded()
}

func (r *JobReport) Deleted() int {
	n := 0
	for _, res := range r.Results {
		if res.Deleted {
			n++
		}
	}
	return n
}

type BackupManager struct {
	config    *config.Config
	logger    *zap.Logger
	storage   storage.Client
	pipeline  *Pipeline
	metrics   Recorder
	scheduler *cron.Cron
	location  *time.Location
	now       func() time.Time

	// jobCtx is handed to scheduled runs and cancelled when Stop gives up
	// waiting on them
	jobCtx    context.Context
	cancelJob context.CancelFunc
	mu        sync.Mutex
	started   bool
}

func NewManager(cfg *config.Config, logger *zap.Logger, client storage.Client, recorder Recorder) (*BackupManager, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup timezone: %w", err)
	}

	cronLog := newCronLogger(logger)
	jobCtx, cancel := context.WithCancel(context.Background())

	manager := &BackupManager{
		config:   cfg,
		logger:   logger,
		storage:  client,
		pipeline: NewPipeline(client, logger, recorder),
		metrics:  recorder,
		scheduler: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		location:  location,
		now:       time.Now,
		jobCtx:    jobCtx,
		cancelJob: cancel,
	}

	return manager, nil
}

type backupJob struct {
	manager *BackupManager
	mode    Mode
}

func (j backupJob) Run() {
	if _, err := j.manager.RunJob(j.manager.jobCtx, j.mode); err != nil {
		j.manager.logger.Error("Backup job failed",
			zap.Error(err),
			zap.String("job", string(j.mode)),
		)
	}
}

// RunJob dispatches to the orchestrator for mode
func (m *BackupManager) RunJob(ctx context.Context, mode Mode) (*JobReport, error) {
	switch mode {
	case ModeDaily:
		return m.RunDaily(ctx)
	case ModeCredentialStore:
		return m.RunCredentialStore(ctx)
	default:
		return nil, fmt.Errorf("unknown backup mode: %q", mode)
	}
}

// RunDaily creates Backup-<date> and uploads the matching archives found in
// each immediate subdirectory of the daily root. Files sitting directly in
// the root are not considered.
func (m *BackupManager) RunDaily(ctx context.Context) (*JobReport, error) {
	report, err := m.beginJob(ctx, ModeDaily, DailyContainerBase)
	if err != nil {
		return report, err
	}

	root := m.config.Backup.DailyFolder
	entries, err := scanner.Scan(root)
	if err != nil {
		m.logger.Error("Failed to list daily folder",
			zap.String("run_id", report.RunID),
			zap.String("path", root),
			zap.Error(err),
		)
		m.finishJob(report, err)
		return report, fmt.Errorf("failed to list daily folder %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDirectory {
			continue
		}

		subfolder := filepath.Join(root, entry.Name)
		results, err := m.pipeline.Run(ctx, subfolder, report.ContainerID, ModeDaily, report.ReferenceDate)
		if err != nil {
			m.logger.Error("Failed to scan subfolder",
				zap.String("run_id", report.RunID),
				zap.String("path", subfolder),
				zap.Error(err),
			)
			continue
		}
		report.Results = append(report.Results, results...)
	}

	m.finishJob(report, nil)
	return report, nil
}

// RunCredentialStore creates KeyCloakBackup-<date>, uploads every .json file
// of the credential-store export directory and removes each one after its
// upload succeeds.
func (m *BackupManager) RunCredentialStore(ctx context.Context) (*JobReport, error) {
	report, err := m.beginJob(ctx, ModeCredentialStore, CredentialStoreContainerBase)
	if err != nil {
		return report, err
	}

	dir := m.config.Backup.KeycloakDirectory
	results, err := m.pipeline.Run(ctx, dir, report.ContainerID, ModeCredentialStore, report.ReferenceDate)
	if err != nil {
		m.logger.Error("Failed to list credential store directory",
			zap.String("run_id", report.RunID),
			zap.String("path", dir),
			zap.Error(err),
		)
		m.finishJob(report, err)
		return report, fmt.Errorf("failed to list credential store directory %s: %w", dir, err)
	}
	report.Results = results

	m.finishJob(report, nil)
	return report, nil
}

// beginJob freezes the reference date and creates the run's container.
// Container creation failure is the only fatal condition of a run.
func (m *BackupManager) beginJob(ctx context.Context, mode Mode, base string) (*JobReport, error) {
	started := m.now().In(m.location)
	year, month, day := started.Date()

	report := &JobReport{
		RunID:         uuid.NewString(),
		Mode:          mode,
		ReferenceDate: time.Date(year, month, day, 0, 0, 0, 0, m.location),
		Started:       started,
	}
	report.ContainerName = fmt.Sprintf("%s-%s", base, report.ReferenceDate.Format(DateLayout))

	m.logger.Info("Starting backup job",
		zap.String("run_id", report.RunID),
		zap.String("job", string(mode)),
		zap.String("container", report.ContainerName),
	)

	containerID, err := m.storage.CreateContainer(ctx, report.ContainerName)
	if err != nil {
		m.logger.Error("Error creating folder",
			zap.String("run_id", report.RunID),
			zap.String("container", report.ContainerName),
			zap.Error(err),
		)
		m.finishJob(report, err)
		return report, fmt.Errorf("failed to create container %s: %w", report.ContainerName, err)
	}
	report.ContainerID = containerID

	m.logger.Info("Folder created",
		zap.String("run_id", report.RunID),
		zap.String("container", report.ContainerName),
		zap.String("container_id", containerID),
	)

	return report, nil
}

func (m *BackupManager) finishJob(report *JobReport, err error) {
	report.Finished = m.now()
	job := string(report.Mode)

	m.metrics.ObserveJobDuration(job, report.Finished.Sub(report.Started).Seconds())
	if err != nil {
		m.metrics.IncJob(job, metrics.StatusFailure)
		return
	}

	m.metrics.IncJob(job, metrics.StatusSuccess)
	m.metrics.SetLastSuccess(job, report.Finished)

	msg := "Daily backup completed"
	if report.Mode == ModeCredentialStore {
		msg = "Credential-store backup completed"
	}
	m.logger.Info(msg,
		zap.String("run_id", report.RunID),
		zap.String("job", job),
		zap.String("container", report.ContainerName),
		zap.Int("uploaded", report.Uploaded()),
		zap.Int("failed", report.Failed()),
		zap.Int("deleted", report.Deleted()),
		zap.Duration("duration", report.Finished.Sub(report.Started)),
	)
}

// ConfigureBackupSchedules registers both jobs with the scheduler
func (m *BackupManager) ConfigureBackupSchedules() error {
	schedules := []struct {
		spec string
		mode Mode
	}{
		{m.config.Backup.DailySchedule, ModeDaily},
		{m.config.Backup.KeycloakSchedule, ModeCredentialStore},
	}

	for _, s := range schedules {
		if _, err := config.ParseCronSchedule(s.spec); err != nil {
			return fmt.Errorf("invalid %s backup schedule: %w", s.mode, err)
		}
		if _, err := m.scheduler.AddJob(s.spec, backupJob{manager: m, mode: s.mode}); err != nil {
			return fmt.Errorf("failed to schedule %s backup: %w", s.mode, err)
		}
	}

	m.logger.Info("Backup schedules configured",
		zap.String("daily_schedule", m.config.Backup.DailySchedule),
		zap.String("keycloak_schedule", m.config.Backup.KeycloakSchedule),
		zap.String("timezone", m.location.String()),
	)

	return nil
}

// Start begins firing scheduled jobs
func (m *BackupManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.scheduler.Start()
	m.started = true

	for _, entry := range m.scheduler.Entries() {
		if job, ok := entry.Job.(backupJob); ok {
			m.logger.Info("Next backup scheduled",
				zap.String("job", string(job.mode)),
				zap.Time("next_run", entry.Next),
			)
		}
	}
}

// Stop prevents new runs and waits for running ones. If ctx expires first the
// in-flight runs are cancelled.
func (m *BackupManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()

	if !started {
		m.cancelJob()
		return nil
	}

	select {
	case <-m.scheduler.Stop().Done():
		m.cancelJob()
		m.logger.Info("Backup scheduler stopped")
		return nil
	case <-ctx.Done():
		m.cancelJob()
		return fmt.Errorf("timed out waiting for running backup jobs: %w", ctx.Err())
	}
}
