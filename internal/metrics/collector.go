package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.lumeweb.com/backup-agent/internal/config"
	"go.uber.org/zap"
)

// Label values shared with the backup package
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Collector struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	registry *prometheus.Registry
	metrics  struct {
		// Job Metrics
		jobsTotal   *prometheus.CounterVec
		jobDuration *prometheus.HistogramVec
		lastSuccess *prometheus.GaugeVec

		// File Metrics
		uploadsTotal   *prometheus.CounterVec
		uploadedBytes  *prometheus.CounterVec
		deletionsTotal *prometheus.CounterVec

		// Storage Metrics
		storageLatency *prometheus.HistogramVec

		// Process Metrics
		processUptime prometheus.GaugeFunc
	}
	mu        sync.Mutex
	startTime time.Time
}

func NewCollector(cfg *config.Config, logger *zap.Logger, registry *prometheus.Registry) (*Collector, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	collector := &Collector{
		config:    cfg,
		logger:    logger,
		registry:  registry,
		startTime: time.Now(),
	}

	// Runtime collectors only when metrics are actually served
	if cfg.Monitoring.MetricsPort != 0 {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register go collector: %w", err)
		}
		if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	if err := collector.initializeMetrics(); err != nil {
		return nil, err
	}

	return collector, nil
}

func (c *Collector) initializeMetrics() error {
	c.metrics.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_jobs_total",
			Help: "Total number of backup job runs",
		},
		[]string{"job", "status"},
	)

	c.metrics.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_job_duration_seconds",
			Help:    "Backup job duration",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"job"},
	)

	c.metrics.lastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backup_last_success_timestamp_seconds",
			Help: "Unix time of the last backup job that created its container",
		},
		[]string{"job"},
	)

	c.metrics.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"job", "status"},
	)

	c.metrics.uploadedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_uploaded_bytes_total",
			Help: "Total bytes of successfully uploaded files",
		},
		[]string{"job"},
	)

	c.metrics.deletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backup_local_deletions_total",
			Help: "Total number of local file deletions after upload",
		},
		[]string{"status"},
	)

	c.metrics.storageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backup_storage_latency_seconds",
			Help:    "Remote storage call latency",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"operation"},
	)

	c.metrics.processUptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "backup_agent_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(c.startTime).Seconds() },
	)

	for _, metric := range []prometheus.Collector{
		c.metrics.jobsTotal,
		c.metrics.jobDuration,
		c.metrics.lastSuccess,
		c.metrics.uploadsTotal,
		c.metrics.uploadedBytes,
		c.metrics.deletionsTotal,
		c.metrics.storageLatency,
		c.metrics.processUptime,
	} {
		if err := c.registry.Register(metric); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Start binds the metrics listener. A zero MetricsPort disables it.
func (c *Collector) Start(ctx context.Context) error {
	if c.config.Monitoring.MetricsPort == 0 {
		c.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", c.config.Monitoring.MetricsPort))
	if err != nil {
		return fmt.Errorf("failed to listen on metrics port: %w", err)
	}

	c.mu.Lock()
	c.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := c.server
	c.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	c.logger.Info("Metrics server started",
		zap.Int("port", c.config.Monitoring.MetricsPort),
	)
	return nil
}

func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	c.server = nil
	c.mu.Unlock()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown metrics server: %w", err)
		}
	}

	c.logger.Info("Metrics collector stopped")
	return nil
}

func (c *Collector) IncJob(job, status string) {
	c.metrics.jobsTotal.WithLabelValues(job, status).Inc()
}

func (c *Collector) ObserveJobDuration(job string, seconds float64) {
	c.metrics.jobDuration.WithLabelValues(job).Observe(seconds)
}

func (c *Collector) SetLastSuccess(job string, t time.Time) {
	c.metrics.lastSuccess.WithLabelValues(job).Set(float64(t.Unix()))
}

func (c *Collector) IncUpload(job, status string) {
	c.metrics.uploadsTotal.WithLabelValues(job, status).Inc()
}

func (c *Collector) AddUploadedBytes(job string, bytes int64) {
	c.metrics.uploadedBytes.WithLabelValues(job).Add(float64(bytes))
}

func (c *Collector) IncDeletion(status string) {
	c.metrics.deletionsTotal.WithLabelValues(status).Inc()
}

// ObserveStorageLatency satisfies storage.LatencyObserver
func (c *Collector) ObserveStorageLatency(operation string, seconds float64) {
	c.metrics.storageLatency.WithLabelValues(operation).Observe(seconds)
}
