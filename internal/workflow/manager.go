package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/publish"
	"clipforge/internal/services"
)

var (
	// ErrNotRunning is returned by Submit when the worker pool has not been started.
	ErrNotRunning = errors.New("workflow not running")
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = fmt.Errorf("workflow queue full: %w", services.ErrTransient)
)

// EngineFactory builds the media engine for one run, writing into outputDir.
type EngineFactory func(outputDir string) pipeline.Engine

// Manager accepts process requests and runs job pipelines on a worker pool.
type Manager struct {
	cfg       *config.Config
	store     *jobs.Store
	history   *history.Store
	publisher publish.Publisher
	notifier  notifications.Service
	engineFor EngineFactory
	logger    *slog.Logger
	heartbeat *HeartbeatMonitor

	queue chan submission

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *jobs.Job
	active  map[int64]string
	// queued maps accepted job ids waiting for a worker to their correlation id.
	queued map[int64]string
}

type submission struct {
	job *jobs.Job
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithHistory records job events in store.
func WithHistory(store *history.Store) ManagerOption {
	return func(m *Manager) {
		m.history = store
	}
}

// WithPublisher uploads completed outputs through p.
func WithPublisher(p publish.Publisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithNotifier sends job outcome alerts through n.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithEngineFactory overrides how media engines are built (used in tests).
func WithEngineFactory(factory EngineFactory) ManagerOption {
	return func(m *Manager) {
		if factory != nil {
			m.engineFor = factory
		}
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *jobs.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow-manager"),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		queue:  make(chan submission, max(cfg.Workflow.QueueSize, 1)),
		active: make(map[int64]string),
		queued: make(map[int64]string),
	}
	m.engineFor = m.defaultEngine
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) defaultEngine(outputDir string) pipeline.Engine {
	return ffmpeg.New(ffmpeg.Options{
		Binary:       m.cfg.FFmpegBinary(),
		ProbeBinary:  m.cfg.FFprobeBinary(),
		OutputDir:    outputDir,
		VideoCodec:   m.cfg.Engine.VideoCodec,
		AudioCodec:   m.cfg.Engine.AudioCodec,
		StageTimeout: time.Duration(m.cfg.Engine.StageTimeout) * time.Second,
		Logger:       m.logger,
	})
}

// jobOutputDir is the per-job directory holding a run's outputs.
func (m *Manager) jobOutputDir(id int64) string {
	return filepath.Join(m.cfg.Paths.OutputDir, "job-"+formatID(id))
}
