package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/history"
	"clipforge/internal/jobaccess"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/preflight"
	"clipforge/internal/workflow"
)

// Inspector reports media properties for a path.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Info, error)
}

// Daemon coordinates the executor and HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobs.Store
	history   *history.Store
	access    *jobaccess.Access
	workflow  *workflow.Manager
	inspector Inspector

	lockPath string
	lock     *flock.Flock
	pidPath  string

	mu      sync.Mutex
	api     *apiServer
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	Dependencies []deps.Status
}

// Option configures optional Daemon behavior.
type Option func(*Daemon)

// WithInspector overrides the media inspector used by the inspect endpoint.
func WithInspector(inspector Inspector) Option {
	return func(d *Daemon) {
		if inspector != nil {
			d.inspector = inspector
		}
	}
}

// New constructs a daemon with initialized dependencies. events may be nil.
func New(cfg *config.Config, store *jobs.Store, events *history.Store, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		history:  events,
		access:   jobaccess.New(store, events, logger),
		workflow: wf,
		inspector: ffmpeg.New(ffmpeg.Options{
			Binary:      cfg.FFmpegBinary(),
			ProbeBinary: cfg.FFprobeBinary(),
			Logger:      logger,
		}),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		pidPath:  cfg.PIDPath(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, launches the executor, and serves the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "jobs depending on this check will fail"),
		)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.workflow.Stop()
		d.abortStart()
		return err
	}
	if err := srv.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return err
	}
	d.api = srv

	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		d.logger.Warn("failed to write pid file", logging.String("path", d.pidPath), logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
		logging.Int("workers", max(d.cfg.Workflow.Workers, 1)),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops the API and executor and releases the daemon lock. In-flight
// jobs stay processing until the next start reconciles them.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.api = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// APIAddress returns the bound API address, or an empty string when not serving.
func (d *Daemon) APIAddress() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

// Jobs returns the job access layer used by the API handlers.
func (d *Daemon) Jobs() *jobaccess.Access {
	return d.access
}

// Submit hands a job to the executor.
func (d *Daemon) Submit(ctx context.Context, id int64) (*jobs.Job, error) {
	return d.workflow.Submit(ctx, id)
}

// Inspect reports media properties for path.
func (d *Daemon) Inspect(ctx context.Context, path string) (ffprobe.Info, error) {
	return d.inspector.Inspect(ctx, strings.TrimSpace(path))
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
}

// ReadPID returns the pid recorded by a running daemon, or zero when none is recorded.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

// IsLocked reports whether another process holds the daemon lock.
func IsLocked(cfg *config.Config) (bool, error) {
	if _, err := os.Stat(cfg.LockPath()); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}
