package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/daemon"
	"clipforge/internal/jobs"
	"clipforge/internal/notifications"
	"clipforge/internal/publish"
	"clipforge/internal/workflow"
)

// jobBackend provides job operations regardless of daemon or direct store backing.
type jobBackend interface {
	List(ctx context.Context, statuses []jobs.Status) ([]api.Job, error)
	Describe(ctx context.Context, id int64) (api.Job, error)
	Create(ctx context.Context, req api.CreateJobRequest) (api.Job, error)
	Update(ctx context.Context, id int64, req api.UpdateJobRequest) (api.Job, error)
	Delete(ctx context.Context, id int64) error
	Reset(ctx context.Context, id int64) (api.Job, error)
	// Process runs the job. The local backend returns the finished job; the
	// daemon backend returns once the job is accepted.
	Process(ctx context.Context, id int64) (api.Job, error)
	Events(ctx context.Context, id int64) (api.JobEventsResponse, error)
	Export(ctx context.Context, id int64) (api.Export, error)
	Close()
}

// localEngineFactory overrides the media engine for inline processing in tests.
var localEngineFactory workflow.EngineFactory

// withBackend routes job operations through the daemon API when a daemon holds
// the state lock, and through the local store otherwise.
func (c *commandContext) withBackend(cmd *cobra.Command, fn func(jobBackend, bool) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	locked, err := daemon.IsLocked(cfg)
	if err != nil {
		return err
	}
	if locked {
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		return fn(client, true)
	}
	sess, err := c.openSession(cmd)
	if err != nil {
		return err
	}
	local := &localBackend{ctx: c, session: sess}
	defer local.Close()
	return fn(local, false)
}

type localBackend struct {
	ctx     *commandContext
	session *session
}

func (b *localBackend) List(ctx context.Context, statuses []jobs.Status) ([]api.Job, error) {
	return b.session.access.List(ctx, statuses...)
}

func (b *localBackend) Describe(ctx context.Context, id int64) (api.Job, error) {
	return b.session.access.Describe(ctx, id)
}

func (b *localBackend) Create(ctx context.Context, req api.CreateJobRequest) (api.Job, error) {
	return b.session.access.Create(ctx, req.Spec())
}

func (b *localBackend) Update(ctx context.Context, id int64, req api.UpdateJobRequest) (api.Job, error) {
	return b.session.access.Update(ctx, id, req.Patch())
}

func (b *localBackend) Delete(ctx context.Context, id int64) error {
	return b.session.access.Delete(ctx, id)
}

func (b *localBackend) Reset(ctx context.Context, id int64) (api.Job, error) {
	return b.session.access.Reset(ctx, id)
}

func (b *localBackend) Process(ctx context.Context, id int64) (api.Job, error) {
	cfg, err := b.ctx.ensureConfig()
	if err != nil {
		return api.Job{}, err
	}
	logger := b.session.logger
	publisher, err := publish.New(ctx, cfg.Publish, logger)
	if err != nil {
		return api.Job{}, err
	}
	if closer, ok := publisher.(io.Closer); ok {
		defer closer.Close()
	}

	opts := []workflow.ManagerOption{
		workflow.WithPublisher(publisher),
		workflow.WithEngineFactory(localEngineFactory),
		workflow.WithNotifier(notifications.NewService(cfg)),
	}
	if b.session.history != nil {
		opts = append(opts, workflow.WithHistory(b.session.history))
	}
	mgr := workflow.NewManager(cfg, b.session.store, logger, opts...)
	job, err := mgr.ProcessNow(ctx, id)
	if err != nil {
		return api.Job{}, err
	}
	return api.FromJob(job), nil
}

func (b *localBackend) Events(ctx context.Context, id int64) (api.JobEventsResponse, error) {
	if b.session.history == nil {
		return api.JobEventsResponse{}, errors.New("event history is unavailable (is another clipforge process holding it?)")
	}
	return b.session.access.Events(ctx, id)
}

func (b *localBackend) Export(ctx context.Context, id int64) (api.Export, error) {
	return b.session.access.Export(ctx, id)
}

func (b *localBackend) Close() {
	b.session.Close()
}
