package jobaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clipforge/internal/api"
	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Access provides job record operations shared by the HTTP API and the CLI.
// Mutations are mirrored into the event history when one is configured.
type Access struct {
	*api.JobService

	store   *jobs.Store
	history *history.Store
	logger  *slog.Logger
}

// New returns an Access backed by store. events may be nil.
func New(store *jobs.Store, events *history.Store, logger *slog.Logger) *Access {
	var reader api.EventReader
	if events != nil {
		reader = events
	}
	return &Access{
		JobService: api.NewJobService(store, reader),
		store:      store,
		history:    events,
		logger:     logging.NewComponentLogger(logger, "jobaccess"),
	}
}

// Create validates spec and stores a new draft job.
func (a *Access) Create(ctx context.Context, spec jobs.Spec) (api.Job, error) {
	job, err := a.store.Create(ctx, spec)
	if err != nil {
		return api.Job{}, err
	}
	a.record(ctx, history.Event{JobID: job.ID, Type: history.EventCreated, Message: job.Name})
	a.logger.Info("job created",
		logging.JobID(job.ID),
		logging.String("name", job.Name),
		logging.String("filter", job.FilterID),
	)
	return api.FromJob(job), nil
}

// Update applies patch to a draft or failed job.
func (a *Access) Update(ctx context.Context, id int64, patch jobs.Patch) (api.Job, error) {
	if patch.IsEmpty() {
		return a.Describe(ctx, id)
	}
	job, err := a.store.Update(ctx, id, patch)
	if err != nil {
		return api.Job{}, err
	}
	a.record(ctx, history.Event{JobID: id, Type: history.EventUpdated})
	return api.FromJob(job), nil
}

// Delete removes a job that is not processing along with its history.
func (a *Access) Delete(ctx context.Context, id int64) error {
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	if a.history != nil {
		if err := a.history.DeleteJob(id); err != nil && !errors.Is(err, history.ErrClosed) {
			a.logger.Warn("failed to delete job history",
				logging.JobID(id),
				logging.Error(err),
			)
		}
	}
	a.logger.Info("job deleted", logging.JobID(id))
	return nil
}

// Reset moves a completed or failed job back to draft.
func (a *Access) Reset(ctx context.Context, id int64) (api.Job, error) {
	job, err := a.store.ResetToDraft(ctx, id)
	if err != nil {
		return api.Job{}, err
	}
	a.record(ctx, history.Event{JobID: id, Type: history.EventReset})
	return api.FromJob(job), nil
}

// Health returns database diagnostics.
func (a *Access) Health(ctx context.Context) (jobs.DatabaseHealth, error) {
	if a.store == nil {
		return jobs.DatabaseHealth{}, services.Wrap(services.ErrConfiguration, "jobaccess", "health", "job store unavailable", nil)
	}
	health, err := a.store.CheckHealth(ctx)
	if err != nil {
		return jobs.DatabaseHealth{}, fmt.Errorf("check database: %w", err)
	}
	return health, nil
}

func (a *Access) record(ctx context.Context, ev history.Event) {
	if a.history == nil {
		return
	}
	if cid, ok := services.CorrelationIDFromContext(ctx); ok && ev.CorrelationID == "" {
		ev.CorrelationID = cid
	}
	if err := a.history.Record(ev); err != nil {
		logging.WarnWithContext(a.logger, "failed to record job event", "history_write_failed",
			logging.JobID(ev.JobID),
			logging.String(logging.FieldEventType, string(ev.Type)),
			logging.Error(err),
		)
	}
}
