package jobs

import (
	"fmt"

	"clipforge/internal/services"
)

var (
	// ErrNotFound reports a job id with no record.
	ErrNotFound = fmt.Errorf("job %w", services.ErrNotFound)
	// ErrNotProcessable reports a process request for a job outside draft/failed.
	ErrNotProcessable = fmt.Errorf("job not processable: %w", services.ErrConflict)
	// ErrInvalidTransition reports a status change the state machine forbids.
	ErrInvalidTransition = fmt.Errorf("invalid job transition: %w", services.ErrConflict)
	// ErrNotEditable reports an edit or delete against a job in the wrong status.
	ErrNotEditable = fmt.Errorf("job not editable: %w", services.ErrConflict)
	// ErrInvalidJob reports field values that fail validation.
	ErrInvalidJob = fmt.Errorf("invalid job: %w", services.ErrValidation)
)
