package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clipforge/internal/services"
)

// Exit statuses let scripts tell rejected requests from broken ones.
const (
	exitFailure     = 1
	exitInvalid     = 2
	exitNotFound    = 3
	exitConflict    = 4
	exitTempFailure = 75
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "clipforge:", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return exitInvalid
	case errors.Is(err, services.ErrNotFound):
		return exitNotFound
	case errors.Is(err, services.ErrConflict):
		return exitConflict
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrTimeout):
		return exitTempFailure
	default:
		return exitFailure
	}
}
