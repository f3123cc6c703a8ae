package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/daemon"
	"clipforge/internal/history"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/publish"
	"clipforge/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run or inspect the clipforge daemon",
	}
	daemonCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	})
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	events, err := history.Open(cfg.EventsDir())
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("open event history: %w", err)
	}

	publisher, err := publish.New(signalCtx, cfg.Publish, logger)
	if err != nil {
		_ = events.Close()
		_ = store.Close()
		return fmt.Errorf("configure publisher: %w", err)
	}
	if closer, ok := publisher.(io.Closer); ok {
		defer closer.Close()
	}

	manager := workflow.NewManager(cfg, store, logger,
		workflow.WithHistory(events),
		workflow.WithPublisher(publisher),
		workflow.WithNotifier(notifications.NewService(cfg)),
	)

	d, err := daemon.New(cfg, store, events, logger, manager)
	if err != nil {
		_ = events.Close()
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("clipforge daemon shutting down")
	return nil
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			locked, err := daemon.IsLocked(cfg)
			if err != nil {
				return err
			}
			if !locked {
				status := api.DaemonStatus{Running: false, DatabasePath: cfg.DatabasePath(), LockFilePath: cfg.LockPath()}
				return ctx.emit(cmd, status, func(w io.Writer) error {
					fmt.Fprintln(w, "Daemon is not running")
					return nil
				})
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				pid, pidErr := daemon.ReadPID(cfg)
				if pidErr != nil || pid == 0 {
					return err
				}
				return fmt.Errorf("daemon holds the lock (pid %d) but its API is unreachable: %w", pid, err)
			}
			return ctx.emit(cmd, status, func(w io.Writer) error {
				renderDaemonStatus(w, status, shouldColorize(w))
				return nil
			})
		},
	}
}

func renderDaemonStatus(w io.Writer, status api.DaemonStatus, colorize bool) {
	fmt.Fprintf(w, "Daemon running (pid %d)\n", status.PID)
	fmt.Fprintf(w, "Database: %s\n", status.DatabasePath)
	wf := status.Workflow
	fmt.Fprintf(w, "Workers: %d  Queued: %d  Active: %d\n", wf.Workers, wf.QueueDepth, len(wf.Active))
	counts := make([]string, 0, len(jobs.AllStatuses()))
	for _, s := range jobs.AllStatuses() {
		counts = append(counts, fmt.Sprintf("%s=%d", statusLabel(string(s), colorize), wf.JobStats[string(s)]))
	}
	fmt.Fprintf(w, "Jobs: %s\n", strings.Join(counts, "  "))
	if wf.LastError != "" {
		fmt.Fprintf(w, "Last error: %s\n", wf.LastError)
	}
	if len(wf.StageHealth) > 0 {
		rows := make([][]string, 0, len(wf.StageHealth))
		for _, h := range wf.StageHealth {
			rows = append(rows, []string{h.Name, yesNo(h.Ready), h.Detail})
		}
		fmt.Fprintln(w, renderTable([]column{{header: "Component"}, {header: "Ready"}, {header: "Detail", maxWidth: 60}}, rows))
	}
	if len(wf.Active) > 0 {
		rows := make([][]string, 0, len(wf.Active))
		for _, id := range slices.Sorted(maps.Keys(wf.Active)) {
			rows = append(rows, []string{id, wf.Active[id]})
		}
		fmt.Fprintln(w, renderTable([]column{{header: "Job", numeric: true}, {header: "Stage"}}, rows))
	}
}
