package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/fileutil"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Create, inspect, and process jobs",
	}
	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobUpdateCommand(ctx))
	jobCmd.AddCommand(newJobDeleteCommand(ctx))
	jobCmd.AddCommand(newJobProcessCommand(ctx))
	jobCmd.AddCommand(newJobResetCommand(ctx))
	jobCmd.AddCommand(newJobHistoryCommand(ctx))
	jobCmd.AddCommand(newJobExportCommand(ctx))
	return jobCmd
}

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var req api.CreateJobRequest
	var volume int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("volume") {
				req.Volume = &volume
			}
			if req.SourceVideoPath != "" {
				if abs, err := filepath.Abs(req.SourceVideoPath); err == nil {
					req.SourceVideoPath = abs
				}
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				job, err := b.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, job, func(w io.Writer) error {
					fmt.Fprintf(w, "Created job %d (%s)\n", job.ID, job.Name)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Job name (defaults to the source file name)")
	cmd.Flags().StringVar(&req.SourceVideoPath, "source", "", "Source video path")
	cmd.Flags().StringVar(&req.AudioPath, "audio", "", "Replacement audio track")
	cmd.Flags().StringVar(&req.SubtitleText, "subtitle", "", "Subtitle text to burn in")
	cmd.Flags().IntVar(&volume, "volume", 100, "Audio volume percentage (0-100)")
	cmd.Flags().StringVar(&req.FilterID, "filter", "", "Visual filter id (see `clipforge filters`)")
	cmd.Flags().BoolVar(&req.UniquifySubtitles, "uniquify", false, "Render subtitles in the emphasized style")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := api.ParseStatusFilters(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				list, err := b.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.JobListResponse{Jobs: list}, func(w io.Writer) error {
					if len(list) == 0 {
						fmt.Fprintln(w, "No jobs")
						return nil
					}
					fmt.Fprintln(w, renderJobTable(list, shouldColorize(w)))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (draft, processing, completed, failed)")
	return cmd
}

func renderJobTable(list []api.Job, colorize bool) string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.Name,
			statusLabel(job.Status, colorize),
			job.FilterID,
			jobFeatures(job),
			job.OutputPath,
			relativeTime(job.UpdatedAt),
		})
	}
	return renderTable([]column{
		{header: "ID", numeric: true},
		{header: "Name", maxWidth: 32},
		{header: "Status"},
		{header: "Filter"},
		{header: "Stages"},
		{header: "Output", maxWidth: 40, path: true},
		{header: "Updated"},
	}, rows)
}

func jobFeatures(job api.Job) string {
	var parts []string
	if job.FilterID != "" && job.FilterID != "none" {
		parts = append(parts, "filter")
	}
	if job.AudioPath != "" {
		parts = append(parts, fmt.Sprintf("audio@%d%%", job.Volume))
	}
	if strings.TrimSpace(job.SubtitleText) != "" {
		parts = append(parts, "subtitle")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func relativeTime(value string) string {
	if value == "" {
		return "-"
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return humanize.Time(ts)
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				job, err := b.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, job, func(w io.Writer) error {
					renderJobDetail(w, job, shouldColorize(w))
					return nil
				})
			})
		},
	}
}

func renderJobDetail(w io.Writer, job api.Job, colorize bool) {
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%-16s %s\n", label+":", value)
	}
	line("ID", strconv.FormatInt(job.ID, 10))
	line("Name", job.Name)
	line("Status", statusLabel(job.Status, colorize))
	line("Source", job.SourceVideoPath)
	line("Filter", job.FilterID)
	line("Audio", job.AudioPath)
	if job.AudioPath != "" {
		line("Volume", fmt.Sprintf("%d%%", job.Volume))
	}
	line("Subtitle", truncate(job.SubtitleText, 60))
	if job.SubtitleText != "" {
		line("Emphasized", yesNo(job.UniquifySubtitles))
	}
	line("Stage", job.Progress.Stage)
	line("Output", job.OutputPath)
	line("Artifact", job.ArtifactURL)
	line("Error", job.ErrorMessage)
	line("Attempts", strconv.Itoa(job.Attempts))
	line("Created", job.CreatedAt)
	line("Updated", job.UpdatedAt)
	line("Finished", job.FinishedAt)
}

func newJobUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		name, audio, subtitle, filter string
		volume                        int
		uniquify                      bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a draft or failed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			var req api.UpdateJobRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("audio") {
				req.AudioPath = &audio
			}
			if flags.Changed("subtitle") {
				req.SubtitleText = &subtitle
			}
			if flags.Changed("filter") {
				req.FilterID = &filter
			}
			if flags.Changed("volume") {
				req.Volume = &volume
			}
			if flags.Changed("uniquify") {
				req.UniquifySubtitles = &uniquify
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				job, err := b.Update(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, job, func(w io.Writer) error {
					fmt.Fprintf(w, "Updated job %d\n", job.ID)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Job name")
	cmd.Flags().StringVar(&audio, "audio", "", "Replacement audio track (empty clears it)")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "Subtitle text (empty clears it)")
	cmd.Flags().StringVar(&filter, "filter", "", "Visual filter id")
	cmd.Flags().IntVar(&volume, "volume", 100, "Audio volume percentage (0-100)")
	cmd.Flags().BoolVar(&uniquify, "uniquify", false, "Render subtitles in the emphasized style")
	return cmd
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a job that is not processing",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				if err := b.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %d\n", id)
				return nil
			})
		},
	}
}

func newJobProcessCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "process <id>",
		Short: "Run a job's pipeline",
		Long: "Run a job's pipeline. When the daemon is running the job is submitted to it;\n" +
			"otherwise the pipeline runs in this process.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, remote bool) error {
				job, err := b.Process(cmd.Context(), id)
				if err != nil {
					return err
				}
				if remote && wait {
					job, err = waitForJob(cmd.Context(), b, id, timeout)
					if err != nil {
						return err
					}
				}
				if err := ctx.emit(cmd, job, func(w io.Writer) error {
					renderProcessOutcome(w, job, remote && !wait)
					return nil
				}); err != nil {
					return err
				}
				if job.Status == "failed" {
					return fmt.Errorf("job %d failed: %s", job.ID, job.ErrorMessage)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for a daemon-submitted job to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Hour, "Maximum time to wait with --wait")
	return cmd
}

func renderProcessOutcome(w io.Writer, job api.Job, accepted bool) {
	switch {
	case accepted:
		fmt.Fprintf(w, "Job %d accepted for processing\n", job.ID)
	case job.Status == "completed":
		fmt.Fprintf(w, "Job %d completed: %s\n", job.ID, job.OutputPath)
		if job.ArtifactURL != "" {
			fmt.Fprintf(w, "Published to %s\n", job.ArtifactURL)
		}
	default:
		fmt.Fprintf(w, "Job %d is %s\n", job.ID, job.Status)
	}
}

func waitForJob(ctx context.Context, b jobBackend, id int64, timeout time.Duration) (api.Job, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, err := b.Describe(waitCtx, id)
		if err != nil {
			return api.Job{}, err
		}
		if job.Status == "completed" || job.Status == "failed" {
			return job, nil
		}
		select {
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return api.Job{}, fmt.Errorf("job %d still %s after %s", id, job.Status, timeout)
			}
			return api.Job{}, waitCtx.Err()
		case <-ticker.C:
		}
	}
}

func newJobResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Return a completed or failed job to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				job, err := b.Reset(cmd.Context(), id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, job, func(w io.Writer) error {
					fmt.Fprintf(w, "Job %d reset to draft\n", job.ID)
					return nil
				})
			})
		},
	}
}

func newJobHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show a job's recorded events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				resp, err := b.Events(cmd.Context(), id)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, resp, func(w io.Writer) error {
					if len(resp.Events) == 0 {
						fmt.Fprintf(w, "No events for job %d\n", id)
						return nil
					}
					rows := make([][]string, 0, len(resp.Events))
					for _, ev := range resp.Events {
						rows = append(rows, []string{ev.Timestamp, ev.Type, ev.Stage, ev.Message})
					}
					fmt.Fprintln(w, renderTable([]column{
						{header: "Time"},
						{header: "Event"},
						{header: "Stage"},
						{header: "Message", maxWidth: 60},
					}, rows))
					return nil
				})
			})
		},
	}
}

func newJobExportCommand(ctx *commandContext) *cobra.Command {
	var copyTo string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Show or copy a completed job's output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withBackend(cmd, func(b jobBackend, _ bool) error {
				export, err := b.Export(cmd.Context(), id)
				if err != nil {
					return err
				}
				if copyTo != "" {
					dest := fileutil.ResolveDestination(export.OutputPath, copyTo)
					size, err := fileutil.CopyVerified(export.OutputPath, dest)
					if err != nil {
						return fmt.Errorf("copy output: %w", err)
					}
					export.OutputPath = dest
					export.SizeBytes = size
				}
				return ctx.emit(cmd, export, func(w io.Writer) error {
					fmt.Fprintf(w, "%-10s %s\n", "Output:", export.OutputPath)
					fmt.Fprintf(w, "%-10s %s\n", "Size:", humanize.IBytes(uint64(max(export.SizeBytes, 0))))
					if export.ArtifactURL != "" {
						fmt.Fprintf(w, "%-10s %s\n", "URL:", export.ArtifactURL)
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&copyTo, "copy-to", "", "Copy the output file to this path or directory")
	return cmd
}
