package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"clipforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			if path == "" {
				return errors.New("paths.log_dir is not set; the daemon only logs to stderr")
			}

			var filter *logs.JobFilter
			if jobID > 0 {
				filter = logs.NewJobFilter(jobID)
			}
			out := cmd.OutOrStdout()
			emitBatch := func(batch []string) error {
				if filter != nil {
					batch = filter.Apply(batch)
				}
				return writeLines(out, batch)
			}

			limit := lines
			if filter != nil {
				// Filtering happens after the tail, so read a wider window.
				limit = lines * 20
			}
			result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: limit})
			if err != nil {
				return err
			}
			if filter != nil {
				matched := filter.Apply(result.Lines)
				if len(matched) > lines {
					matched = matched[len(matched)-lines:]
				}
				if err := writeLines(out, matched); err != nil {
					return err
				}
			} else if err := writeLines(out, result.Lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, result.Offset, 0, emitBatch)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().Int64Var(&jobID, "job", 0, "Only show entries for this job id")
	return cmd
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
