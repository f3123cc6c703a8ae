package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/daemon"
	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/notifications"
	"clipforge/internal/preflight"
)

func newFiltersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "filters",
		Short:       "List available visual filters",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			list := api.FilterList()
			return ctx.emit(cmd, api.FiltersResponse{Filters: list}, func(w io.Writer) error {
				rows := make([][]string, 0, len(list))
				for _, f := range list {
					graph := f.Graph
					if graph == "" {
						graph = "(passthrough)"
					}
					rows = append(rows, []string{f.ID, graph})
				}
				fmt.Fprintln(w, renderTable([]column{{header: "Filter"}, {header: "Graph", maxWidth: 70}}, rows))
				return nil
			})
		},
	}
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Report media properties via ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			engine := ffmpeg.New(ffmpeg.Options{
				Binary:      cfg.FFmpegBinary(),
				ProbeBinary: cfg.FFprobeBinary(),
				Logger:      ctx.cliLogger(cmd.ErrOrStderr()),
			})
			info, err := engine.Inspect(cmd.Context(), path)
			if err != nil {
				return err
			}
			media := api.FromMediaInfo(path, info)
			return ctx.emit(cmd, media, func(w io.Writer) error {
				fmt.Fprintf(w, "%-12s %s\n", "Path:", media.Path)
				fmt.Fprintf(w, "%-12s %s\n", "Duration:", (time.Duration(media.DurationSeconds * float64(time.Second))).Round(time.Millisecond))
				fmt.Fprintf(w, "%-12s %dx%d\n", "Resolution:", media.Width, media.Height)
				fmt.Fprintf(w, "%-12s %s\n", "Codec:", media.Codec)
				fmt.Fprintf(w, "%-12s %s\n", "Frame rate:", strconv.FormatFloat(media.FPS, 'f', 2, 64))
				fmt.Fprintf(w, "%-12s %d\n", "Audio:", media.AudioStreams)
				fmt.Fprintf(w, "%-12s %s\n", "Size:", humanize.IBytes(uint64(max(media.SizeBytes, 0))))
				return nil
			})
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, binaries, and publish settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, ctx.databaseCheck(cmd))
			depStatuses := preflight.CheckSystemDeps(cfg)

			payload := struct {
				Checks       []preflight.Result     `json:"checks" yaml:"checks"`
				Dependencies []api.DependencyStatus `json:"dependencies" yaml:"dependencies"`
			}{Checks: results, Dependencies: api.FromDependencies(depStatuses)}

			if notify {
				result := preflight.Result{Name: "Notifications", Passed: true, Detail: "test notification sent"}
				if cfg.Notifications.NtfyTopic == "" {
					result.Detail = "no ntfy topic configured"
				} else if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					result.Passed = false
					result.Detail = err.Error()
				}
				results = append(results, result)
				payload.Checks = results
			}

			failed := len(preflight.Failed(results))
			for _, dep := range depStatuses {
				if !dep.Available && !dep.Optional {
					failed++
				}
			}

			if err := ctx.emit(cmd, payload, func(w io.Writer) error {
				colorize := shouldColorize(w)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(w, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				for _, dep := range depStatuses {
					kind, detail := statusOK, dep.Path
					if !dep.Available {
						kind, detail = statusError, dep.Detail
						if dep.Optional {
							kind = statusWarn
						}
					}
					fmt.Fprintln(w, renderStatusLine(dep.Name, kind, detail, colorize))
				}
				return nil
			}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			token, err := daemon.IssueToken(cfg, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "clipforge-cli", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func (c *commandContext) databaseCheck(cmd *cobra.Command) preflight.Result {
	result := preflight.Result{Name: "Job database"}
	sess, err := c.openSession(cmd)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	defer sess.Close()
	health, err := sess.access.Health(cmd.Context())
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = health.Integrity == "ok"
	result.Detail = fmt.Sprintf("%s (schema v%d, %d jobs, %s, integrity %s)",
		health.DBPath, health.SchemaVersion, health.TotalJobs, humanize.IBytes(uint64(max(health.DatabaseSize, 0))), health.Integrity)
	return result
}
