package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/history"
	"clipforge/internal/jobaccess"
	"clipforge/internal/jobs"
	"clipforge/internal/logging"
)

type commandContext struct {
	configFlag *string
	outputFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, outputFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		outputFlag: outputFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) outputFormat() (outputFormat, error) {
	if c.outputFlag == nil {
		return outputTable, nil
	}
	return parseOutputFormat(*c.outputFlag)
}

// cliLogger writes warnings and above to stderr so command output stays clean.
func (c *commandContext) cliLogger(stderr io.Writer) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return logging.NewNop()
	}
	level := cfg.Logging.Level
	if level != "debug" && level != "error" {
		level = "warn"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, Writer: stderr})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// session bundles the local stores opened by a command.
type session struct {
	store   *jobs.Store
	history *history.Store
	access  *jobaccess.Access
	logger  *slog.Logger
}

func (s *session) Close() {
	if s.history != nil {
		_ = s.history.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// openSession opens the job store and, when not held by a running daemon, the
// event history.
func (c *commandContext) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.cliLogger(cmd.ErrOrStderr())
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	events, err := history.Open(cfg.EventsDir())
	if err != nil {
		logger.Debug("event history unavailable", logging.Error(err))
		events = nil
	}
	return &session{
		store:   store,
		history: events,
		access:  jobaccess.New(store, events, logger),
		logger:  logger,
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
