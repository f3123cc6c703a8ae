package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeWorkflow()
	c.normalizeJobs()
	if err := c.normalizePublish(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	c.Engine.FFprobeBinary = strings.TrimSpace(c.Engine.FFprobeBinary)
	if c.Engine.FFprobeBinary == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
	c.Engine.VideoCodec = strings.TrimSpace(c.Engine.VideoCodec)
	if c.Engine.VideoCodec == "" {
		c.Engine.VideoCodec = defaultVideoCodec
	}
	c.Engine.AudioCodec = strings.TrimSpace(c.Engine.AudioCodec)
	if c.Engine.AudioCodec == "" {
		c.Engine.AudioCodec = defaultAudioCodec
	}
	if c.Engine.StageTimeout < 0 {
		c.Engine.StageTimeout = 0
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkflowWorkers
	}
	if c.Workflow.QueueSize <= 0 {
		c.Workflow.QueueSize = defaultWorkflowQueueSize
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.MaxNameChars <= 0 {
		c.Jobs.MaxNameChars = defaultMaxNameChars
	}
	if c.Jobs.MaxSubtitleChars <= 0 {
		c.Jobs.MaxSubtitleChars = defaultMaxSubtitleChars
	}
}

func (c *Config) normalizePublish() error {
	c.Publish.Backend = strings.ToLower(strings.TrimSpace(c.Publish.Backend))
	if c.Publish.Backend == "" {
		c.Publish.Backend = defaultPublishBackend
	}
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.Region = strings.TrimSpace(c.Publish.Region)
	c.Publish.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.PublicBaseURL), "/")

	switch c.Publish.Backend {
	case "s3":
		if c.Publish.Region == "" {
			if value, ok := os.LookupEnv("AWS_REGION"); ok {
				c.Publish.Region = strings.TrimSpace(value)
			}
		}
		if c.Publish.AccessKeyID == "" {
			if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
				c.Publish.AccessKeyID = strings.TrimSpace(value)
			}
		}
		if c.Publish.SecretAccessKey == "" {
			if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
				c.Publish.SecretAccessKey = strings.TrimSpace(value)
			}
		}
	case "gcs":
		if strings.TrimSpace(c.Publish.CredentialsFile) == "" {
			if value, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok {
				c.Publish.CredentialsFile = strings.TrimSpace(value)
			}
		}
		if c.Publish.CredentialsFile != "" {
			var err error
			if c.Publish.CredentialsFile, err = expandPath(c.Publish.CredentialsFile); err != nil {
				return fmt.Errorf("publish.credentials_file: %w", err)
			}
		}
	}
	return nil
}

func (c *Config) normalizeAuth() {
	c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	if c.Auth.JWTSecret == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_JWT_SECRET"); ok {
			c.Auth.JWTSecret = strings.TrimSpace(value)
		}
	}
	c.Auth.JWTIssuer = strings.TrimSpace(c.Auth.JWTIssuer)
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = defaultJWTIssuer
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPFORGE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
