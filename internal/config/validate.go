package config

import (
	"errors"
	"fmt"
	"strings"
)

// minJWTSecretBytes matches the HS256 key size.
const minJWTSecretBytes = 32

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":        c.Workflow.Workers,
		"workflow.queue_size":     c.Workflow.QueueSize,
		"jobs.max_name_chars":     c.Jobs.MaxNameChars,
		"jobs.max_subtitle_chars": c.Jobs.MaxSubtitleChars,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validatePublish() error {
	switch c.Publish.Backend {
	case "none":
		return nil
	case "s3":
		if c.Publish.Bucket == "" {
			return errors.New("publish.bucket must be set when publish.backend is s3")
		}
		if c.Publish.Region == "" {
			return errors.New("publish.region must be set when publish.backend is s3 (or set AWS_REGION)")
		}
		if c.Publish.AccessKeyID == "" || c.Publish.SecretAccessKey == "" {
			return errors.New("publish.access_key_id and publish.secret_access_key must be set when publish.backend is s3")
		}
		return nil
	case "gcs":
		if c.Publish.Bucket == "" {
			return errors.New("publish.bucket must be set when publish.backend is gcs")
		}
		return nil
	default:
		return fmt.Errorf("publish.backend: unsupported value %q (expected none, s3 or gcs)", c.Publish.Backend)
	}
}

func (c *Config) validateAuth() error {
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecretBytes)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
