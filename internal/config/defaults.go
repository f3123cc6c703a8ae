package config

const (
	defaultConfigPath                = "~/.config/clipforge/config.toml"
	envFileName                      = "clipforge.env"
	defaultOutputDir                 = "~/.local/share/clipforge/projects"
	defaultStateDir                  = "~/.local/share/clipforge/state"
	defaultLogDir                    = "~/.local/share/clipforge/logs"
	defaultAPIBind                   = "127.0.0.1:7490"
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultVideoCodec                = "libx264"
	defaultAudioCodec                = "aac"
	defaultStageTimeout              = 1800
	defaultWorkflowWorkers           = 2
	defaultWorkflowQueueSize         = 64
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultMaxNameChars              = 500
	defaultMaxSubtitleChars          = 5000
	defaultPublishBackend            = "none"
	defaultJWTIssuer                 = "clipforge"
	defaultNtfyRequestTimeout        = 10
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Engine: Engine{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VideoCodec:    defaultVideoCodec,
			AudioCodec:    defaultAudioCodec,
			StageTimeout:  defaultStageTimeout,
		},
		Workflow: Workflow{
			Workers:           defaultWorkflowWorkers,
			QueueSize:         defaultWorkflowQueueSize,
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
			ReconcileOnStart:  true,
		},
		Jobs: Jobs{
			MaxNameChars:     defaultMaxNameChars,
			MaxSubtitleChars: defaultMaxSubtitleChars,
		},
		Publish: Publish{
			Backend: defaultPublishBackend,
		},
		Auth: Auth{
			JWTIssuer: defaultJWTIssuer,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
