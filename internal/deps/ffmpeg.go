package deps

import (
	"clipforge/internal/config"
	"clipforge/internal/pipeline"
)

// MediaRequirements lists the media binaries clipforge shells out to.
func MediaRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:    "FFmpeg",
			Command: cfg.FFmpegBinary(),
			UsedBy: []string{
				string(pipeline.StageFilter) + " stage",
				string(pipeline.StageAudio) + " stage",
				string(pipeline.StageSubtitle) + " stage",
			},
			ConfigKey: "engine.ffmpeg_binary",
		},
		{
			Name:      "FFprobe",
			Command:   cfg.FFprobeBinary(),
			UsedBy:    []string{"clipforge inspect"},
			ConfigKey: "engine.ffprobe_binary",
			Optional:  true,
		},
	}
}
