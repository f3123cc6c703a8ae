package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, name, status, source_video_path, audio_path, subtitle_text, volume, filter_id, uniquify_subtitles, output_path, error_message, artifact_url, attempts, progress_stage, correlation_id, last_heartbeat, started_at, finished_at, created_at, updated_at"

// timeLayout keeps a fixed width so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		name             string
		statusStr        string
		sourcePath       string
		audioPath        sql.NullString
		subtitleText     sql.NullString
		volume           int
		filterID         string
		uniquify         int
		outputPath       sql.NullString
		errorMessage     sql.NullString
		artifactURL      sql.NullString
		attempts         int
		progressStage    sql.NullString
		correlationID    sql.NullString
		lastHeartbeatRaw sql.NullString
		startedRaw       sql.NullString
		finishedRaw      sql.NullString
		createdRaw       string
		updatedRaw       string
	)

	if err := scanner.Scan(
		&id,
		&name,
		&statusStr,
		&sourcePath,
		&audioPath,
		&subtitleText,
		&volume,
		&filterID,
		&uniquify,
		&outputPath,
		&errorMessage,
		&artifactURL,
		&attempts,
		&progressStage,
		&correlationID,
		&lastHeartbeatRaw,
		&startedRaw,
		&finishedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                id,
		Name:              name,
		Status:            Status(statusStr),
		SourceVideoPath:   sourcePath,
		AudioPath:         audioPath.String,
		SubtitleText:      subtitleText.String,
		Volume:            volume,
		FilterID:          filterID,
		UniquifySubtitles: uniquify != 0,
		OutputPath:        outputPath.String,
		ErrorMessage:      errorMessage.String,
		ArtifactURL:       artifactURL.String,
		Attempts:          attempts,
		ProgressStage:     progressStage.String,
		CorrelationID:     correlationID.String,
		LastHeartbeat:     parseNullableTime(lastHeartbeatRaw),
		StartedAt:         parseNullableTime(startedRaw),
		FinishedAt:        parseNullableTime(finishedRaw),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	parsed, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	return args
}
