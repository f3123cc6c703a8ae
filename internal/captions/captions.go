package captions

import (
	"fmt"
	"strings"
	"time"
)

// Style descriptors passed to ffmpeg's subtitles filter as force_style.
const (
	StandardStyle   = "Fontsize=20,PrimaryColour=&HFFFFFF,Alignment=2"
	EmphasizedStyle = "Fontsize=24,PrimaryColour=&H00FFFF,Bold=1,BorderStyle=1,Outline=2"
)

// DisplayWindow is the end time of every composed caption. It is far longer
// than any clip so the caption stays visible for the whole video.
const DisplayWindow = 24 * time.Hour

// Track is a single timed caption ready to be burned into a video.
type Track struct {
	Text  string
	Start time.Duration
	End   time.Duration
	Style string
}

// Compose builds a caption track from free text. Text that is empty after
// trimming yields ok=false and the subtitle stage is skipped.
func Compose(text string, emphasized bool) (Track, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Track{}, false
	}
	style := StandardStyle
	if emphasized {
		style = EmphasizedStyle
	}
	return Track{
		Text:  trimmed,
		Start: 0,
		End:   DisplayWindow,
		Style: style,
	}, true
}

// SRT renders the track as a one-cue SubRip document.
func (t Track) SRT() string {
	var b strings.Builder
	b.WriteString("1\n")
	fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(t.Start), FormatTimestamp(t.End))
	b.WriteString(normalizeNewlines(t.Text))
	b.WriteString("\n\n")
	return b.String()
}

// FormatTimestamp renders d as an SRT timestamp (HH:MM:SS,mmm).
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// normalizeNewlines drops blank lines, which would terminate the SRT cue early.
func normalizeNewlines(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
