package captions_test

import (
	"testing"
	"time"

	"clipforge/internal/captions"
)

func TestComposeSkipsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, ok := captions.Compose(text, true); ok {
			t.Fatalf("expected %q to be skipped", text)
		}
	}
}

func TestComposeSelectsStyle(t *testing.T) {
	standard, ok := captions.Compose("  Hello  ", false)
	if !ok {
		t.Fatal("expected track")
	}
	if standard.Text != "Hello" || standard.Style != captions.StandardStyle {
		t.Fatalf("unexpected standard track: %#v", standard)
	}
	if standard.Start != 0 || standard.End != 24*time.Hour {
		t.Fatalf("unexpected window: %v-%v", standard.Start, standard.End)
	}

	emphasized, _ := captions.Compose("Hello", true)
	if emphasized.Style != captions.EmphasizedStyle {
		t.Fatalf("expected emphasized style, got %q", emphasized.Style)
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "00:00:00,000",
		1500 * time.Millisecond: "00:00:01,500",
		time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond: "01:02:03,004",
		24 * time.Hour: "24:00:00,000",
		-time.Second:   "00:00:00,000",
	}
	for input, want := range cases {
		if got := captions.FormatTimestamp(input); got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", input, got, want)
		}
	}
}

func TestTrackSRT(t *testing.T) {
	track, _ := captions.Compose("Line one\n\nLine two", false)
	want := "1\n00:00:00,000 --> 24:00:00,000\nLine one\nLine two\n\n"
	if got := track.SRT(); got != want {
		t.Fatalf("SRT() = %q, want %q", got, want)
	}
}
