package transcription

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".ogg": true, ".flac": true, ".webm": true,
}

// IsAudioFile reports whether name has a supported audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Transcriber turns recorded call audio into text.
//
// Implementations own their own timeouts; callers only pass a context.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Request identifies the audio to transcribe.
type Request struct {
	// AudioPath is a local file path readable by the process.
	AudioPath string `json:"audio_path"`

	// Filename is the original upload name (used as the multipart filename).
	Filename string `json:"filename,omitempty"`

	// Language is an optional hint (ISO 639-1, e.g. "en").
	Language string `json:"language,omitempty"`
}

// Result is the provider-agnostic transcription output.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
	Language string    `json:"language,omitempty"`

	// Duration is derived from the last segment end when the provider omits it.
	Duration time.Duration `json:"duration"`
}

// Segment is a time-aligned slice of the transcript (seconds from start).
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}
