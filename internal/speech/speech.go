// Package speech turns canonical WAV audio into text
package speech

import (
	"context"
	"strings"
)

// DefaultLanguage is the BCP-47 hint used when none is configured
const DefaultLanguage = "ar-SA"

// Transcript is the recogniser output. Text may be empty when the audio
// contained no recognisable speech
type Transcript struct {
	Text       string
	Language   string
	Confidence float32
}

// Transcriber converts 16 kHz mono 16-bit WAV into text. Failures are
// *provider.Error values
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, wav []byte, languageHint string) (*Transcript, error)
}

// baseLanguage reduces a BCP-47 tag such as "ar-SA" to its ISO-639-1 part
func baseLanguage(tag string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(tag), "-")
	return strings.ToLower(base)
}
