package artifacts

import (
	"bytes"
	"encoding/json"
	"time"
)

// Metadata correlates an artifact with the pipeline run that produced it
type Metadata struct {
	Timestamp string `json:"timestamp"`            // Session creation time, TimestampLayout
	SessionID string `json:"session_id"`           // Opaque 8-char session token
	Role      Role   `json:"role"`                 // user or assistant
	Language  string `json:"language,omitempty"`   // Recognition language (user)
	AudioPath string `json:"audio_path,omitempty"` // Source audio, relative to the storage root (user)
	Model     string `json:"model,omitempty"`      // Reply model identifier (assistant)
	Backend   string `json:"backend,omitempty"`    // Synthesis backend (assistant)
	Voice     string `json:"voice,omitempty"`      // Synthesis voice (assistant)
}

// FormatTimestamp renders t the way metadata and base names expect
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// encode renders metadata as indented JSON without escaping non-ASCII text
func (m Metadata) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
