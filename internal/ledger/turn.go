// Package ledger keeps a queryable index of completed voice turns next to
// the artifact files
package ledger

import (
	"context"
	"time"
)

// Turn is one finished request: what the user said, what the assistant
// answered and where the artifacts live
type Turn struct {
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	UserBase       string    `json:"user_base"`
	AssistantBase  string    `json:"assistant_base,omitempty"`
	UserText       string    `json:"user_text"`
	AssistantText  string    `json:"assistant_text"`
	AudioLocator   string    `json:"audio_locator,omitempty"`
	Model          string    `json:"model,omitempty"`
	Backend        string    `json:"backend,omitempty"`
	Degraded       bool      `json:"degraded"`
	NoSpeech       bool      `json:"no_speech"`
	SynthesisError string    `json:"synthesis_error,omitempty"`
}

// Recorder stores turns and lists the most recent ones
type Recorder interface {
	Record(ctx context.Context, turn *Turn) error
	Recent(ctx context.Context, limit int) ([]*Turn, error)
	Close() error
}

// DefaultLimit and MaxLimit bound Recent listings
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// ClampLimit normalises a requested listing size
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
