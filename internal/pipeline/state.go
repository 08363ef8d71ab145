package pipeline

import (
	"time"

	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/synth"
)

// State is a step of a pipeline run
type State string

const (
	StateReceived                     State = "received"
	StateNormalized                   State = "normalized"
	StateStaged                       State = "staged"
	StateTranscribed                  State = "transcribed"
	StateUserCommitted                State = "user_committed"
	StateReplied                      State = "replied"
	StateAssistantTranscriptCommitted State = "assistant_transcript_committed"
	StateSynthesized                  State = "synthesized"
	StateAssistantAudioCommitted      State = "assistant_audio_committed"
	StateCompleted                    State = "completed"
	StateFailed                       State = "failed"
)

// Session correlates every artifact of one run. It lives only for the
// duration of a Process call
type Session struct {
	ID        string
	CreatedAt time.Time
}

// NewSession starts a session at createdAt with a fresh 8-char id
func NewSession(createdAt time.Time) Session {
	return Session{ID: artifacts.NewID(), CreatedAt: createdAt}
}

// Timestamp is the session time in the artifact naming layout
func (s Session) Timestamp() string {
	return artifacts.FormatTimestamp(s.CreatedAt)
}

// Result describes a finished run. A degraded run has a committed reply
// transcript but no audio; SynthesisError says why
type Result struct {
	SessionID      string
	UserText       string
	AssistantText  string
	AudioLocator   string
	Model          string
	Degraded       bool
	SynthesisError *synth.Error
	NoSpeech       bool
	State          State

	UserRef      artifacts.Ref
	AssistantRef artifacts.Ref
}

// Outcome labels the result for metrics and logs
func (r *Result) Outcome() string {
	switch {
	case r.NoSpeech:
		return "no_speech"
	case r.Degraded:
		return "degraded"
	default:
		return "completed"
	}
}
