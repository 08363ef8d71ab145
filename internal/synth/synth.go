// Package synth turns reply text into speech through one of several
// interchangeable text-to-speech vendors
package synth

import (
	"context"
	"net/http"
	"time"

	"github.com/ethanbaker/voice-assistant/internal/provider"
)

// Backend names accepted by TTS_BACKEND
const (
	BackendElevenLabs       = "elevenlabs"
	BackendElevenLabsStream = "elevenlabs-ws"
	BackendPlayHT           = "playht"
	BackendOpenAI           = "openai"
)

// defaultTimeout bounds a single synthesis request
const defaultTimeout = 60 * time.Second

// Error is the failure every adapter reports: provider name, HTTP status
// (0 for transport failures) and a message
type Error = provider.Error

// Voice selects the speaker for a synthesis call. Each backend reads the
// fields it understands and ignores the rest
type Voice struct {
	ID           string `yaml:"id" json:"id,omitempty"`
	Model        string `yaml:"model" json:"model,omitempty"`
	Manifest     string `yaml:"manifest" json:"manifest,omitempty"`
	OutputFormat string `yaml:"output_format" json:"output_format,omitempty"`
	Language     string `yaml:"language" json:"language,omitempty"`
	Engine       string `yaml:"engine" json:"engine,omitempty"`
}

// Label is a short human readable identifier stored in artifact metadata
func (v Voice) Label() string {
	switch {
	case v.ID != "":
		return v.ID
	case v.Manifest != "":
		return v.Manifest
	default:
		return ""
	}
}

// merge fills the zero fields of v from def
func (v Voice) merge(def Voice) Voice {
	if v.ID == "" {
		v.ID = def.ID
	}
	if v.Model == "" {
		v.Model = def.Model
	}
	if v.Manifest == "" {
		v.Manifest = def.Manifest
	}
	if v.OutputFormat == "" {
		v.OutputFormat = def.OutputFormat
	}
	if v.Language == "" {
		v.Language = def.Language
	}
	if v.Engine == "" {
		v.Engine = def.Engine
	}
	return v
}

// Synthesizer converts text into encoded audio
type Synthesizer interface {
	// Name of the vendor, used in logs and metadata
	Name() string

	// Format is the file extension of the produced audio ("mp3", "wav")
	Format() string

	// Synthesize returns the full audio for text. Failures are *Error values
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
