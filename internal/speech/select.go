package speech

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Backend names accepted by SPEECH_BACKEND
const (
	BackendGoogle  = "google"
	BackendWhisper = "whisper"
)

// New builds the transcriber named by SPEECH_BACKEND (default "google")
func New(ctx context.Context, cfg *utils.Config) (Transcriber, error) {
	switch backend := strings.ToLower(cfg.GetWithDefault("SPEECH_BACKEND", BackendGoogle)); backend {
	case BackendGoogle:
		recogniser, err := NewGoogle(ctx, GoogleOptions{
			APIKey:   cfg.Get("GOOGLE_SPEECH_API_KEY"),
			Endpoint: cfg.Get("GOOGLE_SPEECH_ENDPOINT"),
			Model:    cfg.Get("GOOGLE_SPEECH_MODEL"),
		})
		if err != nil {
			return nil, err
		}
		return recogniser, nil
	case BackendWhisper:
		if missing := cfg.Require("OPENAI_API_KEY"); missing != "" {
			return nil, fmt.Errorf("%s is required for the whisper backend", missing)
		}
		opts := []option.RequestOption{option.WithAPIKey(cfg.Get("OPENAI_API_KEY"))}
		if base := cfg.Get("OPENAI_BASE_URL"); base != "" {
			opts = append(opts, option.WithBaseURL(base))
		}
		return NewWhisper(openai.NewClient(opts...), cfg.Get("WHISPER_MODEL")), nil
	default:
		return nil, fmt.Errorf("unknown speech backend '%s'", backend)
	}
}
