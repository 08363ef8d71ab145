package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/audio"
	"github.com/ethanbaker/voice-assistant/internal/provider"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"
)

const googleName = "google-speech"

// GoogleOptions configures the Google Cloud Speech recogniser
type GoogleOptions struct {
	// APIKey authenticates with a key instead of application default credentials
	APIKey string

	// Endpoint overrides the API base URL
	Endpoint string

	// Model selects a recognition model ("default", "latest_long", ...)
	Model string
}

// Google recognises speech with the Google Cloud Speech-to-Text v1 API
type Google struct {
	service *speechapi.Service
	model   string
}

// NewGoogle creates a Google recogniser. Without an API key the client
// authenticates with application default credentials
func NewGoogle(ctx context.Context, opts GoogleOptions) (*Google, error) {
	var clientOpts []option.ClientOption

	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	} else {
		client, err := google.DefaultClient(ctx, speechapi.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to load google default credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(client))
	}

	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := speechapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech service: %w", err)
	}

	return &Google{service: service, model: opts.Model}, nil
}

func (g *Google) Name() string {
	return googleName
}

func (g *Google) Transcribe(ctx context.Context, wav []byte, languageHint string) (*Transcript, error) {
	if languageHint == "" {
		languageHint = DefaultLanguage
	}

	req := &speechapi.RecognizeRequest{
		Config: &speechapi.RecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            audio.SampleRate,
			AudioChannelCount:          audio.Channels,
			LanguageCode:               languageHint,
			Model:                      g.model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(wav),
		},
	}

	resp, err := g.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return nil, provider.FromGoogle(googleName, err)
	}

	var (
		parts      []string
		confidence float64
	)
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		parts = append(parts, strings.TrimSpace(best.Transcript))
		confidence += best.Confidence
	}
	if len(parts) > 0 {
		confidence /= float64(len(parts))
	}

	return &Transcript{
		Text:       strings.TrimSpace(strings.Join(parts, " ")),
		Language:   languageHint,
		Confidence: float32(confidence),
	}, nil
}
