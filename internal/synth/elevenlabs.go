package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/provider"
)

const (
	elevenLabsName           = "elevenlabs"
	elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"
	ElevenLabsDefaultModel   = "eleven_multilingual_v2"
	elevenLabsOutputFormat   = "mp3_44100_128"
)

// ElevenLabs calls the ElevenLabs streaming text-to-speech HTTP endpoint and
// buffers the whole response
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs creates an ElevenLabs synthesizer
func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsDefaultBaseURL,
		httpClient: defaultHTTPClient(),
	}
}

// WithBaseURL points the adapter at a different API host
func (e *ElevenLabs) WithBaseURL(base string) *ElevenLabs {
	if base = strings.TrimSpace(base); base != "" {
		e.baseURL = strings.TrimRight(base, "/")
	}
	return e
}

// WithHTTPClient replaces the HTTP client
func (e *ElevenLabs) WithHTTPClient(client *http.Client) *ElevenLabs {
	if client != nil {
		e.httpClient = client
	}
	return e
}

func (e *ElevenLabs) Name() string {
	return elevenLabsName
}

func (e *ElevenLabs) Format() string {
	return "mp3"
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	if e.apiKey == "" {
		return nil, provider.New(elevenLabsName, 0, "api key is required")
	}
	if strings.TrimSpace(voice.ID) == "" {
		return nil, provider.New(elevenLabsName, 0, "voice id is required")
	}

	model := voice.Model
	if model == "" {
		model = ElevenLabsDefaultModel
	}

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode elevenlabs request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=%s",
		e.baseURL, url.PathEscape(voice.ID), elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, provider.FromTransport(elevenLabsName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.FromResponse(elevenLabsName, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.FromTransport(elevenLabsName, err)
	}
	if len(audio) == 0 {
		return nil, provider.New(elevenLabsName, resp.StatusCode, "empty audio stream")
	}

	return audio, nil
}
