package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/provider"
)

const (
	playHTName           = "playht"
	playHTDefaultBaseURL = "https://api.play.ht"
	PlayHTDefaultFormat  = "wav"
	PlayHTDefaultLang    = "arabic"
	PlayHTDefaultEngine  = "PlayDialog"
)

// PlayHT calls the PlayHT v2 streaming endpoint with a voice manifest URL
type PlayHT struct {
	apiKey     string
	userID     string
	format     string
	baseURL    string
	httpClient *http.Client
}

// NewPlayHT creates a PlayHT synthesizer producing audio in format
func NewPlayHT(apiKey string, userID string, format string) *PlayHT {
	if format == "" {
		format = PlayHTDefaultFormat
	}

	return &PlayHT{
		apiKey:     strings.TrimSpace(apiKey),
		userID:     strings.TrimSpace(userID),
		format:     format,
		baseURL:    playHTDefaultBaseURL,
		httpClient: defaultHTTPClient(),
	}
}

// WithBaseURL points the adapter at a different API host
func (p *PlayHT) WithBaseURL(base string) *PlayHT {
	if base = strings.TrimSpace(base); base != "" {
		p.baseURL = strings.TrimRight(base, "/")
	}
	return p
}

func (p *PlayHT) Name() string {
	return playHTName
}

func (p *PlayHT) Format() string {
	return p.format
}

type playHTRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice"`
	OutputFormat string `json:"output_format"`
	Language     string `json:"language"`
	VoiceEngine  string `json:"voice_engine"`
}

func (p *PlayHT) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	if p.apiKey == "" || p.userID == "" {
		return nil, provider.New(playHTName, 0, "api key and user id are required")
	}
	if strings.TrimSpace(voice.Manifest) == "" {
		return nil, provider.New(playHTName, 0, "voice manifest is required")
	}

	voice = voice.merge(Voice{
		Language: PlayHTDefaultLang,
		Engine:   PlayHTDefaultEngine,
	})

	body, err := json.Marshal(playHTRequest{
		Text:         text,
		Voice:        voice.Manifest,
		OutputFormat: p.format,
		Language:     voice.Language,
		VoiceEngine:  voice.Engine,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode playht request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v2/tts/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create playht request: %w", err)
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("AUTHORIZATION", p.apiKey)
	req.Header.Set("X-USER-ID", p.userID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.FromTransport(playHTName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.FromResponse(playHTName, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.FromTransport(playHTName, err)
	}
	if len(audio) == 0 {
		return nil, provider.New(playHTName, resp.StatusCode, "empty audio stream")
	}

	return audio, nil
}
