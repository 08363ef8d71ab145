package synth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethanbaker/voice-assistant/internal/provider"
	"github.com/gorilla/websocket"
)

const (
	elevenLabsStreamName    = "elevenlabs-ws"
	elevenLabsDefaultWSBase = "wss://api.elevenlabs.io"
	elevenLabsWriteTimeout  = 5 * time.Second
)

// ElevenLabsStream synthesizes over the ElevenLabs stream-input websocket.
// Text is sent in one message followed by an end-of-stream marker and the
// base64 audio frames are concatenated until the server reports isFinal
type ElevenLabsStream struct {
	apiKey      string
	wsBaseURL   string
	readTimeout time.Duration
	dialer      *websocket.Dialer
}

// NewElevenLabsStream creates a websocket ElevenLabs synthesizer
func NewElevenLabsStream(apiKey string) *ElevenLabsStream {
	return &ElevenLabsStream{
		apiKey:      strings.TrimSpace(apiKey),
		wsBaseURL:   elevenLabsDefaultWSBase,
		readTimeout: defaultTimeout,
		dialer:      websocket.DefaultDialer,
	}
}

// WithReadTimeout bounds the wait for each frame from the server
func (e *ElevenLabsStream) WithReadTimeout(d time.Duration) *ElevenLabsStream {
	if d > 0 {
		e.readTimeout = d
	}
	return e
}

// WithWSBaseURL points the adapter at a different websocket host
func (e *ElevenLabsStream) WithWSBaseURL(base string) *ElevenLabsStream {
	if base = strings.TrimSpace(base); base != "" {
		e.wsBaseURL = strings.TrimRight(base, "/")
	}
	return e
}

func (e *ElevenLabsStream) Name() string {
	return elevenLabsStreamName
}

func (e *ElevenLabsStream) Format() string {
	return "mp3"
}

type streamFrame struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *ElevenLabsStream) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	if e.apiKey == "" {
		return nil, provider.New(elevenLabsStreamName, 0, "api key is required")
	}
	if strings.TrimSpace(voice.ID) == "" {
		return nil, provider.New(elevenLabsStreamName, 0, "voice id is required")
	}

	wsURL, err := e.streamURL(voice)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)

	conn, resp, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, provider.FromResponse(elevenLabsStreamName, resp)
		}
		return nil, provider.FromTransport(elevenLabsStreamName, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	text = strings.TrimSpace(text)
	messages := []map[string]any{
		{"text": " "},
		{"text": text + " ", "flush": true},
		{"text": ""},
	}
	for _, msg := range messages {
		_ = conn.SetWriteDeadline(time.Now().Add(elevenLabsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			return nil, provider.FromTransport(elevenLabsStreamName, err)
		}
	}

	var audio []byte
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, provider.FromTransport(elevenLabsStreamName, ctxErr)
		}
		_ = conn.SetReadDeadline(time.Now().Add(e.readTimeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, provider.FromTransport(elevenLabsStreamName, ctxErr)
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, provider.New(elevenLabsStreamName, 0, "no frame received within %s", e.readTimeout)
			}
			// A normal close after audio arrived ends the stream too
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				return audio, nil
			}
			return nil, provider.FromTransport(elevenLabsStreamName, err)
		}

		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Error != "" {
			message := frame.Error
			if frame.Message != "" {
				message = fmt.Sprintf("%s: %s", frame.Error, frame.Message)
			}
			return nil, provider.New(elevenLabsStreamName, 0, "%s", message)
		}
		if frame.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(frame.Audio)
			if err != nil {
				return nil, provider.New(elevenLabsStreamName, 0, "malformed audio frame: %v", err)
			}
			audio = append(audio, chunk...)
		}
		if frame.IsFinal {
			break
		}
	}

	if len(audio) == 0 {
		return nil, provider.New(elevenLabsStreamName, 0, "empty audio stream")
	}
	return audio, nil
}

func (e *ElevenLabsStream) streamURL(voice Voice) (string, error) {
	u, err := url.Parse(e.wsBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/text-to-speech/" + url.PathEscape(voice.ID) + "/stream-input"

	model := voice.Model
	if model == "" {
		model = ElevenLabsDefaultModel
	}

	q := u.Query()
	q.Set("model_id", model)
	q.Set("output_format", elevenLabsOutputFormat)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
