package speech

import (
	"bytes"
	"context"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/provider"
	"github.com/openai/openai-go/v2"
)

const whisperName = "whisper"

// Whisper recognises speech with the OpenAI transcription endpoint
type Whisper struct {
	client openai.Client
	model  string
}

// NewWhisper creates a Whisper recogniser. An empty model uses whisper-1
func NewWhisper(client openai.Client, model string) *Whisper {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &Whisper{client: client, model: model}
}

func (w *Whisper) Name() string {
	return whisperName
}

func (w *Whisper) Transcribe(ctx context.Context, wav []byte, languageHint string) (*Transcript, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "input.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	if lang := baseLanguage(languageHint); lang != "" {
		params.Language = openai.String(lang)
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, provider.FromOpenAI(whisperName, err)
	}

	return &Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: languageHint,
	}, nil
}
