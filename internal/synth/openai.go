package synth

import (
	"context"
	"io"
	"net/http"

	"github.com/ethanbaker/voice-assistant/internal/provider"
	"github.com/openai/openai-go/v2"
)

const (
	openAIName         = "openai"
	OpenAIDefaultModel = "tts-1"
	OpenAIDefaultVoice = "alloy"
)

// OpenAI synthesizes with the OpenAI audio speech endpoint
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates an OpenAI synthesizer from an existing client
func NewOpenAI(client openai.Client) *OpenAI {
	return &OpenAI{client: client}
}

func (o *OpenAI) Name() string {
	return openAIName
}

func (o *OpenAI) Format() string {
	return "mp3"
}

func (o *OpenAI) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	voice = voice.merge(Voice{ID: OpenAIDefaultVoice, Model: OpenAIDefaultModel})

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(voice.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice.ID),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, provider.FromOpenAI(openAIName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.FromResponse(openAIName, resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.FromTransport(openAIName, err)
	}
	if len(audio) == 0 {
		return nil, provider.New(openAIName, resp.StatusCode, "empty audio stream")
	}

	return audio, nil
}
