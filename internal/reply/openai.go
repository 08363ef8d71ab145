package reply

import (
	"context"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/provider"
	"github.com/openai/openai-go/v2"
)

const openAIName = "openai"

// OpenAI generates replies with a single chat completion call
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a chat completion generator. An empty model uses DefaultModel
func NewOpenAI(client openai.Client, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Generate(ctx context.Context, userText string, persona string) (*Reply, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(persona),
			openai.UserMessage(userText),
		},
	})
	if err != nil {
		return nil, provider.FromOpenAI(openAIName, err)
	}

	if len(completion.Choices) == 0 {
		return nil, provider.New(openAIName, 0, "completion returned no choices")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return nil, provider.New(openAIName, 0, "completion returned empty content")
	}

	model := completion.Model
	if model == "" {
		model = o.model
	}

	return &Reply{Text: text, Model: model}, nil
}
