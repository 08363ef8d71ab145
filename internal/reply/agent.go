package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/provider"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

const agentName = "voice-assistant"

// Agent generates replies by running a single-turn openai-agents-go agent
// whose instructions are the persona
type Agent struct {
	model string
}

// NewAgent creates an agent-backed generator. An empty model uses DefaultModel
func NewAgent(model string) *Agent {
	if model == "" {
		model = DefaultModel
	}
	return &Agent{model: model}
}

func (a *Agent) Generate(ctx context.Context, userText string, persona string) (*Reply, error) {
	agent := agents.New(agentName).
		WithInstructions(persona).
		WithModel(a.model)

	result, err := agents.Run(ctx, agent, userText)
	if err != nil {
		return nil, fmt.Errorf("agent execution failed: %w", provider.FromOpenAI(openAIName, err))
	}

	text := strings.TrimSpace(fmt.Sprintf("%v", result.FinalOutput))
	if result.FinalOutput == nil || text == "" {
		return nil, provider.New(openAIName, 0, "agent returned empty output")
	}

	return &Reply{Text: text, Model: a.model}, nil
}
