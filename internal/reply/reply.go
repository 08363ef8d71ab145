// Package reply generates the assistant's conversational answer to a
// transcribed user turn
package reply

import "context"

// DefaultModel is the chat model used when REPLY_MODEL is not set
const DefaultModel = "gpt-3.5-turbo"

// Reply is a generated answer and the model that produced it
type Reply struct {
	Text  string
	Model string
}

// Generator produces a reply for userText under the given persona (system
// prompt). Failures are *provider.Error values or wrap them
type Generator interface {
	Generate(ctx context.Context, userText string, persona string) (*Reply, error)
}
