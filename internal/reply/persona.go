package reply

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
)

// DefaultPersona is the built-in Saudi-dialect assistant prompt
const DefaultPersona = `You are an Arabic-speaking assistant, specifically using Saudi dialect.
Always respond in Arabic using Saudi dialect and expressions.
Keep responses natural, friendly, and culturally appropriate for Saudi Arabia.
Use common Saudi phrases and expressions when suitable.`

// PersonaBuilder assembles a system prompt from a base persona plus
// deployment facts and guidelines
type PersonaBuilder struct {
	base       string
	facts      map[string]string
	guidelines []string
}

// NewPersonaBuilder creates a builder over a base persona
func NewPersonaBuilder(base string) *PersonaBuilder {
	return &PersonaBuilder{
		base:  base,
		facts: make(map[string]string),
	}
}

// AddFact adds a key-value fact to the prompt
func (pb *PersonaBuilder) AddFact(key, value string) *PersonaBuilder {
	pb.facts[key] = value
	return pb
}

// AddGuideline adds a response guideline to the prompt
func (pb *PersonaBuilder) AddGuideline(guideline string) *PersonaBuilder {
	pb.guidelines = append(pb.guidelines, guideline)
	return pb
}

// Build constructs the final prompt. Facts are sorted by key so the same
// inputs always give the same prompt
func (pb *PersonaBuilder) Build() string {
	parts := []string{strings.TrimSpace(pb.base)}

	if len(pb.facts) > 0 {
		keys := make([]string, 0, len(pb.facts))
		for key := range pb.facts {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		parts = append(parts, "\n## Key Facts:")
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("- %s: %s", key, pb.facts[key]))
		}
	}

	if len(pb.guidelines) > 0 {
		parts = append(parts, "\n## Guidelines:")
		for _, guideline := range pb.guidelines {
			parts = append(parts, fmt.Sprintf("- %s", guideline))
		}
	}

	return strings.Join(parts, "\n")
}

// LoadPersona builds the system prompt for the assistant from config.
// PERSONA_PROMPT_PATH replaces the built-in persona; the spoken language and
// the reply length limit are appended as facts
func LoadPersona(cfg *utils.Config) (string, error) {
	base, err := utils.LoadPromptWithFallback(cfg.Get("PERSONA_PROMPT_PATH"), DefaultPersona)
	if err != nil {
		return "", fmt.Errorf("failed to load persona prompt: %w", err)
	}

	builder := NewPersonaBuilder(base).
		AddFact("Spoken language", cfg.GetWithDefault("SPEECH_LANGUAGE", "ar-SA")).
		AddGuideline("Replies are read aloud, so avoid markdown, lists, emoji and URLs")

	if limit := cfg.GetInt("REPLY_MAX_SENTENCES"); limit > 0 {
		builder.AddGuideline(fmt.Sprintf("Answer in at most %d sentences", limit))
	}

	return builder.Build(), nil
}
