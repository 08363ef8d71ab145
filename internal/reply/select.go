package reply

import (
	"fmt"
	"strings"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Backend names accepted by REPLY_BACKEND
const (
	BackendOpenAI = "openai"
	BackendAgent  = "agent"
)

// New builds the generator named by REPLY_BACKEND (default "openai")
func New(cfg *utils.Config) (Generator, error) {
	if missing := cfg.Require("OPENAI_API_KEY"); missing != "" {
		return nil, fmt.Errorf("%s is required for reply generation", missing)
	}

	model := cfg.GetWithDefault("REPLY_MODEL", DefaultModel)

	switch backend := strings.ToLower(cfg.GetWithDefault("REPLY_BACKEND", BackendOpenAI)); backend {
	case BackendOpenAI:
		client := openai.NewClient(option.WithAPIKey(cfg.Get("OPENAI_API_KEY")))
		return NewOpenAI(client, model), nil
	case BackendAgent:
		return NewAgent(model), nil
	default:
		return nil, fmt.Errorf("unknown reply backend '%s'", backend)
	}
}
