package synth

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"gopkg.in/yaml.v3"
)

// Default voices per backend, overridable through config or the voices file
var defaultVoices = map[string]Voice{
	BackendElevenLabs: {
		ID:    "TxGEqnHWrfWFTfGW9XjX",
		Model: ElevenLabsDefaultModel,
	},
	BackendElevenLabsStream: {
		ID:    "TxGEqnHWrfWFTfGW9XjX",
		Model: ElevenLabsDefaultModel,
	},
	BackendPlayHT: {
		Manifest:     "s3://voice-cloning-zero-shot/d44b758a-f3e7-4a7c-af50-02451c7101f4/original/manifest.json",
		OutputFormat: PlayHTDefaultFormat,
		Language:     PlayHTDefaultLang,
		Engine:       PlayHTDefaultEngine,
	},
	BackendOpenAI: {
		ID:    OpenAIDefaultVoice,
		Model: OpenAIDefaultModel,
	},
}

// LoadVoices reads a YAML file mapping backend names to voice profiles:
//
//	elevenlabs:
//	  id: TxGEqnHWrfWFTfGW9XjX
//	  model: eleven_multilingual_v2
//	playht:
//	  manifest: s3://.../manifest.json
//	  language: arabic
func LoadVoices(path string) (map[string]Voice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read voices file: %w", err)
	}

	voices := map[string]Voice{}
	if err := yaml.Unmarshal(data, &voices); err != nil {
		return nil, fmt.Errorf("failed to parse voices file: %w", err)
	}

	for name := range voices {
		if _, ok := defaultVoices[name]; !ok {
			return nil, fmt.Errorf("voices file names unknown backend '%s'", name)
		}
	}

	return voices, nil
}

// New builds the synthesizer named by TTS_BACKEND together with the voice
// it should speak with. Voice fields are resolved in order: environment
// keys, the TTS_VOICES_FILE profile, built-in defaults
func New(cfg *utils.Config) (Synthesizer, Voice, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.GetWithDefault("TTS_BACKEND", BackendElevenLabs)))

	def, ok := defaultVoices[backend]
	if !ok {
		return nil, Voice{}, fmt.Errorf("unknown TTS backend '%s'", backend)
	}

	if path := cfg.Get("TTS_VOICES_FILE"); path != "" {
		voices, err := LoadVoices(path)
		if err != nil {
			return nil, Voice{}, err
		}
		def = voices[backend].merge(def)
	}

	var (
		synthesizer Synthesizer
		voice       Voice
	)

	switch backend {
	case BackendElevenLabs, BackendElevenLabsStream:
		if missing := cfg.Require("ELEVENLABS_API_KEY"); missing != "" {
			return nil, Voice{}, fmt.Errorf("%s is required for the %s backend", missing, backend)
		}
		voice = Voice{
			ID:    cfg.Get("ELEVENLABS_VOICE_ID"),
			Model: cfg.Get("ELEVENLABS_MODEL_ID"),
		}

		if backend == BackendElevenLabs {
			synthesizer = NewElevenLabs(cfg.Get("ELEVENLABS_API_KEY")).WithBaseURL(cfg.Get("ELEVENLABS_BASE_URL"))
		} else {
			synthesizer = NewElevenLabsStream(cfg.Get("ELEVENLABS_API_KEY")).WithWSBaseURL(cfg.Get("ELEVENLABS_WS_URL"))
		}

	case BackendPlayHT:
		if missing := cfg.Require("PLAYHT_API_KEY", "PLAYHT_USER_ID"); missing != "" {
			return nil, Voice{}, fmt.Errorf("%s is required for the %s backend", missing, backend)
		}
		voice = Voice{
			Manifest:     cfg.Get("PLAYHT_VOICE"),
			OutputFormat: cfg.Get("PLAYHT_OUTPUT_FORMAT"),
			Language:     cfg.Get("PLAYHT_LANGUAGE"),
			Engine:       cfg.Get("PLAYHT_VOICE_ENGINE"),
		}.merge(def)

		synthesizer = NewPlayHT(cfg.Get("PLAYHT_API_KEY"), cfg.Get("PLAYHT_USER_ID"), voice.OutputFormat).
			WithBaseURL(cfg.Get("PLAYHT_BASE_URL"))

	case BackendOpenAI:
		if missing := cfg.Require("OPENAI_API_KEY"); missing != "" {
			return nil, Voice{}, fmt.Errorf("%s is required for the %s backend", missing, backend)
		}
		voice = Voice{
			ID:    cfg.Get("OPENAI_TTS_VOICE"),
			Model: cfg.Get("OPENAI_TTS_MODEL"),
		}

		synthesizer = NewOpenAI(openai.NewClient(option.WithAPIKey(cfg.Get("OPENAI_API_KEY"))))
	}

	return synthesizer, voice.merge(def), nil
}
