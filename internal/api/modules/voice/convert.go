package voice

import (
	"errors"
	"net/http"

	"github.com/ethanbaker/voice-assistant/internal/ledger"
	"github.com/ethanbaker/voice-assistant/internal/pipeline"
	"github.com/ethanbaker/voice-assistant/pkg/sdk"
)

// statusFor maps a pipeline failure to an HTTP status and a message
func statusFor(err error) (int, string) {
	kind, _ := pipeline.KindOf(err)

	switch kind {
	case pipeline.KindBadInput:
		return http.StatusBadRequest, "Audio could not be decoded"
	case pipeline.KindTranscription:
		return http.StatusBadGateway, "Speech recognition failed"
	case pipeline.KindGeneration:
		return http.StatusBadGateway, "Reply generation failed"
	case pipeline.KindSynthesis:
		return http.StatusBadGateway, "Speech synthesis failed"
	case pipeline.KindStorage:
		return http.StatusInternalServerError, "Failed to store artifacts"
	default:
		return http.StatusInternalServerError, "Failed to process request"
	}
}

func errorDetail(err error) sdk.ErrorDetail {
	var pipelineErr *pipeline.Error
	if errors.As(err, &pipelineErr) {
		return sdk.ErrorDetail{
			Kind:   string(pipelineErr.Kind),
			State:  string(pipelineErr.State),
			Detail: pipelineErr.Err.Error(),
		}
	}
	return sdk.ErrorDetail{Kind: "Internal", Detail: err.Error()}
}

// audioURL turns a locator under the audio root into a public URL
func (ctrl *Controller) audioURL(locator string) string {
	if locator == "" {
		return ""
	}
	return ctrl.baseURL + "/audio/" + locator
}

func (ctrl *Controller) toAskResponse(result *pipeline.Result) sdk.AskResponse {
	out := sdk.AskResponse{
		SessionID:     result.SessionID,
		UserText:      result.UserText,
		AssistantText: result.AssistantText,
		AudioURL:      ctrl.audioURL(result.AudioLocator),
		Degraded:      result.Degraded,
		NoSpeech:      result.NoSpeech,
	}

	if result.SynthesisError != nil {
		out.SynthesisError = &sdk.SynthesisError{
			Provider:  result.SynthesisError.Provider,
			Status:    result.SynthesisError.Status,
			Message:   result.SynthesisError.Message,
			Retryable: result.SynthesisError.Temporary(),
		}
	}

	return out
}

func (ctrl *Controller) toSDKTurn(turn *ledger.Turn) sdk.Turn {
	return sdk.Turn{
		SessionID:      turn.SessionID,
		CreatedAt:      turn.CreatedAt,
		UserBase:       turn.UserBase,
		AssistantBase:  turn.AssistantBase,
		UserText:       turn.UserText,
		AssistantText:  turn.AssistantText,
		AudioURL:       ctrl.audioURL(turn.AudioLocator),
		Model:          turn.Model,
		Backend:        turn.Backend,
		Degraded:       turn.Degraded,
		NoSpeech:       turn.NoSpeech,
		SynthesisError: turn.SynthesisError,
	}
}
