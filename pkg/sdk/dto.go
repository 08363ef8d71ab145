package sdk

import (
	"encoding/json"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  api_types.StatusType `json:"status"`          // Status message
	Code    int                  `json:"code"`            // Status code
	Message string               `json:"message"`         // Human-readable message
	Data    T                    `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any                  `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  api_types.StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  api_types.StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

// ErrorDetail is the error payload of a failed voice request
type ErrorDetail struct {
	Kind   string `json:"kind"`            // Failure class, e.g. BadInput
	State  string `json:"state,omitempty"` // Last state the run reached
	Detail string `json:"detail"`          // Underlying error text
}

// SynthesisError describes why a degraded turn has no audio
type SynthesisError struct {
	Provider  string `json:"provider"`
	Status    int    `json:"status,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// AskResponse is the result of one voice turn
type AskResponse struct {
	SessionID      string          `json:"session_id"`
	UserText       string          `json:"user_text"`
	AssistantText  string          `json:"assistant_text"`
	AudioURL       string          `json:"audio_url,omitempty"`
	Degraded       bool            `json:"degraded"`
	NoSpeech       bool            `json:"no_speech,omitempty"`
	SynthesisError *SynthesisError `json:"synthesis_error,omitempty"`
}

// Turn is a recorded voice turn
type Turn struct {
	SessionID      string    `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	UserBase       string    `json:"user_base"`
	AssistantBase  string    `json:"assistant_base,omitempty"`
	UserText       string    `json:"user_text"`
	AssistantText  string    `json:"assistant_text"`
	AudioURL       string    `json:"audio_url,omitempty"`
	Model          string    `json:"model,omitempty"`
	Backend        string    `json:"backend,omitempty"`
	Degraded       bool      `json:"degraded"`
	NoSpeech       bool      `json:"no_speech"`
	SynthesisError string    `json:"synthesis_error,omitempty"`
}

// TurnsResponse lists the most recent turns, newest first
type TurnsResponse struct {
	Turns []Turn `json:"turns"`
}

// TranscriptMetadata mirrors the metadata file stored next to a transcript
type TranscriptMetadata struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
	Language  string `json:"language,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
	Model     string `json:"model,omitempty"`
	Backend   string `json:"backend,omitempty"`
	Voice     string `json:"voice,omitempty"`
}

// Transcript is a committed transcript and, when present, its audio
type Transcript struct {
	Role     string             `json:"role"`
	BaseName string             `json:"base_name"`
	Text     string             `json:"text"`
	AudioURL string             `json:"audio_url,omitempty"`
	Metadata TranscriptMetadata `json:"metadata"`
}

// HealthResponse reports readiness of the server
type HealthResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}
