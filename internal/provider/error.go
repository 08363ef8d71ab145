// Package provider holds the failure shape shared by every vendor adapter
// (recognition, completion, synthesis)
package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"google.golang.org/api/googleapi"
)

// maxErrorBody caps how much of a failed response body ends up in an error
const maxErrorBody = 2048

// Error is a vendor failure normalised to an HTTP status and a message.
// Status is 0 when the request never produced a response (DNS, timeouts,
// protocol errors) or the response was unusable
type Error struct {
	Provider string `json:"provider"`
	Status   int    `json:"status"`
	Message  string `json:"message"`
}

// New creates a provider error
func New(provider string, status int, format string, args ...any) *Error {
	return &Error{
		Provider: provider,
		Status:   status,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether the vendor signalled a rate limit or server fault
func (e *Error) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// FromResponse builds an error from a non-2xx response, consuming its body
func FromResponse(provider string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &Error{
		Provider: provider,
		Status:   resp.StatusCode,
		Message:  message,
	}
}

// FromTransport wraps a failure that happened before any response arrived
func FromTransport(provider string, err error) *Error {
	return &Error{
		Provider: provider,
		Message:  err.Error(),
	}
}

// FromOpenAI maps an openai-go error into an Error
func FromOpenAI(provider string, err error) *Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(apiErr.StatusCode)
		}
		return &Error{Provider: provider, Status: apiErr.StatusCode, Message: message}
	}
	return FromTransport(provider, err)
}

// FromGoogle maps a google.golang.org/api error into an Error
func FromGoogle(provider string, err error) *Error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(apiErr.Code)
		}
		return &Error{Provider: provider, Status: apiErr.Code, Message: message}
	}
	return FromTransport(provider, err)
}
