package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// Client wraps calls to the voice assistant backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithHTTPClient replaces the default HTTP client
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// Ask uploads one recording and returns the assistant's answer
func (c *Client) Ask(ctx context.Context, filename string, audio io.Reader) (*AskResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var out ApiResponse[AskResponse]
	if err := c.do(ctx, http.MethodPost, "/api/voice/ask", &buf, writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Health reports whether the backend is ready to take requests
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out ApiResponse[HealthResponse]
	if err := c.doJSON(ctx, http.MethodGet, "/api/health/ready", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// Turns lists recent turns, newest first. A limit of zero uses the server default
func (c *Client) Turns(ctx context.Context, limit int) ([]Turn, error) {
	path := "/api/voice/turns"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out ApiResponse[TurnsResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return out.Data.Turns, nil
}

// Transcripts lists the committed transcript base names of a role, newest first
func (c *Client) Transcripts(ctx context.Context, role string) ([]string, error) {
	var out ApiResponse[[]string]
	if err := c.doJSON(ctx, http.MethodGet, "/api/voice/transcripts/"+url.PathEscape(role), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Transcript fetches one committed transcript
func (c *Client) Transcript(ctx context.Context, role, base string) (*Transcript, error) {
	path := "/api/voice/transcripts/" + url.PathEscape(role) + "/" + url.PathEscape(base)

	var out ApiResponse[Transcript]
	if err := c.doJSON(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// doJSON is a helper to perform body-less JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, out responseEnvelope) error {
	return c.do(ctx, method, path, nil, "application/json", out)
}

// responseEnvelope exposes the status fields of any ApiResponse
type responseEnvelope interface {
	status() (api_types.StatusType, string, any)
}

func (r *ApiResponse[T]) status() (api_types.StatusType, string, any) {
	return r.Status, r.Message, r.Error
}

// do performs a request and decodes the standard response envelope into out
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out responseEnvelope) error {
	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Error bodies usually carry the envelope too; fall back to the raw text
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &Error{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Check for success
	status, message, detail := out.status()
	switch {
	case status == api_types.StatusFail, status == api_types.StatusError:
		return &Error{Code: resp.StatusCode, Message: message, Detail: detail}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &Error{Code: resp.StatusCode, Message: message, Detail: detail}
	}

	return nil
}

// Error is returned when the backend answers with a failure envelope
type Error struct {
	Code    int
	Message string
	Detail  any
}

func (e *Error) Error() string {
	if e.Detail != nil {
		return fmt.Sprintf("[BACKEND]: request failed: %d: %s (%v)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[BACKEND]: request failed: %d: %s", e.Code, e.Message)
}

// Kind returns the failure class reported by the voice endpoint, if any
func (e *Error) Kind() string {
	if detail, ok := e.Detail.(map[string]any); ok {
		if kind, ok := detail["kind"].(string); ok {
			return kind
		}
	}
	return ""
}
