package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/ledger"
	"github.com/ethanbaker/voice-assistant/internal/pipeline"
	"github.com/ethanbaker/voice-assistant/pkg/sdk"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps an uploaded recording
const DefaultMaxUploadBytes = 25 << 20

// Processor runs one voice turn
type Processor interface {
	Process(ctx context.Context, raw []byte) (*pipeline.Result, error)
}

// Options configure a Controller. Recorder may be nil when the ledger is disabled
type Options struct {
	Pipeline       Processor
	Store          *artifacts.Store
	Recorder       ledger.Recorder
	PublicBaseURL  string
	MaxUploadBytes int64
}

// Controller serves the voice routes
type Controller struct {
	pipeline  Processor
	store     *artifacts.Store
	recorder  ledger.Recorder
	baseURL   string
	maxUpload int64
}

// NewController validates the options and returns a controller
func NewController(opts Options) (*Controller, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("voice controller requires a pipeline")
	}
	if opts.Store == nil {
		return nil, errors.New("voice controller requires an artifact store")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}

	return &Controller{
		pipeline:  opts.Pipeline,
		store:     opts.Store,
		recorder:  opts.Recorder,
		baseURL:   strings.TrimRight(opts.PublicBaseURL, "/"),
		maxUpload: opts.MaxUploadBytes,
	}, nil
}

// Ask handles POST requests carrying a recording in the multipart field "file"
func (ctrl *Controller) Ask(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Missing audio file", err.Error()).AsGinResponse())
		return
	}
	if header.Size > ctrl.maxUpload {
		c.JSON(sdk.NewErrorResponse(http.StatusRequestEntityTooLarge, "Audio file is too large", fmt.Sprintf("limit is %d bytes", ctrl.maxUpload)).AsGinResponse())
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not open audio file", err.Error()).AsGinResponse())
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, ctrl.maxUpload))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not read audio file", err.Error()).AsGinResponse())
		return
	}

	result, err := ctrl.pipeline.Process(c.Request.Context(), raw)
	if err != nil {
		code, message := statusFor(err)
		c.JSON(sdk.NewErrorResponse(code, message, errorDetail(err)).AsGinResponse())
		return
	}

	message := "Turn completed"
	if result.Degraded {
		message = "Turn completed without audio"
	}
	c.JSON(sdk.NewSuccessResponse(message, ctrl.toAskResponse(result)).AsGinResponse())
}

// ListTurns handles GET requests for the most recent recorded turns
func (ctrl *Controller) ListTurns(c *gin.Context) {
	if ctrl.recorder == nil {
		c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Turn ledger is disabled", nil).AsGinResponse())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid limit", err.Error()).AsGinResponse())
			return
		}
		limit = parsed
	}

	turns, err := ctrl.recorder.Recent(c.Request.Context(), ledger.ClampLimit(limit))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to list turns", err.Error()).AsGinResponse())
		return
	}

	out := sdk.TurnsResponse{Turns: make([]sdk.Turn, 0, len(turns))}
	for _, turn := range turns {
		out.Turns = append(out.Turns, ctrl.toSDKTurn(turn))
	}

	c.JSON(sdk.NewSuccessResponse("Turns retrieved successfully", out).AsGinResponse())
}

// ListTranscripts handles GET requests for the committed transcripts of a role
func (ctrl *Controller) ListTranscripts(c *gin.Context) {
	role, err := artifacts.ParseRole(c.Param("role"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid role", err.Error()).AsGinResponse())
		return
	}

	bases, err := ctrl.store.List(role)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to list transcripts", err.Error()).AsGinResponse())
		return
	}
	if bases == nil {
		bases = []string{}
	}

	c.JSON(sdk.NewSuccessResponse("Transcripts retrieved successfully", bases).AsGinResponse())
}

// GetTranscript handles GET requests for one committed transcript
func (ctrl *Controller) GetTranscript(c *gin.Context) {
	role, err := artifacts.ParseRole(c.Param("role"))
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid role", err.Error()).AsGinResponse())
		return
	}

	transcript, err := ctrl.store.ReadTranscript(role, c.Param("base"))
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Transcript not found", err.Error()).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to read transcript", err.Error()).AsGinResponse())
		return
	}

	out := sdk.Transcript{
		Role:     string(role),
		BaseName: transcript.BaseName,
		Text:     transcript.Text,
		Metadata: sdk.TranscriptMetadata{
			Timestamp: transcript.Metadata.Timestamp,
			SessionID: transcript.Metadata.SessionID,
			Language:  transcript.Metadata.Language,
			AudioPath: transcript.Metadata.AudioPath,
			Model:     transcript.Metadata.Model,
			Backend:   transcript.Metadata.Backend,
			Voice:     transcript.Metadata.Voice,
		},
	}

	if audioPath := ctrl.store.AudioFor(role, transcript.BaseName); audioPath != "" {
		locator, err := ctrl.store.ResolveAudioRef(artifacts.Ref{Role: role, BaseName: transcript.BaseName, AudioPath: audioPath})
		if err != nil {
			log.Printf("[API-VOICE]: Failed to resolve audio for %s: %v", transcript.BaseName, err)
		} else {
			out.AudioURL = ctrl.audioURL(locator)
		}
	}

	c.JSON(sdk.NewSuccessResponse("Transcript retrieved successfully", out).AsGinResponse())
}
