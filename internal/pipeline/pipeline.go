// Package pipeline runs one voice turn end to end: normalize the upload,
// transcribe it, generate a reply, synthesize speech and persist every
// artifact along the way
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/audio"
	"github.com/ethanbaker/voice-assistant/internal/ledger"
	"github.com/ethanbaker/voice-assistant/internal/metrics"
	"github.com/ethanbaker/voice-assistant/internal/provider"
	"github.com/ethanbaker/voice-assistant/internal/reply"
	"github.com/ethanbaker/voice-assistant/internal/speech"
	"github.com/ethanbaker/voice-assistant/internal/synth"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoSpeechReply is spoken back when silent turns are skipped
const NoSpeechReply = "ما سمعتك زين، ممكن تعيد؟"

// Store is the part of the artifact store a run needs
type Store interface {
	StageAudio(sessionID string, createdAt time.Time, wav []byte) (artifacts.StagingHandle, error)
	Discard(h artifacts.StagingHandle) error
	CommitUserArtifact(h artifacts.StagingHandle, transcript string, meta artifacts.Metadata) (artifacts.Ref, error)
	CommitAssistantTranscript(transcript string, meta artifacts.Metadata) (artifacts.Ref, error)
	CommitAssistantAudio(ref artifacts.Ref, audio []byte, ext string) (artifacts.Ref, error)
	ResolveAudioRef(ref artifacts.Ref) (string, error)
	CleanupTemp(maxAge time.Duration) ([]string, error)
}

// Dependencies are the collaborators of a pipeline. Metrics, Recorder and
// Tracer are optional
type Dependencies struct {
	Normalizer  audio.Normalizer
	Transcriber speech.Transcriber
	Generator   reply.Generator
	Synthesizer synth.Synthesizer
	Store       Store

	Metrics  *metrics.Metrics
	Recorder ledger.Recorder
	Tracer   trace.Tracer
}

// Options tune a pipeline
type Options struct {
	Language        string
	Persona         string
	Voice           synth.Voice
	RetentionMaxAge time.Duration
	SkipSilentTurns bool
}

// OptionsFromConfig reads SPEECH_LANGUAGE, RETENTION_MAX_AGE and
// SKIP_SILENT_TURNS. Persona and voice are resolved by their own packages
func OptionsFromConfig(cfg *utils.Config, persona string, voice synth.Voice) Options {
	return Options{
		Language:        cfg.GetWithDefault("SPEECH_LANGUAGE", speech.DefaultLanguage),
		Persona:         persona,
		Voice:           voice,
		RetentionMaxAge: cfg.GetDurationWithDefault("RETENTION_MAX_AGE", artifacts.DefaultMaxAge),
		SkipSilentTurns: cfg.GetBoolWithDefault("SKIP_SILENT_TURNS", false),
	}
}

// Pipeline processes voice turns. It holds no per-run state, so one value
// serves concurrent requests
type Pipeline struct {
	deps Dependencies
	opts Options
	now  func() time.Time
}

// New validates the dependencies and fills option defaults
func New(deps Dependencies, opts Options) (*Pipeline, error) {
	switch {
	case deps.Normalizer == nil:
		return nil, errors.New("pipeline requires a normalizer")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline requires a transcriber")
	case deps.Generator == nil:
		return nil, errors.New("pipeline requires a generator")
	case deps.Synthesizer == nil:
		return nil, errors.New("pipeline requires a synthesizer")
	case deps.Store == nil:
		return nil, errors.New("pipeline requires an artifact store")
	}

	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("pipeline")
	}
	if opts.Language == "" {
		opts.Language = speech.DefaultLanguage
	}
	if opts.Persona == "" {
		opts.Persona = reply.DefaultPersona
	}
	if opts.RetentionMaxAge <= 0 {
		opts.RetentionMaxAge = artifacts.DefaultMaxAge
	}

	return &Pipeline{deps: deps, opts: opts, now: time.Now}, nil
}

// Process runs one turn for the uploaded audio. Every failure is a *Error.
// A synthesis failure is not an error: the result comes back Degraded with
// the reply transcript committed and no audio locator
func (p *Pipeline) Process(ctx context.Context, raw []byte) (*Result, error) {
	session := NewSession(p.now())
	started := time.Now()

	ctx, span := p.deps.Tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("session.id", session.ID)))
	defer span.End()

	log.Printf("[PIPELINE]: Session %s started (%d bytes)", session.ID, len(raw))

	result, err := p.run(ctx, session, raw)

	// Opportunistic retention; never fails the run
	p.cleanup(ctx)

	if err != nil {
		var pipelineErr *Error
		if errors.As(err, &pipelineErr) {
			p.deps.Metrics.RecordFailure(string(pipelineErr.Kind))
			span.SetAttributes(attribute.String("pipeline.failed_after", string(pipelineErr.State)))
		}
		p.deps.Metrics.RecordRun(string(StateFailed), time.Since(started))
		span.SetAttributes(attribute.String("pipeline.outcome", string(StateFailed)))

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("[PIPELINE]: Session %s failed: %v", session.ID, err)
		return nil, err
	}

	p.deps.Metrics.RecordRun(result.Outcome(), time.Since(started))
	span.SetAttributes(
		attribute.String("pipeline.outcome", result.Outcome()),
		attribute.Bool("pipeline.degraded", result.Degraded),
	)
	p.record(ctx, session, result)

	log.Printf("[PIPELINE]: Session %s %s", session.ID, result.Outcome())
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, session Session, raw []byte) (*Result, error) {
	result := &Result{SessionID: session.ID, State: StateReceived}

	fail := func(kind Kind, err error) (*Result, error) {
		return nil, &Error{Kind: kind, State: result.State, Err: err}
	}

	// Normalize
	var wav []byte
	err := p.stage(ctx, "normalize", func(ctx context.Context) (err error) {
		wav, err = p.deps.Normalizer.Normalize(ctx, raw)
		return err
	})
	if err != nil {
		return fail(KindBadInput, fmt.Errorf("failed to normalize audio: %w", err))
	}
	result.State = StateNormalized

	// Stage
	var handle artifacts.StagingHandle
	err = p.stage(ctx, "stage", func(context.Context) (err error) {
		handle, err = p.deps.Store.StageAudio(session.ID, session.CreatedAt, wav)
		return err
	})
	if err != nil {
		return fail(KindStorage, fmt.Errorf("failed to stage audio: %w", err))
	}
	result.State = StateStaged

	// Until the user artifact is committed the staged file is ours to remove
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := p.deps.Store.Discard(handle); err != nil {
			log.Printf("[PIPELINE]: Session %s failed to discard staged audio %s: %v", session.ID, handle.Name, err)
		}
	}()

	// Transcribe
	var transcript *speech.Transcript
	err = p.stage(ctx, "transcribe", func(ctx context.Context) (err error) {
		transcript, err = p.deps.Transcriber.Transcribe(ctx, wav, p.opts.Language)
		return err
	})
	if err != nil {
		return fail(KindTranscription, fmt.Errorf("failed to transcribe audio: %w", err))
	}
	if transcript == nil {
		transcript = &speech.Transcript{}
	}
	result.UserText = strings.TrimSpace(transcript.Text)
	result.State = StateTranscribed

	// Commit user artifact
	err = p.stage(ctx, "commit_user", func(context.Context) (err error) {
		result.UserRef, err = p.deps.Store.CommitUserArtifact(handle, result.UserText, artifacts.Metadata{
			Timestamp: session.Timestamp(),
			SessionID: session.ID,
			Language:  p.opts.Language,
		})
		return err
	})
	if err != nil {
		return fail(KindStorage, fmt.Errorf("failed to commit user artifact: %w", err))
	}
	committed = true
	result.State = StateUserCommitted

	if result.UserText == "" && p.opts.SkipSilentTurns {
		result.NoSpeech = true
		result.AssistantText = NoSpeechReply
		result.State = StateCompleted
		return result, nil
	}

	// Generate
	var answer *reply.Reply
	err = p.stage(ctx, "generate", func(ctx context.Context) (err error) {
		answer, err = p.deps.Generator.Generate(ctx, result.UserText, p.opts.Persona)
		return err
	})
	if err == nil && (answer == nil || strings.TrimSpace(answer.Text) == "") {
		err = errors.New("generator returned an empty reply")
	}
	if err != nil {
		return fail(KindGeneration, fmt.Errorf("failed to generate reply: %w", err))
	}
	result.AssistantText = strings.TrimSpace(answer.Text)
	result.Model = answer.Model
	result.State = StateReplied

	// Commit assistant transcript
	err = p.stage(ctx, "commit_assistant_transcript", func(context.Context) (err error) {
		result.AssistantRef, err = p.deps.Store.CommitAssistantTranscript(result.AssistantText, artifacts.Metadata{
			Timestamp: session.Timestamp(),
			SessionID: session.ID,
			Model:     answer.Model,
			Backend:   p.deps.Synthesizer.Name(),
			Voice:     p.opts.Voice.Label(),
		})
		return err
	})
	if err != nil {
		return fail(KindStorage, fmt.Errorf("failed to commit assistant transcript: %w", err))
	}
	result.State = StateAssistantTranscriptCommitted

	// Synthesize
	var speechAudio []byte
	err = p.stage(ctx, "synthesize", func(ctx context.Context) (err error) {
		speechAudio, err = p.deps.Synthesizer.Synthesize(ctx, result.AssistantText, p.opts.Voice)
		if err == nil && len(speechAudio) == 0 {
			err = provider.New(p.deps.Synthesizer.Name(), 0, "empty audio stream")
		}
		return err
	})
	if err != nil {
		synthErr := asSynthesisError(p.deps.Synthesizer.Name(), err)
		p.deps.Metrics.RecordSynthesisFailure(synthErr.Provider, synthErr.Status)
		log.Printf("[PIPELINE]: Session %s degraded, synthesis failed: %v", session.ID, synthErr)

		result.Degraded = true
		result.SynthesisError = synthErr
		result.State = StateCompleted
		return result, nil
	}
	result.State = StateSynthesized

	// Commit assistant audio
	err = p.stage(ctx, "commit_assistant_audio", func(context.Context) (err error) {
		result.AssistantRef, err = p.deps.Store.CommitAssistantAudio(result.AssistantRef, speechAudio, p.deps.Synthesizer.Format())
		if err != nil {
			return err
		}
		result.AudioLocator, err = p.deps.Store.ResolveAudioRef(result.AssistantRef)
		return err
	})
	if err != nil {
		return fail(KindStorage, fmt.Errorf("failed to commit assistant audio: %w", err))
	}
	result.State = StateAssistantAudioCommitted

	result.State = StateCompleted
	return result, nil
}

// stage runs fn inside a span and records its latency
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.deps.Tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.deps.Metrics.ObserveStage(name, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Pipeline) cleanup(ctx context.Context) {
	_, span := p.deps.Tracer.Start(ctx, "pipeline.cleanup")
	defer span.End()

	removed, err := p.deps.Store.CleanupTemp(p.opts.RetentionMaxAge)
	p.deps.Metrics.RecordRetention(len(removed), err)
	if err != nil {
		span.RecordError(err)
		log.Printf("[PIPELINE]: Temp cleanup failed: %v", err)
	}
}

func (p *Pipeline) record(ctx context.Context, session Session, result *Result) {
	if p.deps.Recorder == nil {
		return
	}

	turn := &ledger.Turn{
		SessionID:     session.ID,
		CreatedAt:     session.CreatedAt,
		UserBase:      result.UserRef.BaseName,
		AssistantBase: result.AssistantRef.BaseName,
		UserText:      result.UserText,
		AssistantText: result.AssistantText,
		AudioLocator:  result.AudioLocator,
		Model:         result.Model,
		Backend:       p.deps.Synthesizer.Name(),
		Degraded:      result.Degraded,
		NoSpeech:      result.NoSpeech,
	}
	if result.SynthesisError != nil {
		turn.SynthesisError = result.SynthesisError.Error()
	}

	// The turn is already on disk, so a client hang-up must not drop the record
	if err := p.deps.Recorder.Record(context.WithoutCancel(ctx), turn); err != nil {
		log.Printf("[PIPELINE]: Session %s failed to record turn: %v", session.ID, err)
	}
}

func asSynthesisError(name string, err error) *synth.Error {
	var synthErr *synth.Error
	if errors.As(err, &synthErr) {
		return synthErr
	}
	return provider.FromTransport(name, err)
}
