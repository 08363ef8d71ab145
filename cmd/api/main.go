package main

import (
	"context"
	"log"

	"github.com/ethanbaker/voice-assistant/internal/api"
	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/audio"
	"github.com/ethanbaker/voice-assistant/internal/ledger"
	"github.com/ethanbaker/voice-assistant/internal/metrics"
	"github.com/ethanbaker/voice-assistant/internal/pipeline"
	"github.com/ethanbaker/voice-assistant/internal/reply"
	"github.com/ethanbaker/voice-assistant/internal/retention"
	"github.com/ethanbaker/voice-assistant/internal/speech"
	"github.com/ethanbaker/voice-assistant/internal/synth"
	"github.com/ethanbaker/voice-assistant/internal/telemetry"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Start the API server
func main() {
	ctx := context.Background()

	// Load global config
	cfg := utils.NewConfigFromEnv(utils.EnvFile())

	// Logging and tracing
	logFile, err := telemetry.InitLogger(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize logger: ", err)
	}
	defer logFile.Close()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize tracing: ", err)
	}
	defer shutdownTracing()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	// Storage
	store, err := artifacts.New(cfg.GetWithDefault("STORAGE_DIR", "storage"))
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to open artifact store: ", err)
	}

	recorder, err := ledger.Open(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to open turn ledger: ", err)
	}
	if recorder != nil {
		defer recorder.Close()
	}

	// Collaborators
	normalizer := audio.NewFFmpegNormalizer(cfg.GetWithDefault("FFMPEG_PATH", "ffmpeg"))
	if !normalizer.Available() {
		log.Println("[API-MAIN]: ffmpeg not found, only WAV uploads will be accepted")
	}

	transcriber, err := speech.New(ctx, cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create transcriber: ", err)
	}

	generator, err := reply.New(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create reply generator: ", err)
	}

	persona, err := reply.LoadPersona(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to load persona: ", err)
	}

	synthesizer, voice, err := synth.New(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create synthesizer: ", err)
	}

	p, err := pipeline.New(pipeline.Dependencies{
		Normalizer:  normalizer,
		Transcriber: transcriber,
		Generator:   generator,
		Synthesizer: synthesizer,
		Store:       store,
		Metrics:     m,
		Recorder:    recorder,
		Tracer:      telemetry.Tracer(),
	}, pipeline.OptionsFromConfig(cfg, persona, voice))
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create pipeline: ", err)
	}

	// Scheduled retention over the staging namespaces
	opts := retention.OptionsFromConfig(cfg)
	opts.Metrics = m
	janitor, err := retention.NewJanitor(store, opts)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to create retention janitor: ", err)
	}
	janitor.Start()
	defer janitor.Stop()

	log.Printf("[API-MAIN]: Using %s transcription, %s synthesis (voice %s)", transcriber.Name(), synthesizer.Name(), voice.Label())

	// Start
	api.Start(cfg, api.Services{
		Pipeline: p,
		Store:    store,
		Recorder: recorder,
		Metrics:  m,
		Gatherer: registry,
		Janitor:  janitor,
	})
}
