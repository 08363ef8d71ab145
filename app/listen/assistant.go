package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ethanbaker/voice-assistant/pkg/sdk"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
)

const (
	// Audio constants
	AudioSampleRate = 16000            // Sample rate for audio recording
	AudioFileName   = "temp_audio.wav" // Temporary audio file
	MinAudioBytes   = 1000             // Smaller recordings hold no real speech

	// Voice Activity Detection constants
	SilenceThreshold   = 0.01 // RMS threshold for silence detection
	MinSpeechDuration  = 1.0  // Minimum duration of speech in seconds
	MaxSilenceDuration = 2.0  // Silence in seconds that ends an utterance
	MaxRecordDuration  = 30.0 // Hard cap on one utterance in seconds
)

// VoiceAssistant records utterances from the microphone and sends each one
// to the backend as a voice turn
type VoiceAssistant struct {
	config    *utils.Config
	apiClient *sdk.Client
	audioFile string
	language  string
}

// NewVoiceAssistant creates a new voice client instance
func NewVoiceAssistant(cfg *utils.Config) (*VoiceAssistant, error) {
	backendURL := cfg.Get("BACKEND_BASE_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL not set in config or environment")
	}

	return &VoiceAssistant{
		config:    cfg,
		apiClient: sdk.NewClient(backendURL, cfg.Get("BACKEND_API_KEY")),
		audioFile: filepath.Join(os.TempDir(), AudioFileName),
		language:  cfg.GetWithDefault("ESPEAK_VOICE", "ar"),
	}, nil
}

// Start checks the backend and tools, then begins the listen loop
func (va *VoiceAssistant) Start(ctx context.Context) error {
	if err := va.checkDependencies(); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	health, err := va.apiClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("backend is not ready: %w", err)
	}
	log.Printf("[LISTEN]: Backend ready (%d checks). Say something to begin...", len(health.Checks))

	// Main voice interaction loop
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := va.processVoiceInteraction(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("[LISTEN]: Error processing voice interaction: %v", err)
					time.Sleep(2 * time.Second)
				}
			}
		}
	}()

	return nil
}

// Stop removes any temporary audio files
func (va *VoiceAssistant) Stop() error {
	log.Println("[LISTEN]: Stopping voice client...")

	if _, err := os.Stat(va.audioFile); err == nil {
		return os.Remove(va.audioFile)
	}

	return nil
}

// checkDependencies verifies that required external tools are available
func (va *VoiceAssistant) checkDependencies() error {
	_, arecordErr := exec.LookPath("arecord")
	_, ffmpegErr := exec.LookPath("ffmpeg")
	if arecordErr != nil && ffmpegErr != nil {
		return fmt.Errorf("no audio recording tool available (tried arecord, ffmpeg)")
	}

	if _, err := exec.LookPath("ffplay"); err != nil {
		log.Println("[LISTEN]: Warning - ffplay not found, replies will be printed only")
	}

	if _, err := exec.LookPath("espeak-ng"); err != nil {
		log.Println("[LISTEN]: Warning - espeak-ng not found, degraded replies will not be spoken")
	}

	return nil
}

// processVoiceInteraction handles one complete voice interaction cycle
func (va *VoiceAssistant) processVoiceInteraction(ctx context.Context) error {
	log.Println("[LISTEN]: Listening for speech... (Speak now)")

	audioFile, err := va.recordAudio(ctx)
	if err != nil {
		return fmt.Errorf("failed to record audio: %w", err)
	}
	defer os.Remove(audioFile)

	if info, err := os.Stat(audioFile); err != nil || info.Size() < MinAudioBytes {
		log.Println("[LISTEN]: No significant audio detected, listening again...")
		time.Sleep(1 * time.Second)
		return nil
	}

	f, err := os.Open(audioFile)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	log.Println("[LISTEN]: Audio captured, sending to backend...")

	res, err := va.apiClient.Ask(ctx, AudioFileName, f)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.Kind() == "BadInput" {
			log.Println("[LISTEN]: Backend could not use the recording, listening again...")
			return nil
		}
		return fmt.Errorf("failed to ask backend: %w", err)
	}

	log.Printf("[LISTEN]: User said: %s", res.UserText)
	log.Printf("[LISTEN]: Assistant: %s", res.AssistantText)

	if err := va.playReply(ctx, res); err != nil {
		log.Printf("[LISTEN]: Warning - failed to play response: %v", err)
	}

	// Brief pause before listening again
	time.Sleep(1 * time.Second)

	return nil
}

// recordAudio streams audio from the microphone until the VAD hears the end of an utterance
func (va *VoiceAssistant) recordAudio(ctx context.Context) (string, error) {
	// Safety timeout on top of the VAD cap
	recordCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	switch {
	case commandExists("arecord"):
		cmd = exec.CommandContext(recordCtx, "arecord",
			"-D", "default", // Default audio device
			"-f", "S16_LE", // 16-bit little-endian format
			"-c", "1", // Mono
			"-r", fmt.Sprintf("%d", AudioSampleRate),
			va.audioFile,
		)
	case commandExists("ffmpeg"):
		cmd = exec.CommandContext(recordCtx, "ffmpeg",
			"-f", "pulse", // Use PulseAudio
			"-i", "default", // Default input device
			"-ar", fmt.Sprintf("%d", AudioSampleRate),
			"-ac", "1", // Mono
			"-y", // Overwrite output file
			va.audioFile,
		)
	default:
		return "", fmt.Errorf("no audio recording tool available (tried arecord, ffmpeg)")
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", filepath.Base(cmd.Path), err)
	}

	vad := NewVoiceActivityDetector(va.audioFile, AudioSampleRate)
	vad.Monitor(recordCtx)

	// Stop the recording process
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	cmd.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return va.audioFile, nil
}

// playReply plays the synthesized reply, or speaks the text locally when the turn came back without audio
func (va *VoiceAssistant) playReply(ctx context.Context, res *sdk.AskResponse) error {
	if res.AudioURL != "" && commandExists("ffplay") {
		cmd := exec.CommandContext(ctx, "ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", res.AudioURL)
		return cmd.Run()
	}

	if res.SynthesisError != nil {
		log.Printf("[LISTEN]: Backend returned no audio (%s)", res.SynthesisError.Message)
	}

	if res.AudioURL == "" && commandExists("espeak-ng") {
		cmd := exec.CommandContext(ctx, "espeak-ng", "-v", va.language, res.AssistantText)
		return cmd.Run()
	}

	fmt.Printf("[VOICE]: %s\n", res.AssistantText)
	if res.AudioURL != "" {
		fmt.Printf("[VOICE]: %s\n", res.AudioURL)
	}
	return nil
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
