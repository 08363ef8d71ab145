package main

import (
	"context"
	"encoding/binary"
	"io"
	"log"
	"math"
	"os"
	"time"
)

// wavHeaderSize is the canonical PCM header arecord and ffmpeg write
const wavHeaderSize = 44

// VoiceActivityDetector watches a recording that is still being written and
// decides when the speaker has finished
type VoiceActivityDetector struct {
	audioFile          string
	sampleRate         int
	silenceThreshold   float64
	minSpeechDuration  time.Duration
	maxSilenceDuration time.Duration
	maxRecordDuration  time.Duration
}

// NewVoiceActivityDetector creates a new VAD instance for 16-bit mono audio
func NewVoiceActivityDetector(audioFile string, sampleRate int) *VoiceActivityDetector {
	return &VoiceActivityDetector{
		audioFile:          audioFile,
		sampleRate:         sampleRate,
		silenceThreshold:   SilenceThreshold,
		minSpeechDuration:  time.Duration(MinSpeechDuration * float64(time.Second)),
		maxSilenceDuration: time.Duration(MaxSilenceDuration * float64(time.Second)),
		maxRecordDuration:  time.Duration(MaxRecordDuration * float64(time.Second)),
	}
}

// Monitor blocks until the end of an utterance, the length cap or ctx is done
func (vad *VoiceActivityDetector) Monitor(ctx context.Context) {
	speechDetected := false
	speechStartTime := time.Time{}
	lastActivityTime := time.Now()

	// Give initial buffer time
	time.Sleep(500 * time.Millisecond)

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			amplitude, err := vad.tailRMS(500 * time.Millisecond)
			if err != nil {
				continue
			}

			if amplitude > vad.silenceThreshold {
				if !speechDetected {
					speechDetected = true
					speechStartTime = time.Now()
					log.Println("[VAD]: Speech detected")
				}
				lastActivityTime = time.Now()
			} else if speechDetected {
				silenceDuration := time.Since(lastActivityTime)
				speechDuration := time.Since(speechStartTime)

				if speechDuration >= vad.minSpeechDuration && silenceDuration >= vad.maxSilenceDuration {
					log.Printf("[VAD]: End of speech detected (spoke for %.1fs, silent for %.1fs)", speechDuration.Seconds(), silenceDuration.Seconds())
					return
				}
			}

			if speechDetected && time.Since(speechStartTime) > vad.maxRecordDuration {
				log.Println("[VAD]: Maximum recording time reached")
				return
			}
		}
	}
}

// tailRMS reads the last window of samples from the growing file and
// returns their RMS level in [0, 1]
func (vad *VoiceActivityDetector) tailRMS(window time.Duration) (float64, error) {
	f, err := os.Open(vad.audioFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	want := int64(window.Seconds()*float64(vad.sampleRate)) * 2
	available := info.Size() - wavHeaderSize
	if available <= 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if want > available {
		want = available
	}
	want -= want % 2

	buf := make([]byte, want)
	if _, err := f.ReadAt(buf, info.Size()-want); err != nil && err != io.EOF {
		return 0, err
	}

	return rms(buf), nil
}

// rms computes the normalized RMS of little-endian 16-bit PCM
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / math.MaxInt16
		sum += sample * sample
	}

	return math.Sqrt(sum / float64(n))
}
