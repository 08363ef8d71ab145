package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		want float64
	}{
		{"empty", nil, 0},
		{"silence", pcm(0, 0, 0, 0), 0},
		{"full scale", pcm(32767, -32767), 1},
		{"half scale", pcm(16384, -16384, 16384, -16384), 16384.0 / 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, rms(tt.pcm), 1e-6)
		})
	}
}

func TestTailRMS_ReadsOnlyTheWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")

	// One second of loud audio followed by a quarter second of silence at 8 kHz
	data := make([]byte, wavHeaderSize)
	for i := 0; i < 8000; i++ {
		data = append(data, pcm(20000)...)
	}
	data = append(data, make([]byte, 2*2000)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	vad := NewVoiceActivityDetector(path, 8000)

	quiet, err := vad.tailRMS(250 * time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, quiet)

	loud, err := vad.tailRMS(time.Second)
	require.NoError(t, err)
	assert.Greater(t, loud, SilenceThreshold)
}

func TestTailRMS_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.wav")
	require.NoError(t, os.WriteFile(path, make([]byte, wavHeaderSize), 0o644))

	_, err := NewVoiceActivityDetector(path, AudioSampleRate).tailRMS(time.Second)
	assert.Error(t, err)
}
