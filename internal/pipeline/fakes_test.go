package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/reply"
	"github.com/ethanbaker/voice-assistant/internal/speech"
	"github.com/ethanbaker/voice-assistant/internal/synth"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// toneWAV builds a stereo 44.1 kHz clip so normalization has work to do
func toneWAV(t *testing.T) []byte {
	t.Helper()

	const (
		sampleRate = 44100
		channels   = 2
	)

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := make([]int, 0, sampleRate/2*channels)
	for i := 0; i < sampleRate/2; i++ {
		v := int(8000 * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
		data = append(data, v, v)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	langs []string
}

func (f *fakeTranscriber) Name() string { return "fake-speech" }

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte, languageHint string) (*speech.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.langs = append(f.langs, languageHint)
	if f.err != nil {
		return nil, f.err
	}
	return &speech.Transcript{Text: f.text, Language: languageHint}, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	calls    int
	inputs   []string
	personas []string
}

func (f *fakeGenerator) Generate(ctx context.Context, userText string, persona string) (*reply.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.inputs = append(f.inputs, userText)
	f.personas = append(f.personas, persona)
	if f.err != nil {
		return nil, f.err
	}
	return &reply.Reply{Text: f.text, Model: "fake-model"}, nil
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	audio  []byte
	err    error
	calls  int
	voices []synth.Voice
}

func (f *fakeSynthesizer) Name() string   { return "fake-tts" }
func (f *fakeSynthesizer) Format() string { return "mp3" }

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string, voice synth.Voice) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

// faultyStore wraps a real store and injects failures into chosen steps
type faultyStore struct {
	*artifacts.Store

	stageCalls     atomic.Int32
	discardCalls   atomic.Int32
	stageErr       error
	userCommitErr  error
	assistantErr   error
	audioCommitErr error
	cleanupErr     error
}

func (s *faultyStore) StageAudio(sessionID string, createdAt time.Time, wav []byte) (artifacts.StagingHandle, error) {
	s.stageCalls.Add(1)
	if s.stageErr != nil {
		return artifacts.StagingHandle{}, s.stageErr
	}
	return s.Store.StageAudio(sessionID, createdAt, wav)
}

func (s *faultyStore) Discard(h artifacts.StagingHandle) error {
	s.discardCalls.Add(1)
	return s.Store.Discard(h)
}

func (s *faultyStore) CommitUserArtifact(h artifacts.StagingHandle, transcript string, meta artifacts.Metadata) (artifacts.Ref, error) {
	if s.userCommitErr != nil {
		return artifacts.Ref{}, s.userCommitErr
	}
	return s.Store.CommitUserArtifact(h, transcript, meta)
}

func (s *faultyStore) CommitAssistantTranscript(transcript string, meta artifacts.Metadata) (artifacts.Ref, error) {
	if s.assistantErr != nil {
		return artifacts.Ref{}, s.assistantErr
	}
	return s.Store.CommitAssistantTranscript(transcript, meta)
}

func (s *faultyStore) CommitAssistantAudio(ref artifacts.Ref, audio []byte, ext string) (artifacts.Ref, error) {
	if s.audioCommitErr != nil {
		return ref, s.audioCommitErr
	}
	return s.Store.CommitAssistantAudio(ref, audio, ext)
}

func (s *faultyStore) CleanupTemp(maxAge time.Duration) ([]string, error) {
	removed, err := s.Store.CleanupTemp(maxAge)
	if s.cleanupErr != nil {
		return removed, s.cleanupErr
	}
	return removed, err
}

var errVendor = errors.New("vendor unavailable")

// files lists regular files directly inside a namespace
func files(t *testing.T, store *artifacts.Store, ns artifacts.Namespace) []string {
	t.Helper()

	entries, err := os.ReadDir(store.Dir(ns))
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}
