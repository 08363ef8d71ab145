package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeWAV renders a 440 Hz tone with the given layout into WAV bytes
func makeWAV(t *testing.T, sampleRate, bitDepth, channels int, seconds float64) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	frames := int(float64(sampleRate) * seconds)
	amplitude := float64(int(1)<<(bitDepth-1)-1) * 0.5
	data := make([]int, 0, frames*channels)

	for i := 0; i < frames; i++ {
		v := int(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		if bitDepth == 8 {
			v += 128
		}
		for c := 0; c < channels; c++ {
			data = append(data, v)
		}
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	return out
}

func TestNormalize_WAVLayouts(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		bitDepth   int
		channels   int
	}{
		{"stereo 44.1kHz 16-bit", 44100, 16, 2},
		{"mono 8kHz 8-bit", 8000, 8, 1},
		{"stereo 48kHz 24-bit", 48000, 24, 2},
		{"mono 22.05kHz 32-bit", 22050, 32, 1},
		{"already canonical", 16000, 16, 1},
	}

	n := NewFFmpegNormalizer("")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := makeWAV(t, tt.sampleRate, tt.bitDepth, tt.channels, 1)

			out, err := n.Normalize(context.Background(), raw)
			require.NoError(t, err)

			format, err := Inspect(out)
			require.NoError(t, err)

			assert.True(t, format.IsCanonical(), "got %+v", format)
			assert.Equal(t, 1, format.Channels)
			assert.Equal(t, 16000, format.SampleRate)
			assert.Equal(t, 16, format.BitDepth)
			assert.InDelta(t, time.Second.Seconds(), format.Duration.Seconds(), 0.01)
		})
	}
}

func TestNormalize_KeepsSignal(t *testing.T) {
	raw := makeWAV(t, 44100, 16, 2, 0.5)

	out, err := NewFFmpegNormalizer("").Normalize(context.Background(), raw)
	require.NoError(t, err)

	buf, _, err := decodeWAV(out)
	require.NoError(t, err)

	peak := 0
	for _, s := range buf.Data {
		if s > peak {
			peak = s
		}
	}

	// Half-scale tone survives downmix and resampling
	assert.InDelta(t, 16383, peak, 600)
}

func TestNormalize_BadInput(t *testing.T) {
	n := NewFFmpegNormalizer("definitely-not-ffmpeg")

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty upload", nil, ErrUnsupportedFormat},
		{"plain text", []byte("this is not audio at all, just some text"), ErrUnsupportedFormat},
		{"json", []byte(`{"audio": false}`), ErrUnsupportedFormat},
		{"png image", append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...), ErrUnsupportedFormat},
		{"corrupted wav", append([]byte("RIFF\x24\x00\x00\x00WAVEjunk"), bytes.Repeat([]byte{0xff}, 64)...), ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalize_FFmpegContainers(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	source := filepath.Join(t.TempDir(), "source.wav")
	require.NoError(t, os.WriteFile(source, makeWAV(t, 44100, 16, 2, 3), 0644))

	for _, ext := range []string{"ogg", "mp3", "flac"} {
		t.Run(ext, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "clip."+ext)
			cmd := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error", "-y", "-i", source, target)
			if err := cmd.Run(); err != nil {
				t.Skipf("ffmpeg cannot encode %s: %v", ext, err)
			}

			raw, err := os.ReadFile(target)
			require.NoError(t, err)

			out, err := NewFFmpegNormalizer("").Normalize(context.Background(), raw)
			require.NoError(t, err)

			format, err := Inspect(out)
			require.NoError(t, err)
			assert.True(t, format.IsCanonical(), "got %+v", format)
			assert.InDelta(t, 3, format.Duration.Seconds(), 0.2)
		})
	}
}

// makeExtensibleWAV writes a WAVE_FORMAT_EXTENSIBLE file whose sub-format GUID
// carries the given tag; the payload is silence
func makeExtensibleWAV(subFormat uint16, bitDepth, sampleRate, frames int) []byte {
	blockAlign := bitDepth / 8
	dataSize := frames * blockAlign

	var b bytes.Buffer
	le := func(v any) { _ = binary.Write(&b, binary.LittleEndian, v) }

	b.WriteString("RIFF")
	le(uint32(4 + 8 + 40 + 8 + dataSize))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	le(uint32(40))
	le(uint16(formatExtensible))
	le(uint16(1))
	le(uint32(sampleRate))
	le(uint32(sampleRate * blockAlign))
	le(uint16(blockAlign))
	le(uint16(bitDepth))
	le(uint16(22))
	le(uint16(bitDepth))
	le(uint32(0x4))
	le(subFormat)
	b.Write(guidSuffix)

	b.WriteString("data")
	le(uint32(dataSize))
	b.Write(make([]byte, dataSize))

	return b.Bytes()
}

// stubFFmpeg writes a shell script standing in for ffmpeg
func stubFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\ncat >/dev/null\n"+body+"\n"), 0o755))
	return path
}

// one second of canonical silence on stdout
const stubSilence = "head -c 32000 /dev/zero"

func TestNormalize_ExtensibleWAV(t *testing.T) {
	const formatFloat = 3

	tests := []struct {
		name      string
		subFormat uint16
		bitDepth  int
		binary    func(t *testing.T) string
		wantErr   error
	}{
		{
			name:      "pcm sub-format is read in-process",
			subFormat: formatPCM,
			bitDepth:  16,
			binary:    func(t *testing.T) string { return "definitely-not-ffmpeg" },
		},
		{
			name:      "float sub-format without ffmpeg",
			subFormat: formatFloat,
			bitDepth:  32,
			binary:    func(t *testing.T) string { return "definitely-not-ffmpeg" },
			wantErr:   ErrDecode,
		},
		{
			name:      "float sub-format goes to ffmpeg",
			subFormat: formatFloat,
			bitDepth:  32,
			binary:    func(t *testing.T) string { return stubFFmpeg(t, stubSilence) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := makeExtensibleWAV(tt.subFormat, tt.bitDepth, 16000, 16000)

			out, err := NewFFmpegNormalizer(tt.binary(t)).Normalize(context.Background(), raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			format, err := Inspect(out)
			require.NoError(t, err)
			assert.True(t, format.IsCanonical(), "got %+v", format)
			assert.InDelta(t, 1, format.Duration.Seconds(), 0.01)
		})
	}
}

func TestExtensibleSubFormat(t *testing.T) {
	sub, ok := extensibleSubFormat(makeExtensibleWAV(3, 32, 16000, 10))
	require.True(t, ok)
	assert.Equal(t, uint16(3), sub)

	sub, ok = extensibleSubFormat(makeExtensibleWAV(formatPCM, 16, 16000, 10))
	require.True(t, ok)
	assert.Equal(t, uint16(formatPCM), sub)

	// plain 16 byte fmt chunk has no GUID
	_, ok = extensibleSubFormat(makeWAV(t, 16000, 16, 1, 0.01))
	assert.False(t, ok)

	_, ok = extensibleSubFormat([]byte("RIFF"))
	assert.False(t, ok)
}

func TestNormalize_StubbedFFmpeg(t *testing.T) {
	// enough for mimetype to call it an Ogg container
	ogg := append([]byte("OggS\x00\x02"), make([]byte, 128)...)

	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{name: "s16le output becomes canonical wav", script: stubSilence},
		{name: "non-zero exit", script: "echo boom >&2\nexit 1", wantErr: "boom"},
		{name: "empty output", script: "true", wantErr: "no audio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewFFmpegNormalizer(stubFFmpeg(t, tt.script))
			require.True(t, n.Available())

			out, err := n.Normalize(context.Background(), ogg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrDecode)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			format, err := Inspect(out)
			require.NoError(t, err)
			assert.True(t, format.IsCanonical(), "got %+v", format)
			assert.InDelta(t, 1, format.Duration.Seconds(), 0.01)
		})
	}
}

func TestSniff(t *testing.T) {
	kind, err := Sniff(makeWAV(t, 16000, 16, 1, 0.1))
	require.NoError(t, err)
	assert.True(t, kind.Is("audio/wav"))

	_, err = Sniff([]byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResample(t *testing.T) {
	assert.Len(t, resample(make([]int, 44100), 44100, 16000), 16000)
	assert.Len(t, resample(make([]int, 8000), 8000, 16000), 16000)
	assert.Equal(t, []int{1, 2, 3}, resample([]int{1, 2, 3}, 16000, 16000))
	assert.Len(t, resample([]int{5}, 48000, 16000), 1)
}

func TestSeekBuffer(t *testing.T) {
	b := &seekBuffer{}

	_, err := b.Write([]byte("hello world"))
	require.NoError(t, err)

	_, err = b.Seek(0, 0)
	require.NoError(t, err)
	_, err = b.Write([]byte("HELLO"))
	require.NoError(t, err)

	assert.Equal(t, "HELLO world", string(b.Bytes()))

	_, err = b.Seek(-1, 0)
	assert.Error(t, err)
}
