package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// SampleRate is the canonical sample rate in Hz
	SampleRate = 16000

	// Channels is the canonical channel count
	Channels = 1

	// BitDepth is the canonical sample width in bits
	BitDepth = 16
)

var (
	// ErrUnsupportedFormat is returned when the upload is not an audio container
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDecode is returned when an audio container could not be decoded
	ErrDecode = errors.New("failed to decode audio")
)

// Normalizer turns arbitrary uploaded audio into canonical WAV bytes
type Normalizer interface {
	Normalize(ctx context.Context, raw []byte) ([]byte, error)
}

// FFmpegNormalizer converts WAV uploads in-process and shells out to ffmpeg
// for every other container
type FFmpegNormalizer struct {
	binary string
}

// NewFFmpegNormalizer creates a normalizer using the given ffmpeg binary ("" means "ffmpeg" on PATH)
func NewFFmpegNormalizer(binary string) *FFmpegNormalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegNormalizer{binary: binary}
}

// Available reports whether the ffmpeg binary can be found
func (n *FFmpegNormalizer) Available() bool {
	_, err := exec.LookPath(n.binary)
	return err == nil
}

// Normalize converts raw upload bytes into canonical WAV bytes
func (n *FFmpegNormalizer) Normalize(ctx context.Context, raw []byte) ([]byte, error) {
	kind, err := Sniff(raw)
	if err != nil {
		return nil, err
	}

	if kind.Is("audio/wav") {
		out, err := normalizeWAV(raw)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, errNeedsTranscode) {
			return nil, err
		}
	}

	return n.transcode(ctx, raw)
}

// transcode decodes any container ffmpeg understands into raw s16le samples
// and wraps them in a WAV header
func (n *FFmpegNormalizer) transcode(ctx context.Context, raw []byte) ([]byte, error) {
	if !n.Available() {
		return nil, fmt.Errorf("%w: %s not found - required for non-WAV uploads", ErrDecode, n.binary)
	}

	cmd := exec.CommandContext(ctx, n.binary,
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",      // Drop any video stream (webm/mp4 uploads)
		"-ac", "1", // Mono
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(raw)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}

	samples := samplesFromS16LE(stdout.Bytes())
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no audio samples", ErrDecode)
	}

	return encodeWAV(samples)
}

// Sniff detects the container of an upload and rejects anything that is not audio
func Sniff(raw []byte) (*mimetype.MIME, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupportedFormat)
	}

	kind := mimetype.Detect(raw)
	mime := kind.String()

	switch {
	case strings.HasPrefix(mime, "audio/"),
		strings.HasPrefix(mime, "video/"),
		kind.Is("application/ogg"):
		return kind, nil
	}

	return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, mime)
}
