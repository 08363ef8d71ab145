package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags the in-process path can read
const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

// errNeedsTranscode marks WAV files the in-process path cannot read (float,
// a-law, odd chunk layouts); ffmpeg gets a try at them
var errNeedsTranscode = errors.New("wav needs transcoding")

// Format describes a decoded WAV file
type Format struct {
	Channels   int           `json:"channels"`
	SampleRate int           `json:"sample_rate"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
}

// IsCanonical reports whether the format matches what the recognisers expect
func (f Format) IsCanonical() bool {
	return f.Channels == Channels && f.SampleRate == SampleRate && f.BitDepth == BitDepth
}

// Inspect decodes a WAV file and reports its format
func Inspect(data []byte) (Format, error) {
	buf, bitDepth, err := decodeWAV(data)
	if err != nil {
		return Format{}, err
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels

	return Format{
		Channels:   channels,
		SampleRate: buf.Format.SampleRate,
		BitDepth:   bitDepth,
		Duration:   time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate),
	}, nil
}

// normalizeWAV converts any PCM WAV into canonical WAV bytes
func normalizeWAV(data []byte) ([]byte, error) {
	buf, bitDepth, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}

	mono := downmix(buf.Data, buf.Format.NumChannels, bitDepth)
	return encodeWAV(resample(mono, buf.Format.SampleRate, SampleRate))
}

// decodeWAV reads every sample of a PCM WAV file
func decodeWAV(data []byte) (*goaudio.IntBuffer, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: invalid WAV header", errNeedsTranscode)
	}

	switch dec.WavAudioFormat {
	case formatPCM:
	case formatExtensible:
		sub, ok := extensibleSubFormat(data)
		if !ok {
			return nil, 0, fmt.Errorf("%w: unreadable WAVE_FORMAT_EXTENSIBLE header", errNeedsTranscode)
		}
		if sub != formatPCM {
			return nil, 0, fmt.Errorf("%w: extensible sub-format %d", errNeedsTranscode, sub)
		}
	default:
		return nil, 0, fmt.Errorf("%w: WAVE format tag %d", errNeedsTranscode, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errNeedsTranscode, err)
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", errNeedsTranscode, bitDepth)
	}

	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: missing format chunk", ErrDecode)
	}
	if len(buf.Data) < buf.Format.NumChannels {
		return nil, 0, fmt.Errorf("%w: no audio data found", ErrDecode)
	}

	return buf, bitDepth, nil
}

// guidSuffix is the tail shared by every KSDATAFORMAT_SUBTYPE GUID; the first
// two bytes carry the plain WAVE format tag
var guidSuffix = []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

// extensibleSubFormat walks the RIFF chunks to the fmt chunk and returns the
// format tag embedded in its sub-format GUID
func extensibleSubFormat(data []byte) (uint16, bool) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}

	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return 0, false
		}

		if id == "fmt " {
			// 16 byte base, cbSize, valid bits, channel mask, then the GUID
			if size < 40 {
				return 0, false
			}
			guid := data[body+24 : body+40]
			if !bytes.Equal(guid[2:], guidSuffix) {
				return 0, false
			}
			return binary.LittleEndian.Uint16(guid[0:2]), true
		}

		off = body + size + size%2
	}
	return 0, false
}

// downmix averages interleaved channels into one 16-bit channel
func downmix(data []int, channels, bitDepth int) []int {
	frames := len(data) / channels
	out := make([]int, frames)

	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += to16(data[i*channels+c], bitDepth)
		}
		out[i] = sum / channels
	}

	return out
}

// to16 rescales a sample of the given bit depth to the signed 16-bit range
func to16(sample, bitDepth int) int {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return (sample - 128) << 8
	case 24:
		return sample >> 8
	case 32:
		return sample >> 16
	default:
		return sample
	}
}

// resample converts mono samples between rates with linear interpolation
func resample(samples []int, from, to int) []int {
	if from == to || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(to) / int64(from))
	if n == 0 {
		n = 1
	}

	out := make([]int, n)
	ratio := float64(from) / float64(to)
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int(float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac)
	}

	return out
}

// samplesFromS16LE reads raw signed 16-bit little-endian PCM
func samplesFromS16LE(raw []byte) []int {
	out := make([]int, len(raw)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	return out
}

// encodeWAV writes canonical mono 16 kHz 16-bit samples into a WAV container
func encodeWAV(samples []int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: cannot encode empty audio samples", ErrDecode)
	}

	out := &seekBuffer{}
	enc := wav.NewEncoder(out, SampleRate, BitDepth, Channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		Data:           clamp16(samples),
		SourceBitDepth: BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize WAV header: %w", err)
	}

	return out.Bytes(), nil
}

func clamp16(samples []int) []int {
	for i, s := range samples {
		if s > 32767 {
			samples[i] = 32767
		} else if s < -32768 {
			samples[i] = -32768
		}
	}
	return samples
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes once the data is written
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(s.pos)
	case io.SeekEnd:
		base = int64(len(s.buf))
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}

	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	s.pos = int(next)
	return next, nil
}

func (s *seekBuffer) Bytes() []byte {
	return s.buf
}
