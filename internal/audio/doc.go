// Package audio converts uploaded voice clips into the canonical format the
// speech recognisers expect: a RIFF/WAVE file holding mono, 16 kHz, 16-bit
// little-endian PCM.
//
// WAV uploads are converted in-process. Every other container (webm, ogg,
// mp3, m4a, ...) is decoded by an ffmpeg subprocess.
package audio
