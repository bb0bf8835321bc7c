// Package audio defines the frame types, PCM codec, and capture unit shared
// by the Quintet voice pipeline.
//
// All audio on the wire is raw 16-bit signed little-endian PCM. The capture
// side runs at [CaptureRate] (16 kHz mono, [FrameSamples] samples per frame);
// synthesised audio arrives from the model at [PlaybackRate] (24 kHz mono).
package audio

import "time"

const (
	// CaptureRate is the microphone capture sample rate in Hz.
	CaptureRate = 16000

	// PlaybackRate is the sample rate of synthesised audio from the model.
	PlaybackRate = 24000

	// FrameSamples is the fixed capture frame size in samples. One frame is
	// handed to the transport per hardware buffer-ready notification.
	FrameSamples = 4096

	// MIMECapture tags outbound capture frames on the wire.
	MIMECapture = "audio/pcm;rate=16000"
)

// AudioFrame is a fixed-duration slice of PCM samples. Frames are the atomic
// unit of the pipeline: the capture unit produces them and the playback side
// schedules them.
type AudioFrame struct {
	// Data is s16le PCM. Two bytes per sample per channel.
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels is the channel count. The pipeline is mono end to end.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play time of the frame's PCM payload.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}
