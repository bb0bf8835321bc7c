// Package record writes conversation audio to WAV files. A [Recorder] can be
// teed into a playback sink so that everything scheduled for playback is also
// captured on disk.
package record

import (
	"fmt"
	"os"
	"sync"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/thierryishimwe250/quintet/pkg/audio"
	"github.com/thierryishimwe250/quintet/pkg/audio/playback"
)

// Recorder encodes s16le frames into a WAV file. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	format audio.Format
	closed bool
}

// Create opens path for writing and prepares a 16-bit WAV encoder for the
// given format. The file is finalised by [Recorder.Close]; a recorder that is
// never closed leaves an unreadable WAV header behind.
func Create(path string, format audio.Format) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("record: create %q: %w", path, err)
	}
	enc := wav.NewEncoder(f, format.SampleRate, 16, format.Channels, 1)
	return &Recorder{f: f, enc: enc, format: format}, nil
}

// Write appends one frame to the file. Frames with a format other than the
// recorder's are rejected.
func (r *Recorder) Write(frame audio.AudioFrame) error {
	if frame.SampleRate != r.format.SampleRate || frame.Channels != r.format.Channels {
		return fmt.Errorf("record: frame format %dHz/%dch does not match recorder %dHz/%dch",
			frame.SampleRate, frame.Channels, r.format.SampleRate, r.format.Channels)
	}

	samples := audio.PCM16ToInt16(frame.Data)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("record: recorder is closed")
	}
	if err := r.enc.Write(&gaudio.IntBuffer{
		Data:           data,
		Format:         &gaudio.Format{NumChannels: r.format.Channels, SampleRate: r.format.SampleRate},
		SourceBitDepth: 16,
	}); err != nil {
		return fmt.Errorf("record: write frame: %w", err)
	}
	return nil
}

// Close finalises the WAV header and closes the file. Idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.enc.Close(); err != nil {
		r.f.Close()
		return fmt.Errorf("record: finalise wav: %w", err)
	}
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("record: close file: %w", err)
	}
	return nil
}

// Tee returns a sink that records every frame to rec before forwarding it to
// next. Recording failures do not interrupt playback.
func Tee(next playback.Sink, rec *Recorder) playback.Sink {
	return playback.SinkFunc(func(frame audio.AudioFrame, cancel <-chan struct{}) {
		_ = rec.Write(frame)
		next.Play(frame, cancel)
	})
}
