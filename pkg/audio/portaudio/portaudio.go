//go:build portaudio

// Package portaudio provides local microphone capture and speaker playback
// backed by the system PortAudio library. It is the device layer for the
// terminal voice client; the server-side gateway bridges browsers instead.
//
// Build with the "portaudio" tag and the PortAudio development headers
// installed.
package portaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/thierryishimwe250/quintet/pkg/audio"
)

// Using initialises PortAudio, runs fn, and terminates PortAudio afterwards.
func Using(fn func() error) (err error) {
	if err = portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer func() {
		if e := portaudio.Terminate(); e != nil {
			err = errors.Join(err, fmt.Errorf("portaudio: terminate: %w", e))
		}
	}()
	return fn()
}

// Mic captures mono float32 samples from the default input device. It
// implements [audio.Source].
type Mic struct {
	buf    []float32
	stream *portaudio.Stream

	mu       sync.Mutex
	started  bool
	released bool
	stop     chan struct{}
	done     chan struct{}
}

// OpenMic opens the default input device at the capture rate with the
// standard frame size. Device errors (including denied microphone access)
// surface here, before any session is opened.
func OpenMic() (*Mic, error) {
	m := &Mic{
		buf:  make([]float32, audio.FrameSamples),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(audio.CaptureRate), len(m.buf), &m.buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open input: %w", err)
	}
	m.stream = stream
	return m, nil
}

// Start implements [audio.Source]. onBuffer receives each captured frame on
// a dedicated goroutine until [Mic.Release] is called.
func (m *Mic) Start(onBuffer func([]float32)) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("portaudio: mic already started")
	}
	m.started = true
	m.mu.Unlock()

	if err := m.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start input: %w", err)
	}

	go func() {
		defer close(m.done)
		for {
			select {
			case <-m.stop:
				return
			default:
			}
			if err := m.stream.Read(); err != nil {
				return
			}
			frame := make([]float32, len(m.buf))
			copy(frame, m.buf)
			onBuffer(frame)
		}
	}()
	return nil
}

// Release implements [audio.Source]. It stops capture and closes the device.
// Idempotent; calls after the first return nil.
func (m *Mic) Release() error {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return nil
	}
	m.released = true
	started := m.started
	m.mu.Unlock()

	if started {
		close(m.stop)
		_ = m.stream.Abort()
		<-m.done
	}
	if err := m.stream.Close(); err != nil {
		return fmt.Errorf("portaudio: close input: %w", err)
	}
	return nil
}

// Speaker renders s16le frames on the default output device. It implements
// [playback.Sink]; Play blocks for roughly the frame's duration, which is
// what the playback scheduler expects of a real output device.
type Speaker struct {
	mu      sync.Mutex
	out     []int16
	stream  *portaudio.Stream
	started bool
}

// OpenSpeaker opens the default output device at the playback rate.
func OpenSpeaker() (*Speaker, error) {
	s := &Speaker{out: make([]int16, audio.FrameSamples)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(audio.PlaybackRate), len(s.out), &s.out)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open output: %w", err)
	}
	s.stream = stream
	return s, nil
}

// Play writes the frame to the device in output-buffer-sized chunks,
// stopping early when cancel fires. The trailing chunk is zero-padded.
func (s *Speaker) Play(frame audio.AudioFrame, cancel <-chan struct{}) {
	samples := audio.PCM16ToInt16(frame.Data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		if err := s.stream.Start(); err != nil {
			return
		}
		s.started = true
	}

	for off := 0; off < len(samples); off += len(s.out) {
		select {
		case <-cancel:
			return
		default:
		}

		n := copy(s.out, samples[off:])
		for i := n; i < len(s.out); i++ {
			s.out[i] = 0
		}
		if err := s.stream.Write(); err != nil {
			return
		}
	}
}

// Close stops and closes the output device.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		_ = s.stream.Stop()
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("portaudio: close output: %w", err)
	}
	return nil
}
