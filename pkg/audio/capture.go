package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPermission reports that microphone access was denied. Sources wrap it
// when the platform refuses device capture.
var ErrPermission = errors.New("audio: microphone access denied")

// Source is a live microphone input stream. Implementations deliver
// fixed-size float buffers to the registered callback as the hardware
// produces them; the capture unit never polls.
//
// Implementations must stop invoking the callback after Release returns.
type Source interface {
	// Start begins delivery of capture buffers to onBuffer. Each buffer
	// holds [FrameSamples] mono samples at [CaptureRate]. onBuffer runs on
	// the source's delivery goroutine and must not block for long.
	Start(onBuffer func(samples []float32)) error

	// Release stops the stream and frees the underlying device. Idempotent.
	Release() error
}

// SendFunc transmits one encoded capture frame. It is the transport's send
// operation; failures are not retried by the capture unit.
type SendFunc func(frame AudioFrame) error

// Capture turns a live [Source] into a sequence of outbound s16le PCM frames
// at a fixed cadence. One frame is produced per hardware buffer; each float
// sample is converted via round(s*32768) clamped to the int16 range.
//
// Capture does not own the source: the session controller acquires and
// releases the microphone. Stop only detaches the callback.
type Capture struct {
	source Source
	send   SendFunc

	mu      sync.Mutex
	started time.Time
	active  bool
}

// NewCapture creates a capture unit feeding frames from source to send.
func NewCapture(source Source, send SendFunc) *Capture {
	return &Capture{source: source, send: send}
}

// Start begins capture. Frames flow to the send function until [Capture.Stop].
func (c *Capture) Start() error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return fmt.Errorf("capture: already started")
	}
	c.active = true
	c.started = time.Now()
	c.mu.Unlock()

	if err := c.source.Start(c.onBuffer); err != nil {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		return fmt.Errorf("capture: start source: %w", err)
	}
	return nil
}

// onBuffer is the hardware buffer-ready notification. It encodes the buffer
// and hands it to the transport. Send failures are dropped on the floor; the
// owning session's lifecycle governs reconnection.
func (c *Capture) onBuffer(samples []float32) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	ts := time.Since(c.started)
	c.mu.Unlock()

	frame := AudioFrame{
		Data:       FloatToPCM16(samples),
		SampleRate: CaptureRate,
		Channels:   1,
		Timestamp:  ts,
	}
	_ = c.send(frame)
}

// Stop detaches the send path. The source itself is released by its owner.
func (c *Capture) Stop() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}
