// Package playback schedules synthesised audio chunks for gapless, strictly
// sequential rendering against a monotonic audio clock.
//
// Chunks arrive asynchronously from the live session and may be decoded with
// variable latency; the scheduler guarantees that scheduled start times are
// non-decreasing, that consecutive chunks never overlap, and that no chunk is
// scheduled in the past. [Scheduler.Interrupt] implements barge-in: every
// currently scheduled source stops immediately and timing state is reset so
// later chunks carry no dependency on pre-interruption scheduling.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thierryishimwe250/quintet/pkg/audio"
)

// ErrDecode reports a malformed inbound audio chunk. The scheduler drops the
// chunk and continues; a single bad chunk must not take the pipeline down.
var ErrDecode = errors.New("playback: malformed audio chunk")

// Sink renders a scheduled chunk. Play is invoked on the source's goroutine
// at the chunk's scheduled start time and must return when the chunk has
// finished rendering or when cancel is closed, whichever comes first.
// Implementations: portaudio device write, gateway socket relay, test capture.
type Sink interface {
	Play(frame audio.AudioFrame, cancel <-chan struct{})
}

// SinkFunc adapts a function to the [Sink] interface.
type SinkFunc func(frame audio.AudioFrame, cancel <-chan struct{})

func (f SinkFunc) Play(frame audio.AudioFrame, cancel <-chan struct{}) { f(frame, cancel) }

// source is one scheduled-but-not-finished playback unit. The scheduler owns
// the set of active sources exclusively so all can be force-stopped on
// interruption.
type source struct {
	id     uint64
	cancel chan struct{}
}

// Scheduler is the playback scheduler. All exported methods are safe for
// concurrent use, though inbound chunks are expected to arrive in session
// event order.
type Scheduler struct {
	clock Clock
	sink  Sink

	mu        sync.Mutex
	nextStart time.Duration     // where the next chunk must begin
	sources   map[uint64]*source // active set, keyed by id
	nextID    uint64
	closed    bool

	wg sync.WaitGroup
}

// New creates a Scheduler rendering through sink against clock.
func New(clock Clock, sink Sink) *Scheduler {
	return &Scheduler{
		clock:   clock,
		sink:    sink,
		sources: make(map[uint64]*source),
	}
}

// Enqueue schedules chunk for playback. The returned start position is
// max(nextStartTime, current clock time), so chunks never overlap previously
// scheduled audio and are never scheduled in the past even when decode was
// slow. On success nextStartTime advances by the chunk's duration.
//
// A chunk whose byte length is not a multiple of the 16-bit sample width is
// dropped with [ErrDecode]; the scheduler remains usable.
func (s *Scheduler) Enqueue(chunk audio.AudioFrame) (time.Duration, error) {
	if len(chunk.Data)%2 != 0 {
		slog.Warn("playback: dropping chunk with odd byte count",
			"bytes", len(chunk.Data), "sample_rate", chunk.SampleRate)
		return 0, fmt.Errorf("%w: %d bytes", ErrDecode, len(chunk.Data))
	}
	if chunk.SampleRate <= 0 || chunk.Channels <= 0 {
		return 0, fmt.Errorf("%w: invalid format %dHz/%dch", ErrDecode, chunk.SampleRate, chunk.Channels)
	}

	dur := chunk.Duration()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, fmt.Errorf("playback: scheduler closed")
	}

	startAt := s.nextStart
	if now := s.clock.Now(); now > startAt {
		startAt = now
	}

	s.nextID++
	src := &source{id: s.nextID, cancel: make(chan struct{})}
	s.sources[src.id] = src
	s.nextStart = startAt + dur

	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(src, chunk, startAt)
	return startAt, nil
}

// run waits until the source's scheduled start, renders it, and removes it
// from the active set on natural completion.
func (s *Scheduler) run(src *source, chunk audio.AudioFrame, startAt time.Duration) {
	defer s.wg.Done()
	defer s.remove(src.id)

	if delay := startAt - s.clock.Now(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-src.cancel:
			return
		case <-timer.C:
		}
	}

	select {
	case <-src.cancel:
		return
	default:
	}

	s.sink.Play(chunk, src.cancel)
}

// remove deletes id from the active set. Called on natural completion; a
// forced stop already removed the entry, in which case this is a no-op.
func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	delete(s.sources, id)
	s.mu.Unlock()
}

// Interrupt stops every active source immediately (no fade), clears the set,
// and resets nextStartTime to the current clock position so that subsequent
// chunks are scheduled with no memory of pre-interruption timing.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	for id, src := range s.sources {
		close(src.cancel)
		delete(s.sources, id)
	}
	s.nextStart = s.clock.Now()
	s.mu.Unlock()
}

// Active returns the number of currently scheduled sources.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// NextStart returns the clock position where the next chunk would begin.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Close interrupts all playback and waits for source goroutines to exit.
// Further Enqueue calls fail. Idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, src := range s.sources {
		close(src.cancel)
		delete(s.sources, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}
