package playback_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/thierryishimwe250/quintet/pkg/audio"
	"github.com/thierryishimwe250/quintet/pkg/audio/playback"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}

// discardSink ignores all playback.
var discardSink = playback.SinkFunc(func(audio.AudioFrame, <-chan struct{}) {})

// chunk builds a mono 24 kHz frame of the given duration.
func chunk(d time.Duration) audio.AudioFrame {
	samples := int(d * audio.PlaybackRate / time.Second)
	return audio.AudioFrame{
		Data:       make([]byte, samples*2),
		SampleRate: audio.PlaybackRate,
		Channels:   1,
	}
}

func TestEnqueue_StartsAreNonDecreasingAndGapless(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	s := playback.New(clock, discardSink)
	defer s.Close()

	durations := []time.Duration{
		200 * time.Millisecond,
		50 * time.Millisecond,
		300 * time.Millisecond,
		10 * time.Millisecond,
	}

	var prevStart, prevDur time.Duration
	for i, d := range durations {
		start, err := s.Enqueue(chunk(d))
		if err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
		if start < prevStart {
			t.Fatalf("chunk %d start %v < previous start %v", i, start, prevStart)
		}
		if i > 0 && start < prevStart+prevDur {
			t.Fatalf("chunk %d start %v overlaps previous chunk ending at %v", i, start, prevStart+prevDur)
		}
		prevStart, prevDur = start, d
	}
}

func TestEnqueue_SecondChunkWaitsForFirst(t *testing.T) {
	t.Parallel()

	// First chunk (0.5s) enqueued at t=0; second (0.3s) arrives at t=0.1
	// while the first is still playing. It must start at 0.5s, not 0.1s.
	clock := &fakeClock{}
	s := playback.New(clock, discardSink)
	defer s.Close()

	start1, err := s.Enqueue(chunk(500 * time.Millisecond))
	if err != nil {
		t.Fatalf("Enqueue 1: %v", err)
	}
	if start1 != 0 {
		t.Fatalf("first chunk start = %v, want 0", start1)
	}

	clock.Set(100 * time.Millisecond)
	start2, err := s.Enqueue(chunk(300 * time.Millisecond))
	if err != nil {
		t.Fatalf("Enqueue 2: %v", err)
	}
	if start2 != 500*time.Millisecond {
		t.Fatalf("second chunk start = %v, want 500ms", start2)
	}
	if got := s.NextStart(); got != 800*time.Millisecond {
		t.Fatalf("NextStart = %v, want 800ms", got)
	}
}

func TestEnqueue_NeverSchedulesInThePast(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	s := playback.New(clock, discardSink)
	defer s.Close()

	if _, err := s.Enqueue(chunk(50 * time.Millisecond)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Simulate slow decode: the clock has moved far past nextStartTime.
	clock.Set(2 * time.Second)
	start, err := s.Enqueue(chunk(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if start != 2*time.Second {
		t.Fatalf("start = %v, want 2s (current clock time)", start)
	}
}

func TestInterrupt_StopsAllSourcesAndResetsTiming(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}

	// Blocking sink: sources stay active until cancelled.
	started := make(chan struct{}, 8)
	blocking := playback.SinkFunc(func(_ audio.AudioFrame, cancel <-chan struct{}) {
		started <- struct{}{}
		<-cancel
	})

	s := playback.New(clock, blocking)
	defer s.Close()

	if _, err := s.Enqueue(chunk(10 * time.Second)); err != nil {
		t.Fatalf("Enqueue 1: %v", err)
	}
	if _, err := s.Enqueue(chunk(10 * time.Second)); err != nil {
		t.Fatalf("Enqueue 2: %v", err)
	}

	// First source renders, second is scheduled behind it.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first source never started rendering")
	}
	if got := s.Active(); got != 2 {
		t.Fatalf("Active = %d, want 2", got)
	}

	clock.Set(3 * time.Second)
	s.Interrupt()

	if got := s.Active(); got != 0 {
		t.Fatalf("Active after Interrupt = %d, want 0", got)
	}
	if got := s.NextStart(); got != 3*time.Second {
		t.Fatalf("NextStart after Interrupt = %v, want current clock time 3s", got)
	}

	// A new chunk must start no earlier than the current clock time.
	start, err := s.Enqueue(chunk(50 * time.Millisecond))
	if err != nil {
		t.Fatalf("Enqueue after Interrupt: %v", err)
	}
	if start < 3*time.Second {
		t.Fatalf("post-interrupt start = %v, want >= 3s (no stale timing)", start)
	}
}

func TestEnqueue_MalformedChunkIsDroppedNotFatal(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	s := playback.New(clock, discardSink)
	defer s.Close()

	bad := audio.AudioFrame{Data: []byte{1, 2, 3}, SampleRate: audio.PlaybackRate, Channels: 1}
	if _, err := s.Enqueue(bad); !errors.Is(err, playback.ErrDecode) {
		t.Fatalf("Enqueue(odd bytes) error = %v, want ErrDecode", err)
	}
	if got := s.NextStart(); got != 0 {
		t.Fatalf("NextStart after dropped chunk = %v, want 0 (timing untouched)", got)
	}

	// Scheduler still works.
	if _, err := s.Enqueue(chunk(20 * time.Millisecond)); err != nil {
		t.Fatalf("Enqueue after drop: %v", err)
	}
}

func TestScheduler_PlaysChunksThroughSink(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var played []int
	done := make(chan struct{}, 3)

	sink := playback.SinkFunc(func(f audio.AudioFrame, _ <-chan struct{}) {
		mu.Lock()
		played = append(played, len(f.Data))
		mu.Unlock()
		done <- struct{}{}
	})

	s := playback.New(playback.NewClock(), sink)

	for _, n := range []int{2, 4, 6} {
		f := audio.AudioFrame{Data: make([]byte, n), SampleRate: audio.PlaybackRate, Channels: 1}
		if _, err := s.Enqueue(f); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	// Close cancels pending sources, so wait for all three to render first.
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d chunks reached the sink", i)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(played) != 3 {
		t.Fatalf("played %d chunks, want 3", len(played))
	}
	total := 0
	for _, n := range played {
		total += n
	}
	if total != 12 {
		t.Fatalf("total played bytes = %d, want 12", total)
	}
}

func TestScheduler_EnqueueAfterCloseFails(t *testing.T) {
	t.Parallel()

	s := playback.New(&fakeClock{}, discardSink)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Enqueue(chunk(10 * time.Millisecond)); err == nil {
		t.Fatal("Enqueue after Close should fail")
	}
}
