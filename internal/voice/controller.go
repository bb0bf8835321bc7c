// Package voice orchestrates one live voice conversation: it owns the
// microphone source, the realtime transport session, and the playback
// scheduler, and it accumulates the conversation transcript.
//
// The controller is a strict state machine
// (Standby → Initializing → Live → {Error, Closed}). Error and Closed are
// terminal: recovery is never implicit, a new conversation is a new
// controller. The microphone stream and the playback scheduler are owned
// exclusively by the controller for the conversation's lifetime and are
// released unconditionally on every exit path.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thierryishimwe250/quintet/internal/observe"
	"github.com/thierryishimwe250/quintet/internal/transcript"
	"github.com/thierryishimwe250/quintet/pkg/audio"
	"github.com/thierryishimwe250/quintet/pkg/audio/playback"
	"github.com/thierryishimwe250/quintet/pkg/provider/live"
)

// Store persists transcript entries as they are appended. Implemented by the
// Postgres store; nil disables persistence.
type Store interface {
	WriteEntry(ctx context.Context, sessionID string, entry transcript.Entry) error
}

// Option is a functional option for configuring a [Controller].
type Option func(*Controller)

// WithClock overrides the playback clock. Used in tests.
func WithClock(c playback.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithStore enables transcript persistence under the given session ID.
func WithStore(s Store, sessionID string) Option {
	return func(ctrl *Controller) {
		ctrl.store = s
		ctrl.sessionID = sessionID
	}
}

// WithMetrics records audio-path instrumentation on m. Nil disables it.
func WithMetrics(m *observe.Metrics) Option {
	return func(ctrl *Controller) { ctrl.metrics = m }
}

// WithTranscriptLog injects a pre-populated transcript log. The gateway uses
// this to carry accumulated transcript across reconnects: nothing is cleared
// automatically.
func WithTranscriptLog(l *transcript.Log) Option {
	return func(ctrl *Controller) { ctrl.log = l }
}

// Controller drives one conversation. All exported methods are safe for
// concurrent use.
type Controller struct {
	provider live.Provider
	cfg      live.SessionConfig
	source   audio.Source
	sink     playback.Sink
	clock    playback.Clock

	log       *transcript.Log
	store     Store
	sessionID string
	metrics   *observe.Metrics

	onStatus     func(State, string)
	onTranscript func(transcript.Entry)

	mu      sync.Mutex
	state   State
	status  string
	session live.Session
	capture *audio.Capture
	sched   *playback.Scheduler

	loopDone chan struct{}
}

// New creates a controller in Standby. The provider opens the transport, the
// source is the microphone stream, and scheduled playback renders through
// sink.
func New(provider live.Provider, cfg live.SessionConfig, source audio.Source, sink playback.Sink, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		cfg:      cfg,
		source:   source,
		sink:     sink,
		state:    Standby,
		status:   Standby.String(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = transcript.NewLog()
	}
	return c
}

// OnStatus registers a callback invoked on every state or status change.
// Must be called before Start. The callback runs on controller goroutines
// and must not block.
func (c *Controller) OnStatus(cb func(State, string)) {
	c.mu.Lock()
	c.onStatus = cb
	c.mu.Unlock()
}

// OnTranscript registers a callback invoked for each appended transcript
// entry. Must be called before Start.
func (c *Controller) OnTranscript(cb func(transcript.Entry)) {
	c.mu.Lock()
	c.onTranscript = cb
	c.mu.Unlock()
}

// Start begins the conversation: Standby → Initializing, open the transport,
// then Initializing → Live and the capture feed starts. On any failure the
// controller lands in Error with nothing left running.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Standby {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("voice: start from %s: a conversation is one controller instance", st)
	}
	notify := c.setStateLocked(Initializing, "Initializing...")
	c.mu.Unlock()
	notify()

	sess, err := c.provider.Connect(ctx, c.cfg)
	if err != nil {
		c.teardown(Error, "Error: "+connectStatus(err))
		return fmt.Errorf("voice: connect: %w", err)
	}

	clock := c.clock
	if clock == nil {
		clock = playback.NewClock()
	}
	sched := playback.New(clock, c.sink)
	capture := audio.NewCapture(c.source, func(frame audio.AudioFrame) error {
		return sess.SendAudio(frame)
	})

	c.mu.Lock()
	if c.state != Initializing {
		// Stop (or an error) won the race while Connect was in flight. The
		// terminal state stands; the fresh session is discarded.
		st := c.state
		c.mu.Unlock()
		_ = sess.Close()
		go audio.Drain(sess.Events())
		_ = sched.Close()
		return fmt.Errorf("voice: stopped during connect: state %s", st)
	}
	c.session = sess
	c.sched = sched
	c.capture = capture
	c.loopDone = make(chan struct{})
	notify = c.setStateLocked(Live, Live.String())
	c.mu.Unlock()
	notify()

	// The transport open-callback has fired; only now does audio flow.
	if err := capture.Start(); err != nil {
		status := "Error: microphone unavailable"
		if errors.Is(err, audio.ErrPermission) {
			status = "Error: microphone permission denied"
		}
		c.teardown(Error, status)
		return fmt.Errorf("voice: start capture: %w", err)
	}

	go c.eventLoop(sess, sched)
	return nil
}

// connectStatus maps a connect failure to a short user-visible reason.
func connectStatus(err error) string {
	switch {
	case errors.Is(err, live.ErrConfiguration):
		return "endpoint rejected configuration"
	case errors.Is(err, live.ErrConnection):
		return "failed to connect"
	default:
		return err.Error()
	}
}

// eventLoop consumes session events in arrival order until the stream ends.
// It is the single writer of playback scheduling and transcript state while
// the session is live.
func (c *Controller) eventLoop(sess live.Session, sched *playback.Scheduler) {
	defer close(c.loopDone)

	for ev := range sess.Events() {
		switch ev := ev.(type) {
		case live.AudioChunk:
			_, err := sched.Enqueue(audio.AudioFrame{
				Data:       ev.PCM,
				SampleRate: ev.SampleRate,
				Channels:   ev.Channels,
			})
			switch {
			case err == nil:
				if c.metrics != nil {
					c.metrics.PlaybackChunks.Add(context.Background(), 1)
				}
			case errors.Is(err, playback.ErrDecode):
				if c.metrics != nil {
					c.metrics.DecodeErrors.Add(context.Background(), 1)
				}
			default:
				slog.Warn("voice: enqueue failed", "err", err)
			}

		case live.TranscriptFragment:
			c.appendTranscript(ev)

		case live.Interrupted:
			sched.Interrupt()
			if c.metrics != nil {
				c.metrics.Interruptions.Add(context.Background(), 1)
			}

		case live.ErrorEvent:
			slog.Error("voice: session error", "err", ev.Err)
			c.teardown(Error, "Error: "+ev.Err.Error())
			return

		case live.Closed:
			c.teardown(Closed, Closed.String())
			return
		}
	}

	// Stream ended without a terminal event: treat as an orderly close.
	c.teardown(Closed, Closed.String())
}

// appendTranscript runs the fragment through the log's duplicate filter,
// notifies the presentation layer, and persists the entry when a store is
// configured.
func (c *Controller) appendTranscript(frag live.TranscriptFragment) {
	if !c.log.Append(frag.Role, frag.Text) {
		return
	}
	entry := transcript.Entry{Role: frag.Role, Text: frag.Text}

	c.mu.Lock()
	cb := c.onTranscript
	store, sessionID := c.store, c.sessionID
	c.mu.Unlock()

	if cb != nil {
		cb(entry)
	}
	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.WriteEntry(ctx, sessionID, entry); err != nil {
			slog.Warn("voice: persist transcript entry", "err", err)
		}
		cancel()
	}
}

// Stop ends the conversation by user command: Live/Initializing → Closed.
// Safe to call in any state; terminal states are left untouched.
func (c *Controller) Stop() {
	c.teardown(Closed, Closed.String())
}

// teardown transitions to the terminal state and releases every owned
// resource: the capture feed, the microphone stream, the transport session,
// and the playback scheduler (cancelling not-yet-played sources). Release is
// unconditional on all exit paths; only the first terminal transition wins.
func (c *Controller) teardown(final State, status string) {
	c.mu.Lock()
	if c.state.terminal() {
		c.mu.Unlock()
		return
	}
	sess, sched, capture := c.session, c.sched, c.capture
	c.session, c.sched, c.capture = nil, nil, nil
	notify := c.setStateLocked(final, status)
	c.mu.Unlock()
	notify()

	if capture != nil {
		capture.Stop()
	}
	if err := c.source.Release(); err != nil {
		slog.Warn("voice: release microphone", "err", err)
	}
	if sess != nil {
		_ = sess.Close()
		go audio.Drain(sess.Events())
	}
	if sched != nil {
		sched.Interrupt()
		_ = sched.Close()
	}
}

// setStateLocked updates state and status and returns the deferred status
// notification. Must be called with c.mu held; callers invoke the returned
// func after unlocking so the callback never runs under the lock.
func (c *Controller) setStateLocked(s State, status string) func() {
	c.state = s
	c.status = status
	cb := c.onStatus
	if cb == nil {
		return func() {}
	}
	return func() { cb(s, status) }
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the human-readable status string shown to the user.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Transcript returns a snapshot of the accumulated transcript.
func (c *Controller) Transcript() []transcript.Entry {
	return c.log.Entries()
}

// TranscriptLog exposes the underlying log so a successor controller can
// carry the conversation transcript forward.
func (c *Controller) TranscriptLog() *transcript.Log {
	return c.log
}

// ResetTranscript clears the accumulated transcript. Never called
// implicitly.
func (c *Controller) ResetTranscript() {
	c.log.Reset()
}

// Wait blocks until the event loop has exited. Returns immediately when the
// controller never reached Live.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.loopDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
