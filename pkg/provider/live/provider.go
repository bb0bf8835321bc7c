// Package live defines the provider-neutral interface for realtime duplex
// voice sessions with a remote inference endpoint.
//
// A [Session] multiplexes two independent streams over one logical
// connection: outbound microphone frames via [Session.SendAudio] and inbound
// server events (synthesised audio, transcript fragments, interruption
// signals, lifecycle events) via [Session.Events]. Events arrive strictly in
// send order; no reordering guarantee beyond FIFO per session is assumed.
package live

import (
	"context"
	"errors"

	"github.com/thierryishimwe250/quintet/pkg/audio"
)

// Error taxonomy for the voice pipeline. Providers wrap these sentinels so
// the session controller can map failures to user-visible status strings.
var (
	// ErrConnection reports a transport open or send failure.
	ErrConnection = errors.New("live: connection error")

	// ErrConfiguration reports rejected session configuration, typically
	// invalid credentials or an unknown model.
	ErrConfiguration = errors.New("live: configuration error")
)

// SessionConfig declares the parameters of a live session.
type SessionConfig struct {
	// Model identifies the realtime model to converse with.
	Model string

	// Voice selects a prebuilt voice for synthesised output. Empty selects
	// the provider default.
	Voice string

	// Instructions is the system instruction string for the session.
	Instructions string

	// TranscribeInput requests transcription of the user's speech.
	TranscribeInput bool

	// TranscribeOutput requests a text transcription of the model's spoken
	// output.
	TranscribeOutput bool
}

// Session is one logical duplex voice session. Implementations must be safe
// for concurrent use.
type Session interface {
	// SendAudio queues one capture frame for transmission. Non-blocking from
	// the caller's perspective; no acknowledgment is surfaced. Returns an
	// error only when the session is already closed.
	SendAudio(frame audio.AudioFrame) error

	// Events returns the inbound event stream. The channel delivers events
	// in arrival order and is closed after a terminal [Closed] or
	// [ErrorEvent] has been delivered.
	Events() <-chan Event

	// Close releases the session. Idempotent; returns nil if already closed.
	Close() error
}

// Provider establishes live sessions against one vendor endpoint.
type Provider interface {
	// Connect opens a new session. It fails with [ErrConnection] when the
	// endpoint is unreachable and [ErrConfiguration] when the endpoint
	// rejects the configuration. The transport never reconnects on its own;
	// recovery is always a fresh Connect by the caller.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
