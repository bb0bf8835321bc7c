package live

// Event is the closed set of inbound server events. Exactly the variants
// below implement it; consumers switch on the concrete type.
type Event interface {
	isEvent()
}

// AudioChunk carries a slice of synthesised s16le PCM audio.
type AudioChunk struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// TranscriptFragment carries an incremental piece of transcription text.
// Role is "user" for input transcription and "model" for the text rendering
// of the model's spoken output.
type TranscriptFragment struct {
	Role string
	Text string
}

// Interrupted signals that the model's current response was cut off, usually
// because the user started speaking. All locally scheduled playback for the
// response must stop immediately.
type Interrupted struct{}

// ErrorEvent reports a transport or protocol failure. It is delivered at
// most once per session and is terminal.
type ErrorEvent struct {
	Err error
}

// Closed signals orderly session termination. Terminal.
type Closed struct{}

func (AudioChunk) isEvent()         {}
func (TranscriptFragment) isEvent() {}
func (Interrupted) isEvent()        {}
func (ErrorEvent) isEvent()         {}
func (Closed) isEvent()             {}
