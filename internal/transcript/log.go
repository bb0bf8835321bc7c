// Package transcript accumulates the conversation transcript of a live voice
// session.
//
// Transcription fragments from the Live API arrive incrementally and the
// stream occasionally re-emits a fragment that is a near-identical copy of
// the previous one (the model revises its running transcription). The [Log]
// is an append-only ordered sequence with a Jaro-Winkler near-duplicate
// filter in front of it: entries are never mutated after append and are
// cleared only by an explicit reset.
package transcript

import (
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// defaultDuplicateThreshold is the Jaro-Winkler similarity above which a new
// fragment is considered a re-emission of the previous same-role fragment.
const defaultDuplicateThreshold = 0.95

// Entry is one transcript line. Immutable after append.
type Entry struct {
	// Role is "user" or "model".
	Role string

	// Text is the fragment text as received.
	Text string
}

// Option is a functional option for configuring a [Log].
type Option func(*Log)

// WithDuplicateThreshold sets the similarity bound for dropping re-emitted
// fragments. 1.0 keeps everything except byte-identical repeats; values
// below ~0.9 become aggressive. Default: 0.95.
func WithDuplicateThreshold(threshold float64) Option {
	return func(l *Log) {
		l.threshold = threshold
	}
}

// Log is the append-only transcript accumulator. Safe for concurrent use.
type Log struct {
	threshold float64

	mu      sync.Mutex
	entries []Entry
}

// NewLog creates an empty transcript log.
func NewLog(opts ...Option) *Log {
	l := &Log{threshold: defaultDuplicateThreshold}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append records a fragment. Empty or whitespace-only fragments and
// near-duplicates of the previous fragment with the same role are dropped.
// It reports whether the fragment was appended.
func (l *Log) Append(role, text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.entries); n > 0 {
		prev := l.entries[n-1]
		if prev.Role == role && l.duplicate(prev.Text, trimmed) {
			return false
		}
	}

	l.entries = append(l.entries, Entry{Role: role, Text: text})
	return true
}

// duplicate reports whether next is a near-identical re-emission of prev.
func (l *Log) duplicate(prev, next string) bool {
	prev = strings.TrimSpace(prev)
	if prev == next {
		return true
	}
	return matchr.JaroWinkler(strings.ToLower(prev), strings.ToLower(next), false) >= l.threshold
}

// Entries returns a snapshot of the accumulated transcript in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of accumulated entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset clears the log. The transcript is never cleared implicitly; only an
// explicit reset by the owner discards accumulated entries.
func (l *Log) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
