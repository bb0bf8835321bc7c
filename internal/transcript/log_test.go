package transcript_test

import (
	"testing"

	"github.com/thierryishimwe250/quintet/internal/transcript"
)

func TestAppend_KeepsArrivalOrder(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	l.Append("user", "what's the time")
	l.Append("model", "It is")
	l.Append("model", "half past nine.")

	got := l.Entries()
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Role != "user" || got[1].Role != "model" || got[2].Role != "model" {
		t.Errorf("roles = %v %v %v, want user model model", got[0].Role, got[1].Role, got[2].Role)
	}
	if got[2].Text != "half past nine." {
		t.Errorf("entry 2 text = %q", got[2].Text)
	}
}

func TestAppend_DropsEmptyFragments(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	if l.Append("model", "") {
		t.Error("empty fragment should be dropped")
	}
	if l.Append("model", "   \n") {
		t.Error("whitespace fragment should be dropped")
	}
	if l.Len() != 0 {
		t.Errorf("Len = %d, want 0", l.Len())
	}
}

func TestAppend_DropsNearDuplicateReemission(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	if !l.Append("model", "The weather today is sunny") {
		t.Fatal("first fragment should append")
	}
	// Re-emission differing only in trailing punctuation.
	if l.Append("model", "The weather today is sunny.") {
		t.Error("near-duplicate re-emission should be dropped")
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestAppend_SameTextDifferentRoleIsKept(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	l.Append("user", "hello")
	if !l.Append("model", "hello") {
		t.Error("same text from a different role is not a duplicate")
	}
}

func TestAppend_DistinctFragmentsAreKept(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	l.Append("model", "The capital of France")
	if !l.Append("model", "is Paris, a city of two million people.") {
		t.Error("distinct continuation fragment should append")
	}
}

func TestEntries_ReturnsSnapshot(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	l.Append("user", "one")
	snap := l.Entries()
	l.Append("user", "two")

	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d, want 1 (must not alias internal slice)", len(snap))
	}
}

func TestReset_ClearsEntries(t *testing.T) {
	t.Parallel()

	l := transcript.NewLog()
	l.Append("user", "one")
	l.Reset()
	if l.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", l.Len())
	}
	if !l.Append("user", "one") {
		t.Error("append after Reset should work")
	}
}
