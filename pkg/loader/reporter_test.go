package loader

import (
	"testing"
	"time"
)

func TestReporterFiresImmediatelyThenGates(t *testing.T) {
	var calls int
	r := NewProgressReporter(func() { calls++ }, time.Hour)

	r.Tick(false)
	if calls != 1 {
		t.Fatalf("got %d calls, want 1 (first tick should always fire)", calls)
	}

	r.Tick(false)
	if calls != 1 {
		t.Fatalf("got %d calls, want 1 (second tick within interval should not fire)", calls)
	}

	r.Tick(true)
	if calls != 2 {
		t.Fatalf("got %d calls, want 2 (forced tick should always fire)", calls)
	}
}

func TestReporterNilCallbackIsNoop(t *testing.T) {
	r := NewProgressReporter(nil, time.Millisecond)
	r.Tick(true) // must not panic
}
