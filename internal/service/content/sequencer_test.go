package content

import "testing"

func TestSequencer(t *testing.T) {
	seq := NewSequencer()

	a := seq.Begin("A")
	if !seq.IsCurrent(a) || seq.Requested() != "A" {
		t.Fatal("first ticket should be current")
	}
	if seq.CanCapture("A") {
		t.Error("A is not applied yet")
	}

	b := seq.Begin("B")
	if seq.IsCurrent(a) || seq.Accept(a) {
		t.Error("stale ticket must be rejected")
	}
	if seq.LastApplied() != "" {
		t.Errorf("last applied = %q", seq.LastApplied())
	}

	if !seq.Accept(b) || !seq.CanCapture("B") || seq.CanCapture("A") {
		t.Error("B should be applied and capturable")
	}

	// reselecting the same document invalidates the earlier ticket too
	b2 := seq.Begin("B")
	if seq.Accept(b) {
		t.Error("older ticket for the same document must be rejected")
	}
	if seq.CanCapture("B") {
		t.Error("B is loading again")
	}
	if !seq.Accept(b2) {
		t.Error("latest ticket should be accepted")
	}
	if seq.CanCapture("") {
		t.Error("empty id is never capturable")
	}
}
