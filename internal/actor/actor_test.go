package actor

import (
	"testing"
	"time"
)

func TestPostRunsInOrder(t *testing.T) {
	a := New()
	defer a.Close()

	var seq []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		a.Post(func() {
			seq = append(seq, i)
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs never ran")
	}
	for i, v := range seq {
		if v != i {
			t.Fatalf("seq = %v, want 0..4 in order", seq)
		}
	}
}

// TestStopFromWithinJobDoesNotDeadlock guards against calling Close
// from inside a posted job (as Connection.onDispose used to): Close
// blocks on <-a.done, which only closes after the in-flight job
// returns, so calling it from that same job would hang forever. Stop
// is the job-safe alternative.
func TestStopFromWithinJobDoesNotDeadlock(t *testing.T) {
	a := New()
	done := make(chan struct{})
	a.Post(func() {
		a.Stop()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job calling Stop on itself never returned")
	}

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("actor goroutine never exited after Stop")
	}
}

func TestPostAfterCloseIsDropped(t *testing.T) {
	a := New()
	a.Close()

	ran := false
	done := make(chan struct{})
	a.Post(func() {
		ran = true
		close(done)
	})

	select {
	case <-done:
		t.Fatal("job posted after Close should not run")
	case <-time.After(50 * time.Millisecond):
	}
	if ran {
		t.Fatal("job ran after Close")
	}
}
