// Package actor provides a per-connection strand: a serialization
// primitive that guarantees FIFO, non-concurrent execution of
// posted functions, the way boost::asio::strand does for the
// original connection state machine this package's caller is modeled
// on (spec.md §5, design note §9 "model the machine as a sequential
// actor"). Unlike a mutex, a strand serializes by routing all work
// through a single consumer goroutine rather than by blocking
// concurrent callers against each other.
package actor

import "sync"

// Actor runs every function posted to it, one at a time, in the order
// they were posted, on a single dedicated goroutine.
type Actor struct {
	jobs   chan func()
	done   chan struct{}
	closed sync.Once
}

// New starts an Actor's consumer goroutine and returns it running.
func New() *Actor {
	a := &Actor{
		jobs: make(chan func()),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	defer close(a.done)
	for fn := range a.jobs {
		fn()
	}
}

// Post enqueues fn to run on the actor's goroutine. Post does not
// block on fn's completion; it only blocks until fn has been
// accepted into the queue (the strand is unbuffered, so posting from
// the actor's own goroutine would deadlock — callers must only Post
// from other goroutines, which is how every async op in this module
// uses it).
func (a *Actor) Post(fn func()) {
	// Once Stop has closed jobs, the send case below is itself ready
	// and panics if select picks it (or if Stop runs while this send is
	// blocked); recovering here drops fn the same way the <-a.done case
	// does.
	defer func() { _ = recover() }()
	select {
	case a.jobs <- fn:
	case <-a.done:
		// Actor already closed; drop the job the same way a cancelled
		// async operation is dropped (spec.md §5 "operation_aborted").
	}
}

// Close stops the actor's consumer goroutine after any job already in
// flight finishes, and after any job already queued runs, then blocks
// until the goroutine has actually exited. It must only be called
// once the connection owning this actor has reached a terminal state
// and its dispose timer has fired (spec.md §5 "Resource lifetime"),
// and only from a goroutine other than the actor's own: the consumer
// can't finish draining to done while it is itself blocked inside the
// job that is waiting on done. A job that needs to shut the actor
// down from inside itself must call Stop instead.
func (a *Actor) Close() {
	a.Stop()
	<-a.done
}

// Stop closes the job queue without waiting for the consumer
// goroutine to drain and exit, so it is safe to call from within a
// posted job: the consumer finishes running that job, drains whatever
// is already queued behind it, and exits on its own once Stop has run.
func (a *Actor) Stop() {
	a.closed.Do(func() {
		close(a.jobs)
	})
}
