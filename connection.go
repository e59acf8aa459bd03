package ahttp

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lucidhttp/ahttp/internal/actor"
	"github.com/lucidhttp/ahttp/internal/cookiejar"
	"github.com/lucidhttp/ahttp/internal/obs"
	"github.com/lucidhttp/ahttp/internal/respparser"
	"github.com/lucidhttp/ahttp/internal/stream"
)

// Connection is the per-request connection state machine (spec.md
// §4.3): it owns the stream, parser, I/O buffers, the overall-timeout
// and dispose timers, the future/promise pair, and the response being
// built. Every field below is touched only from the goroutine running
// inside c.act (the strand), except where noted, so none of it is
// guarded by a mutex (spec.md §5 "no intra-connection mutex is
// required").
type Connection struct {
	act *actor.Actor
	st  *stream.Stream
	ps  *respparser.Parser

	req  *Request
	resp *Response

	state   connState
	headers map[string][]string // scratch accumulator, moved into resp.Header at headers-complete
	raw     []byte               // scratch body accumulator, moved into resp.Raw at finalize (spec.md §4.6 step 5)

	contentLength int64 // scratch counter: declared length (CL mode) or current chunk size (chunked mode)
	chunked       bool

	resolvedAddrs []string // set by RESOLVE, consumed by CONNECT

	isReused  bool
	restarted bool // the reuse-restart has already fired once (spec.md §4.5)

	ctx    context.Context
	cancel context.CancelFunc

	timeoutTimer *time.Timer
	disposeTimer *time.Timer
	expired      atomic.Bool
	started      time.Time // set once in Start, read by finalize for the round-trip histogram

	future *Future

	jar    *cookiejar.Jar
	logger obs.Logger
	meter  obs.Meter

	// onFinal, if set, is invoked once at finalization (after the
	// stream has been closed or kept, but before the body is moved into
	// resp.Raw and before the future is fulfilled) so a Session can
	// decide whether to keep this
	// connection's stream around for the next Send.
	onFinal func(*Connection)
}

// NewConnection builds a fresh, unstarted Connection for req.
func NewConnection(req *Request, jar *cookiejar.Jar, logger obs.Logger, meter obs.Meter) *Connection {
	if logger == nil {
		logger = obs.NopLogger{}
	}
	if meter == nil {
		meter = obs.NopMeter{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		act:    actor.New(),
		st:     stream.New(),
		ps:     respparser.New(),
		req:    req,
		resp:   newResponse(req),
		state:  stateInit,
		ctx:    ctx,
		cancel: cancel,
		future: newFuture(),
		jar:    jar,
		logger: logger,
		meter:  meter,
	}
}

// Reuse seeds a fresh Connection from prev's stream for keep-alive
// reuse (spec.md §4.5): the stream is moved in, isReused is set, and
// prev's redirect chain/count are carried onto the new response.
func (c *Connection) Reuse(prev *Connection) {
	c.st.Adopt(prev.st)
	c.isReused = true
	c.resp.Redirects = prev.resp.Redirects
	c.resp.RedirectCount = prev.resp.RedirectCount
	c.meter.Counter("ahttp_client_reuses_total", 1)
}

// Start posts the connection's first transition onto its strand and
// returns the Future that will be fulfilled exactly once, at the
// first terminal transition (spec.md §3). The overall timeout is
// armed unconditionally here, once, before branching on reuse (spec.md
// §4.3 "Overall timeout: armed once at start() for timeout seconds"):
// arming it only inside enterResolve left the reuse-and-still-open
// fast path below, which jumps straight to enterWrite, with no
// timeout armed at all.
func (c *Connection) Start() *Future {
	c.act.Post(func() {
		c.started = time.Now()
		c.armTimeout()
		if c.isReused && c.st.IsOpen() {
			c.enterWrite()
		} else if c.isReused {
			c.restart()
		} else {
			c.enterResolve()
		}
	})
	return c.future
}

// IsExpired reports whether the dispose timer has fired for this
// connection (spec.md §8 "at that moment is_expired() returns true").
// Safe to call from any goroutine.
func (c *Connection) IsExpired() bool {
	return c.expired.Load()
}

// setState applies the "terminal -> EXPIRED only" invariant (spec.md
// §3, design note §9(a)): once c.state is terminal, only a transition
// to stateExpired is accepted; every other transition is dropped.
func (c *Connection) setState(s connState) {
	if c.state.isTerminal() && s != stateExpired {
		return
	}
	prev := c.state
	c.state = s
	c.logger.Logf(obs.Debug, "ahttp: connection %s -> %s", prev, s)
}

// aborted reports whether err represents a canceled/aborted operation
// that should be swallowed without advancing or terminating the
// machine (spec.md §3 "all async callbacks observing
// operation_aborted are ignored").
func (c *Connection) aborted(err error) bool {
	return stream.IsAborted(err) || c.ctx.Err() != nil
}

// guard is called at the top of every "on<phase>Done" handler. It
// reports whether the handler should return immediately: either the
// machine is already terminal (a stray completion arrived after
// another path already finished it) or the operation was aborted.
func (c *Connection) guard(err error) bool {
	if c.state.isTerminal() {
		return true
	}
	if err != nil && c.aborted(err) {
		return true
	}
	return false
}

// setError transitions to the terminal error state s, deriving its
// ErrorKind from s itself (connState.errorKind) rather than taking one
// as a second, independently-specifiable argument, records msg on the
// response, and finalizes the connection. It is the single path every
// *_ERROR transition in spec.md §4.3's table goes through.
func (c *Connection) setError(s connState, msg string) {
	c.setState(s)
	kind := s.errorKind()
	c.resp.Err = newError(kind, msg)
	c.meter.Counter("ahttp_client_errors_total", 1, obs.Label{Key: "kind", Value: kind.String()})
	c.finalize()
}

func (c *Connection) armTimeout() {
	c.timeoutTimer = time.AfterFunc(c.req.Timeout, func() {
		c.act.Post(c.onTimeout)
	})
}

func (c *Connection) onTimeout() {
	if !c.state.isTerminal() {
		c.setState(stateTimeout)
		c.resp.Err = newError(Timeout, "connection timed out after "+c.req.Timeout.String())
		c.meter.Counter("ahttp_client_timeouts_total", 1)
		c.finalize()
		return
	}
	// Already terminal: close the socket unless keep-alive was
	// requested (spec.md §4.3 "On expiry when already terminal:
	// close the socket unless keep-alive is on; ignore otherwise.").
	if !c.req.KeepAlive {
		c.st.Close()
	}
}

func (c *Connection) armDispose() {
	c.disposeTimer = time.AfterFunc(c.req.StoreTimeout, func() {
		c.act.Post(c.onDispose)
	})
}

// onDispose runs on the actor's own goroutine (posted by armDispose),
// so it stops the actor with Stop rather than Close: Close blocks
// until the consumer goroutine exits, which can never happen while
// that same goroutine is still inside this call.
func (c *Connection) onDispose() {
	c.setState(stateExpired)
	c.expired.Store(true)
	c.act.Stop()
}

// rearm resets the stream, drains both I/O buffers, rebuilds the
// parser, and resets the body-read scratch state, sharing the one
// routine spec.md design note §9 calls for between restart (reuse
// retry) and redirect — they differ only in whether target is
// non-nil (redirect rewrites the request URI; restart does not).
func (c *Connection) rearm(target *Request) {
	c.cancel()
	ctx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = ctx, cancel

	c.st.Close()
	c.st = stream.New()
	c.ps = respparser.New()
	c.headers = nil
	c.raw = nil
	c.contentLength = 0
	c.chunked = false
	c.resolvedAddrs = nil

	if target != nil {
		c.req = target
	}
}
