package ahttp

import (
	"time"

	"github.com/lucidhttp/ahttp/internal/obs"
)

// finalize runs spec.md §4.6's termination sequence exactly once, at
// the connection's first terminal transition. Order matters: the
// response is handed to FinalCallback before the stream is
// closed-or-kept so the callback can still see keep-alive's effect on
// the wire, and the future is the very last thing touched so that
// Wait() callers always observe a fully assembled Response.
func (c *Connection) finalize() {
	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
	}
	c.cancel()

	if !c.started.IsZero() {
		ms := float64(time.Since(c.started)) / float64(time.Millisecond)
		c.meter.Histogram("ahttp_client_roundtrip_ms", ms, obs.Label{Key: "state", Value: c.state.String()})
	}

	if c.req.FinalCallback != nil {
		c.req.FinalCallback(c.resp)
	}

	c.armDispose()

	keepAlive := c.req.KeepAlive && c.state == stateSuccess && !c.resp.Header.has("Connection", "close")
	if !keepAlive {
		c.st.Close()
	}
	if c.onFinal != nil {
		c.onFinal(c)
	}

	c.resp.Raw = c.raw

	if c.req.BodyCallback != nil {
		var err error
		if c.resp.Err != nil {
			err = c.resp.Err
		}
		c.req.BodyCallback(nil, err)
	}

	var ferr error
	if c.req.ThrowOnError && c.resp.Err != nil {
		ferr = c.resp.Err
	}
	c.future.fulfill(c.resp, ferr)
}

// keptOpen reports whether finalize left this connection's stream
// open for a Session to hand to the next Send on the same host
// (spec.md §4.5).
func (c *Connection) keptOpen() bool {
	return c.state == stateSuccess && c.req.KeepAlive && !c.resp.Header.has("Connection", "close") && c.st.IsOpen()
}
