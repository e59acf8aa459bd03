package ahttp

import (
	"net/textproto"

	"github.com/lucidhttp/ahttp/internal/cookiejar"
	"github.com/lucidhttp/ahttp/internal/obs"
	"github.com/lucidhttp/ahttp/internal/respparser"
	"github.com/lucidhttp/ahttp/internal/stream"
)

func hostPort(r *Request) (host, port string) {
	host = r.URI.Hostname()
	port = r.URI.Port()
	if port != "" {
		return host, port
	}
	if r.URI.Scheme == "https" {
		return host, "443"
	}
	return host, "80"
}

// enterResolve starts the RESOLVE phase (spec.md §4.3).
func (c *Connection) enterResolve() {
	c.setState(stateResolve)
	host, _ := hostPort(c.req)
	ctx := c.ctx
	go func() {
		addrs, err := c.st.Resolve(ctx, host)
		c.act.Post(func() { c.onResolved(addrs, err) })
	}()
}

func (c *Connection) onResolved(addrs []string, err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		c.setError(stateResolveError, err.Error())
		return
	}
	c.resolvedAddrs = addrs
	c.enterConnect()
}

// enterConnect starts the CONNECT phase: dial every address RESOLVE
// produced, in order, succeeding on the first that completes
// (spec.md §4.1).
func (c *Connection) enterConnect() {
	c.setState(stateConnect)
	_, port := hostPort(c.req)
	addrs := c.resolvedAddrs
	ctx := c.ctx
	go func() {
		err := c.st.Connect(ctx, addrs, port)
		c.act.Post(func() { c.onConnected(err) })
	}()
}

func (c *Connection) onConnected(err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		c.setError(stateConnectError, err.Error())
		return
	}
	_ = c.st.SetKeepAlive(c.req.KeepAlive)
	c.meter.Counter("ahttp_client_dials_total", 1)
	c.enterHandshake()
}

// enterHandshake performs the TLS handshake, or completes immediately
// for a plain-HTTP target (spec.md §4.1).
func (c *Connection) enterHandshake() {
	c.setState(stateHandshake)
	cfg, err := tlsConfigFor(c.req)
	if err != nil {
		c.setError(stateHandshakeError, err.Error())
		return
	}
	ctx := c.ctx
	go func() {
		herr := c.st.Handshake(ctx, cfg)
		c.act.Post(func() { c.onHandshakeDone(herr) })
	}()
}

func (c *Connection) onHandshakeDone(err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		c.setError(stateHandshakeError, err.Error())
		return
	}
	c.enterWrite()
}

// enterWrite serializes and writes the request (spec.md §4.3 WRITE).
func (c *Connection) enterWrite() {
	c.setState(stateWrite)
	cookies := c.jarCookies()
	buf := buildRequestBytes(c.req, cookies)
	ctx := c.ctx
	go func() {
		err := c.st.WriteAll(ctx, buf)
		c.act.Post(func() { c.onWritten(err) })
	}()
}

func (c *Connection) jarCookies() []*Cookie {
	var out []*Cookie
	if c.jar != nil {
		out = c.jar.Cookies(c.req.URI)
	}
	out = append(out, c.req.Cookies...)
	return out
}

func (c *Connection) onWritten(err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		if c.shouldRestart(err) {
			c.restart()
			return
		}
		c.setError(stateWriteError, err.Error())
		return
	}
	c.meter.Counter("ahttp_client_requests_total", 1, obs.Label{Key: "method", Value: c.req.Method})
	c.enterReadStatus()
}

// shouldRestart implements spec.md §4.5: a reused, non-terminal
// connection whose WRITE or READ_STATUS fails with a socket-closed
// condition transparently rebuilds its stream and restarts from
// RESOLVE exactly once per reuse attempt.
func (c *Connection) shouldRestart(err error) bool {
	return c.isReused && !c.restarted && !c.state.isTerminal() && stream.IsClosedError(err)
}

// enterReadStatus reads and parses the status line (spec.md §4.3
// READ_STATUS).
func (c *Connection) enterReadStatus() {
	c.setState(stateReadStatus)
	c.readLine(c.onStatusLineReadable)
}

func (c *Connection) onStatusLineReadable(ioErr error) {
	if c.guard(ioErr) {
		return
	}
	if ioErr != nil {
		if c.shouldRestart(ioErr) {
			c.restart()
			return
		}
		c.setError(stateReadStatusError, ioErr.Error())
		return
	}
	n, ev, perr := c.ps.FeedStatusLine(c.st.Buffered())
	if perr != nil {
		c.setError(stateReadStatusDataError, perr.Error())
		return
	}
	c.st.Consume(n)
	c.resp.ProtoMajor, c.resp.ProtoMinor = ev.Major, ev.Minor
	c.resp.StatusCode = ev.Code
	c.resp.Status = ev.Reason
	c.enterReadHeaders()
}

// enterReadHeaders reads and parses header lines one at a time until
// the blank line that ends the header block (spec.md §4.3
// READ_HEADERS).
func (c *Connection) enterReadHeaders() {
	c.setState(stateReadHeaders)
	if c.headers == nil {
		c.headers = make(map[string][]string)
	}
	c.readLine(c.onHeaderLineReadable)
}

func (c *Connection) onHeaderLineReadable(ioErr error) {
	if c.guard(ioErr) {
		return
	}
	if ioErr != nil {
		c.setError(stateReadHeadersError, ioErr.Error())
		return
	}
	n, ev, perr := c.ps.FeedHeaderLine(c.st.Buffered(), c.headers)
	if perr != nil {
		c.setError(stateReadHeadersError, perr.Error())
		return
	}
	c.st.Consume(n)
	switch ev.Type {
	case respparser.EventHeader:
		addHeader(c.headers, ev.Field, ev.Value)
		if equalFold(ev.Field, "Set-Cookie") {
			c.recordSetCookie(ev.Value)
		}
		c.enterReadHeaders()
	case respparser.EventHeadersComplete:
		c.resp.Header = Header(c.headers)
		c.contentLength = ev.ContentLength
		c.chunked = ev.Chunked
		c.dispatchContent()
	}
}

func (c *Connection) recordSetCookie(raw string) {
	ck, err := cookiejar.ParseSetCookie(raw)
	if err != nil {
		return
	}
	c.resp.Cookies = append(c.resp.Cookies, ck)
	if c.jar != nil {
		c.jar.SetCookies(c.req.URI, []*Cookie{ck})
	}
}

// dispatchContent implements spec.md §4.3's READ_CONTENT dispatch: a
// declared Transfer-Encoding: chunked wins over Content-Length, which
// wins over reading to EOF.
func (c *Connection) dispatchContent() {
	switch {
	case c.chunked:
		c.enterReadChunkHeader()
	case c.contentLength >= 0:
		c.enterReadContentLength()
	default:
		c.enterReadUntilEOF()
	}
}

// readLine ensures the stream's unconsumed buffer contains a full
// CRLF-terminated line before calling onReady, issuing a new
// underlying read only if the buffer does not already contain one
// (spec.md §4.3 body-read sizing: "scan the buffer for an existing
// CRLF... before issuing new I/O").
func (c *Connection) readLine(onReady func(err error)) {
	if hasLine(c.st.Buffered()) {
		onReady(nil)
		return
	}
	ctx := c.ctx
	go func() {
		_, err := c.st.ReadUntil(ctx, []byte("\n"))
		c.act.Post(func() { onReady(err) })
	}()
}

func hasLine(buf []byte) bool {
	for _, b := range buf {
		if b == '\n' {
			return true
		}
	}
	return false
}

func addHeader(h map[string][]string, k, v string) {
	ck := textproto.CanonicalMIMEHeaderKey(k)
	h[ck] = append(h[ck], v)
}
