package ahttp

import "github.com/lucidhttp/ahttp/internal/stream"

// emitBody wraps data in the same Event shape every other read phase
// produces (c.ps.FeedBody) and then delivers it to BodyCallback if the
// caller registered one, or accumulates it onto the scratch buffer
// that finalize moves into resp.Raw (spec.md §4.6 step 5). Exactly one
// of the two happens per spec.md §3 "the raw body is not accumulated
// on the Response when [BodyCallback] is set".
func (c *Connection) emitBody(data []byte) {
	ev := c.ps.FeedBody(data)
	if c.req.BodyCallback != nil {
		cp := make([]byte, len(ev.Data))
		copy(cp, ev.Data)
		c.req.BodyCallback(cp, nil)
		return
	}
	c.raw = append(c.raw, ev.Data...)
}

// completeBody is reached once the declared body framing (whichever
// of the three READ_CONTENT_* modes applies) has consumed its last
// byte. It is the fork spec.md §4.3 draws between following a
// redirect and finishing with SUCCESS.
func (c *Connection) completeBody() {
	if c.resp.IsRedirect() && c.req.Redirect {
		c.performRedirect()
		return
	}
	c.setState(stateSuccess)
	c.finalize()
}

// enterReadContentLength implements spec.md §4.3's READ_CONTENT_LENGTH
// mode: read exactly the declared number of bytes, satisfying as much
// as possible from whatever is already buffered before issuing new
// I/O (the "body-read sizing" rule in design note §9).
func (c *Connection) enterReadContentLength() {
	c.setState(stateReadContentLength)
	if c.contentLength == 0 {
		c.completeBody()
		return
	}
	c.drainContentLength()
}

func (c *Connection) drainContentLength() {
	if buf := c.st.Buffered(); len(buf) > 0 {
		take := int64(len(buf))
		if take > c.contentLength {
			take = c.contentLength
		}
		c.emitBody(buf[:take])
		c.st.Consume(int(take))
		c.contentLength -= take
	}
	if c.contentLength == 0 {
		c.completeBody()
		return
	}
	// The buffer is empty here, so the deficit is the whole remaining
	// declared length.
	ctx, need := c.ctx, int(c.contentLength)
	go func() {
		_, err := c.st.ReadAtLeast(ctx, need)
		c.act.Post(func() { c.onContentLengthReadable(err) })
	}()
}

func (c *Connection) onContentLengthReadable(err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		if stream.IsClosedError(err) {
			c.setError(stateReadContentLengthError, errShortBody)
			return
		}
		c.setError(stateReadContentLengthError, err.Error())
		return
	}
	c.drainContentLength()
}

// enterReadChunkHeader implements spec.md §4.3's READ_CHUNK_HEADER
// mode: parse one chunk-size line, then either read that many body
// bytes (READ_CHUNK_DATA) or, on a zero-size chunk, drain trailers
// and complete.
func (c *Connection) enterReadChunkHeader() {
	c.setState(stateReadChunkHeader)
	c.readLine(c.onChunkHeaderReadable)
}

func (c *Connection) onChunkHeaderReadable(ioErr error) {
	if c.guard(ioErr) {
		return
	}
	if ioErr != nil {
		c.setError(stateReadChunkHeaderError, ioErr.Error())
		return
	}
	n, ev, perr := c.ps.FeedChunkHeader(c.st.Buffered())
	if perr != nil {
		c.setError(stateReadChunkHeaderError, perr.Error())
		return
	}
	c.st.Consume(n)
	c.contentLength = ev.ChunkSize
	if ev.ChunkSize == 0 {
		c.enterReadChunkTrailer()
		return
	}
	c.enterReadChunkData()
}

func (c *Connection) enterReadChunkTrailer() {
	c.readLine(c.onChunkTrailerReadable)
}

func (c *Connection) onChunkTrailerReadable(ioErr error) {
	if c.guard(ioErr) {
		return
	}
	if ioErr != nil {
		c.setError(stateReadChunkHeaderError, ioErr.Error())
		return
	}
	n, done, perr := c.ps.FeedChunkTrailer(c.st.Buffered())
	if perr != nil {
		c.setError(stateReadChunkHeaderError, perr.Error())
		return
	}
	c.st.Consume(n)
	if done {
		c.completeBody()
		return
	}
	c.enterReadChunkTrailer()
}

// enterReadChunkData implements spec.md §4.3's READ_CHUNK_DATA mode:
// read exactly the current chunk's declared size, then consume its
// trailing CRLF before returning to READ_CHUNK_HEADER for the next
// chunk.
func (c *Connection) enterReadChunkData() {
	c.setState(stateReadChunkData)
	c.drainChunkData()
}

func (c *Connection) drainChunkData() {
	if buf := c.st.Buffered(); len(buf) > 0 {
		take := int64(len(buf))
		if take > c.contentLength {
			take = c.contentLength
		}
		if take > 0 {
			c.emitBody(buf[:take])
			c.st.Consume(int(take))
			c.contentLength -= take
		}
	}
	if c.contentLength == 0 {
		c.readLine(c.onChunkDataCRLFReadable)
		return
	}
	ctx := c.ctx
	go func() {
		_, err := c.st.ReadAtLeast(ctx, 1)
		c.act.Post(func() { c.onChunkDataReadable(err) })
	}()
}

func (c *Connection) onChunkDataReadable(err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		if stream.IsClosedError(err) {
			c.setError(stateReadChunkDataError, errShortBody)
			return
		}
		c.setError(stateReadChunkDataError, err.Error())
		return
	}
	c.drainChunkData()
}

func (c *Connection) onChunkDataCRLFReadable(ioErr error) {
	if c.guard(ioErr) {
		return
	}
	if ioErr != nil {
		c.setError(stateReadChunkDataError, ioErr.Error())
		return
	}
	c.st.Consume(consumeThroughNewline(c.st.Buffered()))
	c.enterReadChunkHeader()
}

func consumeThroughNewline(buf []byte) int {
	for i, b := range buf {
		if b == '\n' {
			return i + 1
		}
	}
	return 0
}

// enterReadUntilEOF implements spec.md §4.3's READ_UNTIL_EOF mode,
// used when a response declares neither Transfer-Encoding: chunked
// nor Content-Length: every byte up to the peer closing the socket is
// the body, and that close is the normal, successful end of the body
// rather than an error (spec.md §7).
func (c *Connection) enterReadUntilEOF() {
	c.setState(stateReadUntilEOF)
	c.drainUntilEOF()
}

func (c *Connection) drainUntilEOF() {
	if buf := c.st.Buffered(); len(buf) > 0 {
		c.emitBody(buf)
		c.st.Consume(len(buf))
	}
	ctx := c.ctx
	go func() {
		_, err := c.st.ReadAtLeast(ctx, 1)
		c.act.Post(func() { c.onUntilEOFReadable(err) })
	}()
}

func (c *Connection) onUntilEOFReadable(err error) {
	if c.guard(err) {
		return
	}
	if err != nil {
		if stream.IsClosedError(err) {
			c.completeBody()
			return
		}
		c.setError(stateReadUntilEOFError, err.Error())
		return
	}
	c.drainUntilEOF()
}
