// Package respparser is a pausable, event-driven HTTP/1.x response
// scanner. It plays the role spec.md §1/§4.2 assigns to "the
// incremental HTTP response parser (treated as a callback-driven
// black box)": no pack repo ships a standalone response-parsing
// library as a dependency, so this package is the in-repo stand-in,
// grounded on dqx0-protocols/httpx/transport.go's readStatusLine,
// readHeaders, readLine, and newClientChunkedBody byte-level
// scanning, restructured from blocking *bufio.Reader methods into a
// Feed-one-event-at-a-time pump because the connection state machine
// needs to consume exactly one event per I/O step (spec.md §4.2
// "pause/resume").
package respparser

import (
	"bytes"
	"errors"
	"net/textproto"
	"strconv"
	"strings"
)

// ErrMalformed signals that buf's prefix could not be parsed as the
// expected element (status line, header line, or chunk-size line).
// It is the Go analogue of spec.md §4.2's "execute_parser() returns
// ... false signals a malformed prefix".
var ErrMalformed = errors.New("respparser: malformed response prefix")

// ErrNeedMore signals that buf does not yet contain a complete
// element (no CRLF found); the caller should read more bytes and
// call again.
var ErrNeedMore = errors.New("respparser: need more data")

// Parser is a tiny struct, not because it holds much state, but
// because header-field accumulation (spec.md §4.2 "accumulates field
// name, then on value pairs them") is the one place parsing state
// must survive across Feed calls within a single header line — and
// in this design a header line parses in one shot, so Parser today
// holds no field-spanning state at all. It remains a struct (instead
// of free functions) so a future continuation-line extension has
// somewhere to live without changing callers.
type Parser struct{}

// New returns a ready-to-use Parser.
func New() *Parser {
	return &Parser{}
}

// FeedStatusLine parses exactly one CRLF-terminated status line from
// the front of buf and returns how many bytes it consumed along with
// an EventStatus. It returns ErrNeedMore if buf has no CRLF yet, or
// ErrMalformed if the line does not have the "HTTP/M.N CODE REASON"
// shape spec.md §6 requires.
func (p *Parser) FeedStatusLine(buf []byte) (consumed int, ev Event, err error) {
	line, n, ok := cutLine(buf)
	if !ok {
		return 0, Event{}, ErrNeedMore
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return 0, Event{}, ErrMalformed
	}
	major, minor, ok := parseHTTPVersion(parts[0])
	if !ok {
		return 0, Event{}, ErrMalformed
	}
	code, convErr := strconv.Atoi(parts[1])
	if convErr != nil {
		return 0, Event{}, ErrMalformed
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return n, Event{Type: EventStatus, Major: major, Minor: minor, Code: code, Reason: reason}, nil
}

// FeedHeaderLine parses exactly one CRLF-terminated header line (or
// the blank line that ends the header block) from the front of buf.
// A non-blank line yields EventHeader{Field, Value}; the blank line
// yields EventHeadersComplete with ContentLength/Chunked filled in
// from the accumulated headers the caller passes in via
// currentHeaders (the state machine owns header accumulation, per
// spec.md §4.2's "moves accumulated headers into the response").
func (p *Parser) FeedHeaderLine(buf []byte, currentHeaders map[string][]string) (consumed int, ev Event, err error) {
	line, n, ok := cutLine(buf)
	if !ok {
		return 0, Event{}, ErrNeedMore
	}
	if line == "" {
		cl, chunked := declaredFraming(currentHeaders)
		return n, Event{Type: EventHeadersComplete, ContentLength: cl, Chunked: chunked}, nil
	}
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return 0, Event{}, ErrMalformed
	}
	field := strings.TrimSpace(line[:i])
	value := strings.TrimSpace(line[i+1:])
	return n, Event{Type: EventHeader, Field: field, Value: value}, nil
}

// FeedChunkHeader parses exactly one CRLF-terminated chunk-size line
// (hex size, optionally followed by ";extension" which is discarded)
// from the front of buf, grounded on dqx0-protocols/httpx/transport.go's
// newClientChunkedBody chunk-size-line handling.
func (p *Parser) FeedChunkHeader(buf []byte) (consumed int, ev Event, err error) {
	line, n, ok := cutLine(buf)
	if !ok {
		return 0, Event{}, ErrNeedMore
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	size, convErr := strconv.ParseInt(line, 16, 64)
	if convErr != nil || size < 0 {
		return 0, Event{}, ErrMalformed
	}
	return n, Event{Type: EventChunkHeader, ChunkSize: size}, nil
}

// FeedChunkTrailer consumes one CRLF-terminated trailer line after
// the terminating zero-size chunk. Trailer header values are
// discarded (spec.md's wire format does not surface them on
// Response), matching newClientChunkedBody's trailer-draining loop.
func (p *Parser) FeedChunkTrailer(buf []byte) (consumed int, done bool, err error) {
	line, n, ok := cutLine(buf)
	if !ok {
		return 0, false, ErrNeedMore
	}
	return n, line == "", nil
}

// FeedBody wraps a body slice the connection has already sized and
// sliced out of its read buffer into an EventBody, giving the body
// callback path (spec.md §4.2 "Body" contract) the same Event
// shape every other phase uses instead of a bespoke call signature.
func (p *Parser) FeedBody(data []byte) Event {
	return Event{Type: EventBody, Data: data}
}

// cutLine finds the first CRLF in buf and returns the line before it
// (with the CRLF stripped) plus the number of bytes consumed
// including the CRLF. If buf has a bare LF without a preceding CR it
// is still accepted as a line terminator (most servers-in-the-wild
// tolerance), matching dqx0-protocols/httpx/transport.go's readLine
// "skip \r, stop on \n" behavior.
func cutLine(buf []byte) (line string, consumed int, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return "", 0, false
	}
	end := i
	if end > 0 && buf[end-1] == '\r' {
		end--
	}
	return string(buf[:end]), i + 1, true
}

func parseHTTPVersion(tok string) (major, minor int, ok bool) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(tok, prefix) {
		return 0, 0, false
	}
	rest := tok[len(prefix):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(rest[:dot])
	min, err2 := strconv.Atoi(rest[dot+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

// declaredFraming inspects the accumulated header map for
// Content-Length and Transfer-Encoding: chunked, the two signals
// spec.md §4.3's READ_CONTENT dispatch switches on. Transfer-Encoding
// takes priority over Content-Length per RFC 7230 §3.3.3, matching
// the dispatch order in spec.md's table (chunked is checked, then
// Content-Length, then neither).
func declaredFraming(headers map[string][]string) (contentLength int64, chunked bool) {
	contentLength = -1
	for _, v := range headers[canonicalKey("Transfer-Encoding")] {
		if strings.Contains(strings.ToLower(v), "chunked") {
			chunked = true
		}
	}
	if chunked {
		return -1, true
	}
	for _, v := range headers[canonicalKey("Content-Length")] {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			contentLength = n
			break
		}
	}
	return contentLength, false
}

// canonicalKey matches the casing addHeader (connection_io.go) stores
// keys under, so declaredFraming's lookups hit.
func canonicalKey(s string) string {
	return textproto.CanonicalMIMEHeaderKey(s)
}
