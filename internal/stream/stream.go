// Package stream implements the unified async read/write transport
// over plain TCP or TLS that spec.md §4.1 calls "Transport stream".
// It mirrors dqx0-protocols/httpx/transport.go's dial/TLS-wrap logic
// (SNI/ALPN defaulting, context-derived deadlines) but splits Resolve,
// Connect, and Handshake into three explicit steps and exposes an
// accumulating read buffer instead of a bufio.Reader, so the
// connection state machine can decide, byte by byte, how much more
// I/O it needs.
package stream

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Stream is a movable read/write transport over one net.Conn. It is
// movable across keep-alive reuse: Adopt transplants an open Stream's
// socket and any already-buffered bytes into a fresh Stream value
// without reconnecting (spec.md §4.1).
type Stream struct {
	mu   sync.Mutex
	conn net.Conn
	tls  bool

	readBuf bytes.Buffer // bytes read from conn but not yet consumed by the caller
	open    bool

	keepAlive bool
}

// New returns an unconnected Stream.
func New() *Stream {
	return &Stream{}
}

// Resolve looks up host's addresses, the RESOLVE half of spec.md
// §4.1/§4.3's two distinct RESOLVE and CONNECT phases (split out from
// a single combined dial so the connection state machine can
// transition through RESOLVE_ERROR and CONNECT_ERROR independently).
func (s *Stream) Resolve(ctx context.Context, host string) ([]string, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no addresses found", Name: host}
	}
	return addrs, nil
}

// Connect dials each of addrs in order on port, succeeding on the
// first TCP connect that completes without error (spec.md §4.1
// "attempts each resolved endpoint in order").
func (s *Stream) Connect(ctx context.Context, addrs []string, port string) error {
	d := net.Dialer{}
	var lastErr error
	for _, addr := range addrs {
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if err != nil {
			lastErr = err
			continue
		}
		s.mu.Lock()
		s.conn = conn
		s.open = true
		s.mu.Unlock()
		return nil
	}
	return lastErr
}

// Handshake performs a TLS handshake if cfg is non-nil; otherwise it
// completes immediately (spec.md §4.1 "no-op for plain"). TLS
// verification honors cfg's InsecureSkipVerify, ServerName, RootCAs,
// and Certificates exactly as configured by the caller (see
// ahttp's tlsConfigFor for how always_verify_peer,
// verify_path/verify_filename, and client certificates map onto
// those fields).
func (s *Stream) Handshake(ctx context.Context, cfg *tls.Config) error {
	if cfg == nil {
		return nil
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("stream: handshake before connect")
	}
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = tc
	s.tls = true
	s.mu.Unlock()
	return nil
}

// WriteAll writes p in its entirety or fails (spec.md §4.1).
func (s *Stream) WriteAll(ctx context.Context, p []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("stream: write before connect")
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		defer conn.SetWriteDeadline(time.Time{})
	}
	_, err := conn.Write(p)
	return err
}

// ReadUntil ensures the unconsumed read buffer contains delim,
// issuing as many underlying reads as necessary, and returns the
// total number of unconsumed bytes now buffered (spec.md §4.1
// "returns total bytes read").
func (s *Stream) ReadUntil(ctx context.Context, delim []byte) (int, error) {
	for {
		if i := bytes.Index(s.readBuf.Bytes(), delim); i >= 0 {
			return s.readBuf.Len(), nil
		}
		err := s.fill(ctx)
		if err == nil {
			continue
		}
		// fill appends on error too, so a peer that coalesces its
		// final bytes with the FIN can deliver delim in the same Read
		// that also returns EOF; re-scan before surfacing err.
		if i := bytes.Index(s.readBuf.Bytes(), delim); i >= 0 {
			return s.readBuf.Len(), nil
		}
		return s.readBuf.Len(), err
	}
}

// ReadAtLeast ensures the unconsumed read buffer holds at least n
// bytes (spec.md §4.1).
func (s *Stream) ReadAtLeast(ctx context.Context, n int) (int, error) {
	for s.readBuf.Len() < n {
		if err := s.fill(ctx); err != nil {
			return s.readBuf.Len(), err
		}
	}
	return s.readBuf.Len(), nil
}

// fill performs one underlying Read and appends whatever it returns
// to the unconsumed buffer, even on error (so a short read right
// before EOF is not lost — spec.md §7's EOF-with-partial-data cases
// depend on this).
func (s *Stream) fill(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("stream: read before connect")
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
		defer conn.SetReadDeadline(time.Time{})
	}
	var chunk [4096]byte
	n, err := conn.Read(chunk[:])
	if n > 0 {
		s.readBuf.Write(chunk[:n])
	}
	return err
}

// Buffered returns the unconsumed read buffer without copying.
func (s *Stream) Buffered() []byte {
	return s.readBuf.Bytes()
}

// Consume drops the first n bytes of the unconsumed read buffer.
func (s *Stream) Consume(n int) {
	s.readBuf.Next(n)
}

// SetKeepAlive records the desired keep-alive option and, for a TCP
// (non-TLS-wrapped net.TCPConn) stream, applies it to the socket.
func (s *Stream) SetKeepAlive(keepAlive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAlive = keepAlive
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.SetKeepAlive(keepAlive)
	}
	return nil
}

// Cancel aborts any in-flight read/write by closing the underlying
// connection. The interrupted operation fails with a closed-connection
// error, which IsClosedError recognizes and IsAborted does not.
func (s *Stream) Cancel() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Close releases the underlying socket.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.open = false
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// IsOpen reports whether the stream still owns a live connection.
func (s *Stream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open && s.conn != nil
}

// Adopt transplants prev's socket and unconsumed buffer into s,
// leaving prev disconnected, so a keep-alive connection can be reused
// without reconnecting (spec.md §4.1, §4.5).
func (s *Stream) Adopt(prev *Stream) {
	prev.mu.Lock()
	s.mu.Lock()
	s.conn = prev.conn
	s.tls = prev.tls
	s.open = prev.open
	s.readBuf = prev.readBuf
	s.mu.Unlock()
	prev.conn = nil
	prev.open = false
	prev.readBuf = bytes.Buffer{}
	prev.mu.Unlock()
}

// IsClosedError reports whether err indicates the peer closed the
// socket out from under us (EOF, reset, aborted, broken pipe, or a
// truncated TLS record), the Go analogue of
// original_source/crequests/connection.cpp's is_socket_closed, which
// recognizes Boost.Asio's eof/connection_reset/connection_aborted/
// broken_pipe plus Asio-SSL's stream_truncated.
func IsClosedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var recErr tls.RecordHeaderError
	if errors.As(err, &recErr) {
		return true
	}
	// net.OpError wraps the above for dial/read/write failures; fall
	// back to a string check for the cases syscall errno translation
	// does not reach on all platforms.
	return strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "broken pipe")
}

// IsAborted reports whether err is the Go analogue of
// operation_aborted: the context that scoped the operation was
// canceled. Per spec.md §3/§5, callers must treat this as a silent
// no-op rather than a failure.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled)
}
