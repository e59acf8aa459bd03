package stream

import (
	"context"
	"net"
	"testing"
	"time"
)

func pipeStream(t *testing.T) (*Stream, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	s := &Stream{}
	s.conn = client
	s.open = true
	t.Cleanup(func() { client.Close(); server.Close() })
	return s, server
}

func TestReadUntilAccumulatesAcrossReads(t *testing.T) {
	s, server := pipeStream(t)
	go func() {
		server.Write([]byte("HTTP/1.1 200"))
		time.Sleep(10 * time.Millisecond)
		server.Write([]byte(" OK\r\n"))
	}()

	n, err := s.ReadUntil(context.Background(), []byte("\n"))
	if err != nil {
		t.Fatalf("ReadUntil: %v", err)
	}
	if got := string(s.Buffered()); got != "HTTP/1.1 200 OK\r\n" {
		t.Fatalf("buffered = %q", got)
	}
	if n != len("HTTP/1.1 200 OK\r\n") {
		t.Fatalf("n = %d", n)
	}
}

func TestConsumeDropsFromFront(t *testing.T) {
	s, server := pipeStream(t)
	go server.Write([]byte("abcdef"))

	if _, err := s.ReadAtLeast(context.Background(), 6); err != nil {
		t.Fatalf("ReadAtLeast: %v", err)
	}
	s.Consume(3)
	if got := string(s.Buffered()); got != "def" {
		t.Fatalf("buffered = %q", got)
	}
}

func TestAdoptTransplantsConnAndBuffer(t *testing.T) {
	prev, server := pipeStream(t)
	go server.Write([]byte("leftover"))
	if _, err := prev.ReadAtLeast(context.Background(), 8); err != nil {
		t.Fatalf("ReadAtLeast: %v", err)
	}

	next := New()
	next.Adopt(prev)

	if prev.IsOpen() {
		t.Fatal("prev should be disconnected after Adopt")
	}
	if !next.IsOpen() {
		t.Fatal("next should be open after Adopt")
	}
	if got := string(next.Buffered()); got != "leftover" {
		t.Fatalf("next buffered = %q", got)
	}
}

func TestIsClosedError(t *testing.T) {
	if IsClosedError(nil) {
		t.Fatal("nil should not be a closed error")
	}
	if !IsClosedError(net.ErrClosed) {
		t.Fatal("net.ErrClosed should be a closed error")
	}
}

func TestIsAborted(t *testing.T) {
	if !IsAborted(context.Canceled) {
		t.Fatal("context.Canceled should be aborted")
	}
	if IsAborted(net.ErrClosed) {
		t.Fatal("net.ErrClosed should not be aborted")
	}
}
