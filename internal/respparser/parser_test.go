package respparser

import "testing"

func TestFeedStatusLine(t *testing.T) {
	p := New()
	n, ev, err := p.FeedStatusLine([]byte("HTTP/1.1 200 OK\r\nHost: x\r\n"))
	if err != nil {
		t.Fatalf("FeedStatusLine: %v", err)
	}
	if n != len("HTTP/1.1 200 OK\r\n") {
		t.Fatalf("consumed = %d", n)
	}
	if ev.Major != 1 || ev.Minor != 1 || ev.Code != 200 || ev.Reason != "OK" {
		t.Fatalf("ev = %+v", ev)
	}
}

func TestFeedStatusLineNeedMore(t *testing.T) {
	p := New()
	_, _, err := p.FeedStatusLine([]byte("HTTP/1.1 200 O"))
	if err != ErrNeedMore {
		t.Fatalf("err = %v, want ErrNeedMore", err)
	}
}

func TestFeedStatusLineMalformed(t *testing.T) {
	p := New()
	_, _, err := p.FeedStatusLine([]byte("not a status line\r\n"))
	if err != ErrMalformed {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestFeedHeaderLine(t *testing.T) {
	p := New()
	headers := map[string][]string{}
	n, ev, err := p.FeedHeaderLine([]byte("Content-Type: text/plain\r\n\r\n"), headers)
	if err != nil {
		t.Fatalf("FeedHeaderLine: %v", err)
	}
	if ev.Type != EventHeader || ev.Field != "Content-Type" || ev.Value != "text/plain" {
		t.Fatalf("ev = %+v", ev)
	}
	if n != len("Content-Type: text/plain\r\n") {
		t.Fatalf("consumed = %d", n)
	}
}

func TestFeedHeaderLineBlankCompletesWithContentLength(t *testing.T) {
	p := New()
	headers := map[string][]string{"Content-Length": {"5"}}
	_, ev, err := p.FeedHeaderLine([]byte("\r\nhello"), headers)
	if err != nil {
		t.Fatalf("FeedHeaderLine: %v", err)
	}
	if ev.Type != EventHeadersComplete || ev.Chunked || ev.ContentLength != 5 {
		t.Fatalf("ev = %+v", ev)
	}
}

func TestFeedHeaderLineBlankCompletesChunkedTakesPriority(t *testing.T) {
	p := New()
	headers := map[string][]string{
		"Content-Length":    {"5"},
		"Transfer-Encoding": {"chunked"},
	}
	_, ev, err := p.FeedHeaderLine([]byte("\r\n"), headers)
	if err != nil {
		t.Fatalf("FeedHeaderLine: %v", err)
	}
	if !ev.Chunked || ev.ContentLength != -1 {
		t.Fatalf("ev = %+v, want chunked with no content length", ev)
	}
}

func TestFeedChunkHeader(t *testing.T) {
	p := New()
	n, ev, err := p.FeedChunkHeader([]byte("1a;ignored-extension\r\n"))
	if err != nil {
		t.Fatalf("FeedChunkHeader: %v", err)
	}
	if ev.ChunkSize != 0x1a {
		t.Fatalf("ChunkSize = %d, want 26", ev.ChunkSize)
	}
	if n != len("1a;ignored-extension\r\n") {
		t.Fatalf("consumed = %d", n)
	}
}

func TestFeedChunkTrailer(t *testing.T) {
	p := New()
	n, done, err := p.FeedChunkTrailer([]byte("\r\nrest"))
	if err != nil {
		t.Fatalf("FeedChunkTrailer: %v", err)
	}
	if !done || n != 2 {
		t.Fatalf("done=%v n=%d", done, n)
	}
}
