package ahttp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedServer listens on an ephemeral loopback port and hands each
// accepted connection's raw request bytes to respond, which writes
// whatever wire bytes it wants back before the connection is closed.
// It stands in for the httptest.Server the rest of the pack reaches
// for, since this package talks raw TCP rather than net/http.
func scriptedServer(t *testing.T, respond func(n int, req string) string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		n := 0
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			n++
			go func(conn net.Conn, n int) {
				defer conn.Close()
				req := readRequestHead(conn)
				conn.Write([]byte(respond(n, req)))
			}(conn, n)
		}
	}()
	return ln.Addr().String()
}

func readRequestHead(conn net.Conn) string {
	r := bufio.NewReader(conn)
	var head []byte
	for {
		line, err := r.ReadString('\n')
		head = append(head, line...)
		if err != nil || line == "\r\n" {
			break
		}
	}
	return string(head)
}

func TestSessionGetSimpleResponse(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		return "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"
	})

	sess := &Session{}
	resp, err := sess.Get(RequestOptions{URL: "http://" + addr + "/"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Nil(t, resp.Err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "hello", string(resp.Raw))
}

func TestSessionGetChunkedResponse(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		return "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nConnection: close\r\n\r\n" +
			"3\r\nhey\r\n2\r\n!!\r\n0\r\n\r\n"
	})

	sess := &Session{}
	resp, err := sess.Get(RequestOptions{URL: "http://" + addr + "/"})
	require.NoError(t, err)
	require.Nil(t, resp.Err)
	require.Equal(t, "hey!!", string(resp.Raw))
}

func TestSessionGetReadsUntilEOFWhenUnframed(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		return "HTTP/1.1 200 OK\r\nConnection: close\r\n\r\nno framing, just close"
	})

	sess := &Session{}
	resp, err := sess.Get(RequestOptions{URL: "http://" + addr + "/"})
	require.NoError(t, err)
	require.Nil(t, resp.Err)
	require.Equal(t, "no framing, just close", string(resp.Raw))
}

func TestSessionGetFollowsRedirectChain(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		if n == 1 {
			return "HTTP/1.1 302 Found\r\nLocation: /next\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
		}
		return "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: close\r\n\r\nok"
	})

	sess := &Session{}
	resp, err := sess.Get(RequestOptions{URL: "http://" + addr + "/start"})
	require.NoError(t, err)
	require.Nil(t, resp.Err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "ok", string(resp.Raw))
	require.Len(t, resp.Redirects, 2)
	require.Equal(t, "/start", resp.Redirects[0].Request.URI.Path)
	require.Equal(t, "/next", resp.Redirects[1].Request.URI.Path)
}

func TestSessionGetRedirectExhaustion(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		return fmt.Sprintf("HTTP/1.1 302 Found\r\nLocation: /hop%d\r\nContent-Length: 0\r\nConnection: close\r\n\r\n", n+1)
	})

	count := 2
	sess := &Session{}
	resp, err := sess.Get(RequestOptions{URL: "http://" + addr + "/hop0", RedirectCount: &count})
	require.NoError(t, err)
	require.NotNil(t, resp.Err)
	require.Equal(t, RedirectExhausted, resp.Err.Kind)
}

func TestSessionGetTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		readRequestHead(conn)
		time.Sleep(2 * time.Second)
	}()

	sess := &Session{}
	resp, err := sess.Get(RequestOptions{
		URL:     "http://" + ln.Addr().String() + "/",
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Err)
	require.Equal(t, Timeout, resp.Err.Kind)
}

func TestSessionGetThrowOnErrorReturnsErr(t *testing.T) {
	sess := &Session{}
	yes := true
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	fut := sess.AsyncSend(RequestOptions{
		URL:          "http://127.0.0.1:1/", // nothing listens here
		ThrowOnError: &yes,
		Timeout:      200 * time.Millisecond,
	})
	_, err := fut.Wait(ctx)
	require.Error(t, err)
}

func TestSessionReusesKeepAliveConnection(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		return "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nConnection: keep-alive\r\n\r\nok"
	})

	sess := &Session{}
	resp1, err := sess.Get(RequestOptions{URL: "http://" + addr + "/a"})
	require.NoError(t, err)
	require.Nil(t, resp1.Err)

	resp2, err := sess.Get(RequestOptions{URL: "http://" + addr + "/b"})
	require.NoError(t, err)
	require.Nil(t, resp2.Err)
	require.Equal(t, "ok", string(resp2.Raw))
}
