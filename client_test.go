package ahttp

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionCarriesCookiesAcrossRequests(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		if n == 1 {
			return "HTTP/1.1 200 OK\r\nSet-Cookie: sid=abc123; Path=/\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
		}
		return fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(req), req)
	})

	sess := &Session{}
	_, err := sess.Get(RequestOptions{URL: "http://" + addr + "/login"})
	require.NoError(t, err)

	resp, err := sess.Get(RequestOptions{URL: "http://" + addr + "/home"})
	require.NoError(t, err)
	require.True(t, strings.Contains(string(resp.Raw), "Cookie: sid=abc123"), "raw = %q", resp.Raw)
}

func TestSessionAsyncPostSetsMethod(t *testing.T) {
	addr := scriptedServer(t, func(n int, req string) string {
		return fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(req), req)
	})

	sess := &Session{}
	resp, err := sess.AsyncPost(RequestOptions{URL: "http://" + addr + "/", Body: []byte("x")}).Wait(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(resp.Raw), "POST / HTTP/1.1\r\n"), "raw = %q", resp.Raw)
}

func TestSessionPrepareErrorFailsFastWithoutDialing(t *testing.T) {
	sess := &Session{}
	_, err := sess.Get(RequestOptions{
		URL:     "http://example.com/",
		Headers: Header{"Bad Name": {"v"}},
	})
	require.Error(t, err)
}
