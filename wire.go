package ahttp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// buildRequestBytes renders r into HTTP/1.1 wire bytes: request line,
// headers (Host, Authorization, Cookie, caller headers,
// Accept-Encoding when Gzip is set, Connection, Content-Length), blank
// line, body. spec.md §1 lists "request
// serialization" as an out-of-scope external collaborator; since no
// pack repo ships a standalone request-serialization dependency, this
// is the in-repo stand-in, written the way
// dqx0-protocols/httpx/transport.go builds a request inline with
// fmt.Fprintf rather than via net/http.
func buildRequestBytes(r *Request, cookies []*Cookie) []byte {
	var b bytes.Buffer
	path := r.URI.RequestURI()
	if path == "" {
		path = "/"
	}
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", r.Method, path)

	host := r.Header.Get("Host")
	if host == "" {
		host = r.URI.Host
	}
	fmt.Fprintf(&b, "Host: %s\r\n", host)

	if r.Auth != nil && !r.Auth.isZero() {
		fmt.Fprintf(&b, "Authorization: Basic %s\r\n", basicAuth(r.Auth.Login, r.Auth.Password))
	}

	if c := cookieHeaderValue(cookies); c != "" {
		fmt.Fprintf(&b, "Cookie: %s\r\n", c)
	}

	for k, vv := range r.Header {
		if equalFold(k, "Host") || equalFold(k, "Connection") || equalFold(k, "Content-Length") {
			continue
		}
		for _, v := range vv {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}

	if r.Gzip && r.Header.Get("Accept-Encoding") == "" {
		fmt.Fprint(&b, "Accept-Encoding: gzip\r\n")
	}

	if r.KeepAlive {
		fmt.Fprint(&b, "Connection: keep-alive\r\n")
	} else {
		fmt.Fprint(&b, "Connection: close\r\n")
	}

	if len(r.Body) > 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(r.Body))
	}

	fmt.Fprint(&b, "\r\n")

	if len(r.Body) > 0 {
		b.Write(r.Body)
	}

	return b.Bytes()
}

func cookieHeaderValue(cookies []*Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func basicAuth(login, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(login + ":" + password))
}
