// Package ahttp is a small asynchronous HTTP/1.1 client library.
//
// It accepts a structured request description (URL, method, headers,
// body, auth, TLS parameters, redirect policy, timeouts, callbacks)
// through RequestOptions and yields a *Future that eventually
// resolves to a *Response, either parsed successfully or carrying a
// categorized protocol/transport *Error.
//
// The heart of the package is Connection, a per-request state machine
// that drives resolve -> connect -> TLS handshake -> write request ->
// read status -> read headers -> read body -> redirect-or-complete,
// one step at a time, serialized on a per-connection actor (see
// internal/actor) so that no locking is needed inside a single
// connection's lifetime.
//
// Quick start:
//
//	s := &ahttp.Session{}
//	fut := s.AsyncGet(ahttp.RequestOptions{URL: "http://127.0.0.1:8080/"})
//	res, err := fut.Wait(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.StatusCode, string(res.Raw))
package ahttp
