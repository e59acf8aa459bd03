package ahttp

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lucidhttp/ahttp/internal/cookiejar"
)

// Cookie is the public alias of the cookie jar's Cookie type, kept as
// an alias (rather than a parallel struct) so a *Cookie produced by
// internal/cookiejar never needs copying at the package boundary.
type Cookie = cookiejar.Cookie

// defaults applied by RequestOptions.prepare when a field is left at
// its zero value. Spelled out as named constants because spec.md §3
// calls them out as request-level caps, not machine-wide constants.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultStoreTimeout  = 5 * time.Second
	DefaultRedirectCount = 10
)

// RequestOptions accumulates request configuration as a single
// builder with optional fields (design note §9 "Option setters...
// compresses naturally into a single structured RequestOptions
// builder"), dispatched by field presence at prepare() time instead
// of a combinatorial set of typed setter methods.
type RequestOptions struct {
	// URL is a full absolute URL. If empty, Scheme/Host/Port/Path/Query
	// are combined instead.
	URL string

	Scheme string
	Host   string
	Port   int
	Path   string
	Query  string
	Params map[string]string // merged into Query; a Params key replaces the same key, and the query is re-encoded sorted by key

	Method  string
	Headers Header
	Body    []byte
	Auth    *Auth
	Cookies []*Cookie

	// BodyCallback, if set, receives every response body chunk as it
	// is parsed; the raw body is not accumulated on the Response when
	// set. It is called one final time with (nil, currentError) at
	// finalization to signal end-of-stream (spec.md §4.6 step 6).
	BodyCallback func(p []byte, err error)
	// FinalCallback, if set, is invoked once with the Response at
	// finalization, before the future is fulfilled. It runs before the
	// accumulated body is moved into Response.Raw, so Raw is still
	// empty when it is called.
	FinalCallback func(*Response)

	Redirect       *bool
	KeepAlive      *bool
	CacheRedirects *bool
	ThrowOnError   *bool
	Gzip           *bool

	Timeout       time.Duration
	StoreTimeout  time.Duration
	RedirectCount *int

	AlwaysVerifyPeer *bool
	VerifyPath       string
	VerifyFilename   string
	CertificateFile  string
	PrivateKeyFile   string
	SSLAuth          bool
	SSLCerts         string
}

// Request is the immutable, prepared form of a RequestOptions. It is
// never mutated after prepare() returns it (spec.md §3).
type Request struct {
	URI     *url.URL
	Method  string
	Header  Header
	Body    []byte
	Auth    *Auth
	Cookies []*Cookie

	Redirect       bool
	KeepAlive      bool
	CacheRedirects bool
	ThrowOnError   bool
	Gzip           bool

	Timeout       time.Duration
	StoreTimeout  time.Duration
	RedirectCount int

	AlwaysVerifyPeer bool
	VerifyPath       string
	VerifyFilename   string
	CertificateFile  string
	PrivateKeyFile   string
	SSLAuth          bool
	SSLCerts         string

	BodyCallback  func(p []byte, err error)
	FinalCallback func(*Response)
}

// prepare validates and normalizes o into an immutable *Request,
// applying defaults for every unset optional field.
func (o *RequestOptions) prepare() (*Request, error) {
	u, err := o.resolveURL()
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(o.Method)
	if method == "" {
		method = "GET"
	}
	hdr := o.Headers.clone()
	if hdr == nil {
		hdr = Header{}
	}
	if err := validateHeaders(hdr); err != nil {
		return nil, err
	}

	r := &Request{
		URI:              u,
		Method:           method,
		Header:           hdr,
		Body:             o.Body,
		Auth:             o.Auth,
		Cookies:          o.Cookies,
		Redirect:         boolOr(o.Redirect, true),
		KeepAlive:        boolOr(o.KeepAlive, true),
		CacheRedirects:   boolOr(o.CacheRedirects, false),
		ThrowOnError:     boolOr(o.ThrowOnError, false),
		Gzip:             boolOr(o.Gzip, false),
		Timeout:          durOr(o.Timeout, DefaultTimeout),
		StoreTimeout:     durOr(o.StoreTimeout, DefaultStoreTimeout),
		RedirectCount:    intOr(o.RedirectCount, DefaultRedirectCount),
		AlwaysVerifyPeer: boolOr(o.AlwaysVerifyPeer, true),
		VerifyPath:       o.VerifyPath,
		VerifyFilename:   o.VerifyFilename,
		CertificateFile:  o.CertificateFile,
		PrivateKeyFile:   o.PrivateKeyFile,
		SSLAuth:          o.SSLAuth,
		SSLCerts:         o.SSLCerts,
		BodyCallback:     o.BodyCallback,
		FinalCallback:    o.FinalCallback,
	}
	return r, nil
}

func (o *RequestOptions) resolveURL() (*url.URL, error) {
	if o.URL != "" {
		u, err := url.Parse(o.URL)
		if err != nil {
			return nil, fmt.Errorf("ahttp: invalid URL %q: %w", o.URL, err)
		}
		if u.Scheme == "" {
			u.Scheme = "http"
		}
		return mergeParams(u, o.Params), nil
	}
	scheme := o.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := o.Host
	if o.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, o.Port)
	}
	path := o.Path
	if path == "" {
		path = "/"
	}
	u := &url.URL{Scheme: scheme, Host: host, Path: path, RawQuery: o.Query}
	if host == "" {
		return nil, fmt.Errorf("ahttp: request has no host")
	}
	return mergeParams(u, o.Params), nil
}

func mergeParams(u *url.URL, params map[string]string) *url.URL {
	if len(params) == 0 {
		return u
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func durOr(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// rewriteURI returns a shallow copy of r with its URI replaced,
// sharing every other field. Used by redirect handling (spec.md
// §4.4 step 3, "rebuild the request (prepare) with the new URI").
func (r *Request) rewriteURI(u *url.URL) *Request {
	r2 := *r
	r2.URI = u
	return &r2
}
