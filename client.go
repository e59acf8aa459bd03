package ahttp

import (
	"context"
	"net/url"
	"sync"

	"github.com/lucidhttp/ahttp/internal/cookiejar"
	"github.com/lucidhttp/ahttp/internal/obs"
)

// Session is the package's façade (spec.md §4.5/§6.7): it accumulates
// a cookie jar and a pool of keep-alive connections across many
// requests, deciding per request whether to hand a fresh Connection a
// previously kept-open stream to reuse. A zero-value *Session is
// ready to use.
type Session struct {
	Logger obs.Logger
	Meter  obs.Meter

	mu        sync.Mutex
	pool      map[string]*Connection
	jar       *cookiejar.Jar
	redirects map[string]*url.URL // original URI -> last-observed final URI, keyed when CacheRedirects is set
}

// connKey groups connections for reuse by scheme and authority only
// (spec.md §4.5): two requests to the same host:port, even with
// different paths, may share one kept-alive socket.
func connKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

func (s *Session) jarOrCreate() *cookiejar.Jar {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jar == nil {
		s.jar = cookiejar.New()
	}
	return s.jar
}

// AsyncSend prepares opts into a Request, attaches a pooled
// connection if one is available to reuse, and starts the resulting
// Connection, returning immediately with its Future (spec.md §3).
func (s *Session) AsyncSend(opts RequestOptions) *Future {
	req, err := opts.prepare()
	if err != nil {
		return failedFuture(err)
	}

	if req.CacheRedirects {
		if cached := s.cachedRedirect(req.URI); cached != nil {
			req = req.rewriteURI(cached)
		}
	}

	key := connKey(req.URI)
	s.mu.Lock()
	s.ensurePool()
	prev := s.pool[key]
	delete(s.pool, key)
	s.mu.Unlock()

	conn := NewConnection(req, s.jarOrCreate(), s.Logger, s.Meter)
	if prev != nil {
		conn.Reuse(prev)
	}
	originalTarget := opts.originalURL(req)
	conn.onFinal = func(fc *Connection) { s.onConnectionFinal(key, fc, originalTarget) }
	return conn.Start()
}

// Send is AsyncSend followed by an unbounded Wait; convenient for
// callers that do not need to overlap requests.
func (s *Session) Send(opts RequestOptions) (*Response, error) {
	return s.AsyncSend(opts).Wait(context.Background())
}

func (s *Session) onConnectionFinal(key string, fc *Connection, originalTarget *url.URL) {
	if fc.req.CacheRedirects && len(fc.resp.Redirects) > 0 {
		s.mu.Lock()
		if s.redirects == nil {
			s.redirects = make(map[string]*url.URL)
		}
		s.redirects[originalTarget.String()] = fc.resp.Request.URI
		s.mu.Unlock()
	}
	if fc.keptOpen() {
		s.mu.Lock()
		s.pool[key] = fc
		s.mu.Unlock()
	}
}

func (s *Session) cachedRedirect(original *url.URL) *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redirects == nil {
		return nil
	}
	return s.redirects[original.String()]
}

func failedFuture(err error) *Future {
	f := newFuture()
	f.fulfill(nil, err)
	return f
}

// originalURL resolves opts the same way prepare() did, so the
// redirect cache is keyed on the caller's original target rather than
// on whatever req.URI already became after cache substitution.
func (o *RequestOptions) originalURL(prepared *Request) *url.URL {
	if u, err := o.resolveURL(); err == nil {
		return u
	}
	return prepared.URI
}

// ensurePool lazily allocates the connection pool map on first use so
// a zero-value *Session is ready to use without a constructor. Caller
// must hold s.mu.
func (s *Session) ensurePool() {
	if s.pool == nil {
		s.pool = make(map[string]*Connection)
	}
}

func (s *Session) AsyncGet(opts RequestOptions) *Future    { return s.asyncMethod("GET", opts) }
func (s *Session) AsyncPost(opts RequestOptions) *Future   { return s.asyncMethod("POST", opts) }
func (s *Session) AsyncPut(opts RequestOptions) *Future    { return s.asyncMethod("PUT", opts) }
func (s *Session) AsyncPatch(opts RequestOptions) *Future  { return s.asyncMethod("PATCH", opts) }
func (s *Session) AsyncDelete(opts RequestOptions) *Future { return s.asyncMethod("DELETE", opts) }
func (s *Session) AsyncHead(opts RequestOptions) *Future   { return s.asyncMethod("HEAD", opts) }

func (s *Session) asyncMethod(method string, opts RequestOptions) *Future {
	opts.Method = method
	return s.AsyncSend(opts)
}

func (s *Session) Get(opts RequestOptions) (*Response, error) {
	return s.AsyncGet(opts).Wait(context.Background())
}
func (s *Session) Post(opts RequestOptions) (*Response, error) {
	return s.AsyncPost(opts).Wait(context.Background())
}
func (s *Session) Put(opts RequestOptions) (*Response, error) {
	return s.AsyncPut(opts).Wait(context.Background())
}
func (s *Session) Patch(opts RequestOptions) (*Response, error) {
	return s.AsyncPatch(opts).Wait(context.Background())
}
func (s *Session) Delete(opts RequestOptions) (*Response, error) {
	return s.AsyncDelete(opts).Wait(context.Background())
}
func (s *Session) Head(opts RequestOptions) (*Response, error) {
	return s.AsyncHead(opts).Wait(context.Background())
}
