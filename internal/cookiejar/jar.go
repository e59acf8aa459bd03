package cookiejar

import (
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar accumulates cookies across a session's requests, including
// across a redirect chain, so a cookie set by an earlier hop in the
// chain is replayed on later hops against the same registrable
// domain (original_source/crequests/session.cpp's cross-redirect
// cookie carry-over; see SPEC_FULL.md §4).
type Jar struct {
	mu      sync.Mutex
	entries map[string][]*Cookie // keyed by registrable domain (publicsuffix)
}

// New returns an empty Jar.
func New() *Jar {
	return &Jar{entries: make(map[string][]*Cookie)}
}

// SetCookies stamps any cookie missing a Domain/Path with origin's
// host/path (spec.md §4.2) and stores it under origin's registrable
// domain.
func (j *Jar) SetCookies(origin *url.URL, cookies []*Cookie) {
	if origin == nil || len(cookies) == 0 {
		return
	}
	key := registrableDomain(origin.Hostname())
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c.Domain == "" {
			c.Domain = origin.Hostname()
		}
		if c.Path == "" {
			c.Path = originPath(origin)
		}
		j.removeLocked(key, c.Name, c.Domain, c.Path)
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			continue // deletion cookie: dropped, not stored
		}
		j.entries[key] = append(j.entries[key], c)
	}
}

// Cookies returns every stored cookie whose Domain matches target's
// host (exact match or a superdomain within the same registrable
// domain) and whose Path is a prefix of target's path.
func (j *Jar) Cookies(target *url.URL) []*Cookie {
	if target == nil {
		return nil
	}
	key := registrableDomain(target.Hostname())
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*Cookie
	for _, c := range j.entries[key] {
		if !domainMatch(target.Hostname(), c.Domain) {
			continue
		}
		if !pathMatch(originPath(target), c.Path) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (j *Jar) removeLocked(key, name, domain, path string) {
	list := j.entries[key]
	for i := 0; i < len(list); i++ {
		if list[i].Name == name && list[i].Domain == domain && list[i].Path == path {
			j.entries[key] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// registrableDomain reduces host to its public-suffix-aware
// registrable domain, falling back to host itself for IPs and
// single-label hosts (e.g. "localhost") where publicsuffix has
// nothing to strip.
func registrableDomain(host string) string {
	if host == "" {
		return host
	}
	if !strings.Contains(host, ".") || net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

func domainMatch(host, cookieDomain string) bool {
	host = strings.ToLower(host)
	cookieDomain = strings.ToLower(cookieDomain)
	if host == cookieDomain {
		return true
	}
	return strings.HasSuffix(host, "."+cookieDomain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if reqPath == cookiePath {
		return true
	}
	if strings.HasPrefix(reqPath, cookiePath) {
		if strings.HasSuffix(cookiePath, "/") {
			return true
		}
		return len(reqPath) > len(cookiePath) && reqPath[len(cookiePath)] == '/'
	}
	return false
}

func originPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
