package ahttp

import "net/textproto"

// Header is a MIME-style header map, canonicalized the way the
// teacher's httpx.Header was (kept verbatim: this is generic
// ambient infrastructure, not domain logic that needed adapting).
type Header map[string][]string

func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	if vv, ok := h[k]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

func (h Header) Set(key, value string) {
	if h == nil {
		return
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	h[k] = []string{value}
}

func (h Header) Add(key, value string) {
	if h == nil {
		return
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	h[k] = append(h[k], value)
}

func (h Header) Del(key string) {
	if h == nil {
		return
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	delete(h, k)
}

func (h Header) has(key, value string) bool {
	for _, v := range h[textproto.CanonicalMIMEHeaderKey(key)] {
		if equalFold(v, value) {
			return true
		}
	}
	return false
}

func (h Header) clone() Header {
	if h == nil {
		return nil
	}
	h2 := make(Header, len(h))
	for k, vv := range h {
		cp := make([]string, len(vv))
		copy(cp, vv)
		h2[k] = cp
	}
	return h2
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
