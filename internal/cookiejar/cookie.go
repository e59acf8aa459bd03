// Package cookiejar parses Set-Cookie header values and accumulates
// them per origin, matching cookies back against request targets
// using the public suffix list so that a cookie set by one host on a
// redirect chain is not replayed against an unrelated domain.
package cookiejar

import (
	"strconv"
	"strings"
	"time"
)

// Cookie is a single parsed Set-Cookie value, stamped with the origin
// domain and path it was received under (spec.md §4.2).
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	Raw      string
}

// ParseSetCookie parses a single Set-Cookie header value. It never
// fails on attribute-level issues (unknown/garbled attributes are
// dropped silently, following most browser/server cookie parsers);
// it only fails if the leading "name=value" pair itself is missing.
func ParseSetCookie(raw string) (*Cookie, error) {
	parts := strings.Split(raw, ";")
	if len(parts) == 0 {
		return nil, errEmptyCookie
	}
	nv := strings.TrimSpace(parts[0])
	i := strings.IndexByte(nv, '=')
	if i <= 0 {
		return nil, errEmptyCookie
	}
	c := &Cookie{
		Name:  strings.TrimSpace(nv[:i]),
		Value: strings.TrimSpace(nv[i+1:]),
		Raw:   raw,
	}
	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		var k, v string
		if j := strings.IndexByte(attr, '='); j >= 0 {
			k = strings.ToLower(strings.TrimSpace(attr[:j]))
			v = strings.TrimSpace(attr[j+1:])
		} else {
			k = strings.ToLower(attr)
		}
		switch k {
		case "domain":
			c.Domain = strings.TrimPrefix(v, ".")
		case "path":
			c.Path = v
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		case "max-age":
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAge = n
			}
		case "expires":
			for _, layout := range cookieTimeLayouts {
				if t, err := time.Parse(layout, v); err == nil {
					c.Expires = t
					break
				}
			}
		}
	}
	return c, nil
}

var cookieTimeLayouts = []string{
	time.RFC1123,
	"Mon, 02-Jan-2006 15:04:05 MST",
	time.ANSIC,
}

type cookieError string

func (e cookieError) Error() string { return string(e) }

const errEmptyCookie cookieError = "cookiejar: malformed Set-Cookie value"
