package ahttp

import (
	"fmt"
	"strings"
)

// Auth is a login/password credential pair, serialized on the wire as
// HTTP Basic auth (spec.md §6 "Auth literal").
type Auth struct {
	Login    string
	Password string
}

// ParseAuth parses s in the form "login:password", splitting on the
// first colon only, so a password containing colons survives intact
// (grounded on original_source/crequests/auth.cpp). Malformed input
// (no colon) is a hard parse error.
func ParseAuth(s string) (Auth, error) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return Auth{}, fmt.Errorf("ahttp: invalid auth literal %q: missing ':'", s)
	}
	return Auth{Login: s[:i], Password: s[i+1:]}, nil
}

// String renders a back into "login:password" form. Round-trips with
// ParseAuth: ParseAuth(a.String()) == a for any Auth produced by
// ParseAuth.
func (a Auth) String() string {
	return a.Login + ":" + a.Password
}

func (a Auth) isZero() bool {
	return a.Login == "" && a.Password == ""
}
