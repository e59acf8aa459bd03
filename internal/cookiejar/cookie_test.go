package cookiejar

import "testing"

func TestParseSetCookie(t *testing.T) {
	c, err := ParseSetCookie("sid=abc123; Domain=example.com; Path=/app; Secure; HttpOnly; Max-Age=3600")
	if err != nil {
		t.Fatalf("ParseSetCookie: %v", err)
	}
	if c.Name != "sid" || c.Value != "abc123" {
		t.Fatalf("name/value = %q/%q", c.Name, c.Value)
	}
	if c.Domain != "example.com" || c.Path != "/app" {
		t.Fatalf("domain/path = %q/%q", c.Domain, c.Path)
	}
	if !c.Secure || !c.HttpOnly || c.MaxAge != 3600 {
		t.Fatalf("flags/maxage = %v/%v/%d", c.Secure, c.HttpOnly, c.MaxAge)
	}
}

func TestParseSetCookieStripsLeadingDotFromDomain(t *testing.T) {
	c, err := ParseSetCookie("a=b; Domain=.example.com")
	if err != nil {
		t.Fatalf("ParseSetCookie: %v", err)
	}
	if c.Domain != "example.com" {
		t.Fatalf("domain = %q, want example.com", c.Domain)
	}
}

func TestParseSetCookieMalformed(t *testing.T) {
	if _, err := ParseSetCookie("nameonly"); err == nil {
		t.Fatal("expected error for missing '='")
	}
}

func TestParseSetCookieIgnoresUnknownAttributes(t *testing.T) {
	c, err := ParseSetCookie("a=b; SameSite=Lax; Priority=High")
	if err != nil {
		t.Fatalf("ParseSetCookie: %v", err)
	}
	if c.Name != "a" || c.Value != "b" {
		t.Fatalf("name/value = %q/%q", c.Name, c.Value)
	}
}
