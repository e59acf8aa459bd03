package ahttp

import "testing"

func TestParseAuth(t *testing.T) {
	cases := []struct {
		in      string
		login   string
		pass    string
		wantErr bool
	}{
		{"alice:secret", "alice", "secret", false},
		{"alice:pass:with:colons", "alice", "pass:with:colons", false},
		{"alice:", "alice", "", false},
		{":secret", "", "secret", false},
		{"noseparator", "", "", true},
	}
	for _, c := range cases {
		a, err := ParseAuth(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseAuth(%q): expected error, got nil", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAuth(%q): unexpected error: %v", c.in, err)
		}
		if a.Login != c.login || a.Password != c.pass {
			t.Fatalf("ParseAuth(%q) = %+v, want login=%q password=%q", c.in, a, c.login, c.pass)
		}
	}
}

func TestAuthStringRoundTrip(t *testing.T) {
	a := Auth{Login: "bob", Password: "hunter2"}
	a2, err := ParseAuth(a.String())
	if err != nil {
		t.Fatalf("ParseAuth(a.String()): %v", err)
	}
	if a2 != a {
		t.Fatalf("round trip = %+v, want %+v", a2, a)
	}
}

func TestAuthIsZero(t *testing.T) {
	if !(Auth{}).isZero() {
		t.Fatal("zero Auth should be isZero")
	}
	if (Auth{Login: "x"}).isZero() {
		t.Fatal("non-empty Auth should not be isZero")
	}
}
