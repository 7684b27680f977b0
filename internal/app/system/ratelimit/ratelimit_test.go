package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheck_BlocksEmailAfterFiveAttempts(t *testing.T) {
	ll := NewLoginLimiter()

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("POST", "/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		if ok, _ := ll.Check(r, "Bob@Test.edu"); !ok {
			t.Fatalf("attempt %d blocked", i)
		}
	}

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.0.0.2:1234" // fresh IP, same account
	ok, reason := ll.Check(r, "bob@test.edu")
	if ok {
		t.Fatal("sixth attempt for the account was allowed")
	}
	if reason == "" {
		t.Error("blocked attempt carried no reason")
	}
}

func TestResetEmail_ReopensTheWindow(t *testing.T) {
	ll := NewLoginLimiter()

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("POST", "/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		ll.Check(r, "bob@test.edu")
	}
	ll.ResetEmail(" Bob@Test.edu ")

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	if ok, _ := ll.Check(r, "bob@test.edu"); !ok {
		t.Fatal("attempt blocked after reset")
	}
}

func TestCheck_BlocksIPAfterTenAttempts(t *testing.T) {
	ll := NewLoginLimiter()

	for i := 0; i < 10; i++ {
		r := httptest.NewRequest("POST", "/auth/login", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		// Distinct emails keep the per-account window out of play.
		if ok, _ := ll.Check(r, ""); !ok {
			t.Fatalf("attempt %d blocked", i)
		}
	}

	r := httptest.NewRequest("POST", "/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:9999" // same host, different source port
	if ok, _ := ll.Check(r, ""); ok {
		t.Fatal("eleventh attempt from the IP was allowed")
	}
}

func TestClientIP_PrefersProxyHeaders(t *testing.T) {
	cases := []struct {
		name       string
		xff, xri   string
		remoteAddr string
		want       string
	}{
		{"forwarded-for first hop", "203.0.113.7, 10.0.0.1", "", "10.0.0.2:80", "203.0.113.7"},
		{"real-ip fallback", "", "203.0.113.8", "10.0.0.2:80", "203.0.113.8"},
		{"remote addr strips port", "", "", "10.0.0.2:80", "10.0.0.2"},
		{"remote addr without port", "", "", "10.0.0.2", "10.0.0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				r.Header.Set("X-Real-IP", tc.xri)
			}
			if got := clientIP(r); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWindowExpires(t *testing.T) {
	l := newLimiter(1, 20*time.Millisecond)
	if !l.allow("k") {
		t.Fatal("first event blocked")
	}
	if l.allow("k") {
		t.Fatal("second event in the window allowed")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.allow("k") {
		t.Fatal("event after the window expired was blocked")
	}
}
