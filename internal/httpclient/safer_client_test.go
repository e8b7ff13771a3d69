package httpclient

import (
	"net"
	"net/http"
	"testing"
	"time"
)

func TestValidateURLSchemes(t *testing.T) {
	c := New(10 * time.Second)

	if _, err := c.ValidateURL("https://example.com/search"); err != nil {
		t.Errorf("https URL should be allowed: %v", err)
	}
	if _, err := c.ValidateURL("ftp://example.com/file"); err == nil {
		t.Error("ftp scheme should be blocked")
	}
	if _, err := c.ValidateURL("file:///etc/passwd"); err == nil {
		t.Error("file scheme should be blocked")
	}
}

func TestValidateURLBlocksLocalhost(t *testing.T) {
	c := New(10 * time.Second)

	blocked := []string{
		"http://localhost/admin",
		"http://localhost.localdomain/",
		"http://foo.localhost/",
		"http://127.0.0.1:8080/",
		"http://10.0.0.5/",
		"http://192.168.1.1/",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/",
	}
	for _, u := range blocked {
		if _, err := c.ValidateURL(u); err == nil {
			t.Errorf("%s should be blocked", u)
		}
	}
}

func TestValidateURLBlocksUserinfo(t *testing.T) {
	c := New(10 * time.Second)
	if _, err := c.ValidateURL("http://evil.com@localhost/"); err == nil {
		t.Error("URL with userinfo should be blocked")
	}
}

func TestIsBlockedIP(t *testing.T) {
	cases := []struct {
		ip      string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.0.1", true},
		{"169.254.169.254", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"240.0.0.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"::1", true},
		{"fe80::1", true},
		{"fc00::1", true},
		{"2001:db8::1", true},
		{"2606:4700:4700::1111", false},
	}
	for _, tc := range cases {
		ip := net.ParseIP(tc.ip)
		if ip == nil {
			t.Fatalf("bad test IP %q", tc.ip)
		}
		if got := isBlockedIP(ip); got != tc.blocked {
			t.Errorf("isBlockedIP(%s) = %v, want %v", tc.ip, got, tc.blocked)
		}
	}
}

func TestWrapClientAllowsLocalhost(t *testing.T) {
	c := WrapClient(&http.Client{})
	if _, err := c.ValidateURL("http://127.0.0.1:9999/test"); err != nil {
		t.Errorf("wrapped test client should allow localhost: %v", err)
	}
}
