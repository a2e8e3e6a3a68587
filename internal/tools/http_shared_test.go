package tools

import (
	"strings"
	"testing"
)

func TestIsPrivateIP(t *testing.T) {
	private := []string{
		"127.0.0.1", "10.0.0.5", "172.16.1.1", "192.168.1.1",
		"169.254.169.254", "0.0.0.0", "::1", "fe80::1", "fd00::1",
	}
	for _, ip := range private {
		if !isPrivateIP(ip) {
			t.Errorf("%s should be private", ip)
		}
	}

	public := []string{"8.8.8.8", "1.1.1.1", "93.184.216.34", "2606:4700::1111"}
	for _, ip := range public {
		if isPrivateIP(ip) {
			t.Errorf("%s should be public", ip)
		}
	}
}

func TestIsBlockedHostname(t *testing.T) {
	blocked := []string{"localhost", "LOCALHOST", "metadata.google.internal"}
	for _, h := range blocked {
		if !isBlockedHostname(h) {
			t.Errorf("%s should be blocked", h)
		}
	}
	if isBlockedHostname("example.com") {
		t.Error("example.com should not be blocked")
	}
}

func TestCheckSSRF(t *testing.T) {
	bad := []string{
		"http://localhost/admin",
		"http://127.0.0.1:8080/",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]/",
		"http://app.internal/health",
		"http://foo.localhost/",
	}
	for _, u := range bad {
		if err := checkSSRF(u); err == nil {
			t.Errorf("checkSSRF(%q) should fail", u)
		}
	}

	if err := checkSSRF("http:///no-host"); err == nil {
		t.Error("URL without hostname should fail")
	}
}

func TestWrapExternalContent(t *testing.T) {
	wrapped := wrapExternalContent("some page text", "HTTP Request", true)
	if !strings.Contains(wrapped, externalContentStart) || !strings.Contains(wrapped, externalContentEnd) {
		t.Error("markers missing from wrapped content")
	}
	if !strings.Contains(wrapped, "some page text") {
		t.Error("content missing from wrapped output")
	}
}

func TestSanitizeMarkers(t *testing.T) {
	content := "before " + externalContentStart + " injected " + externalContentEnd + " after"
	out := sanitizeMarkers(content)
	if strings.Contains(out, externalContentStart) || strings.Contains(out, externalContentEnd) {
		t.Error("embedded markers should be stripped")
	}
	if !strings.Contains(out, "injected") {
		t.Error("surrounding text should survive")
	}
}

func TestFoldUnicode(t *testing.T) {
	// Fullwidth letters fold to ASCII so marker spoofing via homoglyphs fails.
	folded := foldUnicode("ＥＸＴＥＲＮＡＬ")
	if folded != "EXTERNAL" {
		t.Errorf("expected EXTERNAL, got %q", folded)
	}
	if foldUnicode("plain") != "plain" {
		t.Error("ascii should pass through unchanged")
	}
}

func TestTruncateStr(t *testing.T) {
	if got := truncateStr("short", 100); got != "short" {
		t.Errorf("unexpected truncation: %q", got)
	}
	long := strings.Repeat("x", 200)
	got := truncateStr(long, 50)
	if len(got) >= 200 {
		t.Error("long string should be truncated")
	}
}
