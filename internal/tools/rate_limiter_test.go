package tools

import (
	"testing"
	"time"
)

func TestNewToolRateLimiter_Disabled(t *testing.T) {
	if rl := NewToolRateLimiter(0); rl != nil {
		t.Errorf("expected nil limiter for maxPerHour=0, got %v", rl)
	}
	if rl := NewToolRateLimiter(-5); rl != nil {
		t.Errorf("expected nil limiter for negative max, got %v", rl)
	}
}

func TestToolRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewToolRateLimiter(5)
	for i := 0; i < 5; i++ {
		if err := rl.Allow("strand-1-aaaa"); err != nil {
			t.Errorf("call %d should be allowed: %v", i, err)
		}
	}
	if err := rl.Allow("strand-1-aaaa"); err == nil {
		t.Error("call over the limit should be blocked")
	}
}

func TestToolRateLimiter_SessionsAreIndependent(t *testing.T) {
	rl := NewToolRateLimiter(2)

	rl.Allow("strand-1-aaaa")
	rl.Allow("strand-1-aaaa")
	if err := rl.Allow("strand-1-aaaa"); err == nil {
		t.Error("first session should be blocked")
	}

	if err := rl.Allow("strand-2-bbbb"); err != nil {
		t.Errorf("second session should have its own window: %v", err)
	}
}

func TestToolRateLimiter_WindowExpiry(t *testing.T) {
	rl := &ToolRateLimiter{
		windows:  make(map[string][]time.Time),
		maxPerHr: 2,
		window:   100 * time.Millisecond,
	}

	rl.Allow("sess")
	rl.Allow("sess")
	if err := rl.Allow("sess"); err == nil {
		t.Error("should be blocked at the limit")
	}

	time.Sleep(150 * time.Millisecond)

	if err := rl.Allow("sess"); err != nil {
		t.Errorf("should be allowed after the window expires: %v", err)
	}
}

func TestToolRateLimiter_Cleanup(t *testing.T) {
	rl := &ToolRateLimiter{
		windows:  make(map[string][]time.Time),
		maxPerHr: 10,
		window:   50 * time.Millisecond,
	}

	rl.Allow("sess-a")
	rl.Allow("sess-b")

	time.Sleep(100 * time.Millisecond)
	rl.Cleanup()

	rl.mu.Lock()
	remaining := len(rl.windows)
	rl.mu.Unlock()
	if remaining != 0 {
		t.Errorf("cleanup should drop fully expired sessions, got %d", remaining)
	}
}

func TestToolRateLimiter_CleanupKeepsFreshEntries(t *testing.T) {
	rl := &ToolRateLimiter{
		windows:  make(map[string][]time.Time),
		maxPerHr: 10,
		window:   200 * time.Millisecond,
	}

	rl.Allow("sess") // will expire
	time.Sleep(100 * time.Millisecond)
	rl.Allow("sess") // still fresh at cleanup time

	time.Sleep(150 * time.Millisecond)
	rl.Cleanup()

	rl.mu.Lock()
	entries := len(rl.windows["sess"])
	rl.mu.Unlock()
	if entries != 1 {
		t.Errorf("expected the fresh entry to survive, got %d", entries)
	}
}
