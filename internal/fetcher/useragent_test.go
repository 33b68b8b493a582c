package fetcher

import "testing"

// TestUserAgentPool_Rotation tests round-robin behavior.
func TestUserAgentPool_Rotation(t *testing.T) {
	t.Parallel()

	pool := NewUserAgentPool("")

	first := pool.Next()
	if first != userAgents[0] {
		t.Errorf("expected first agent %q, got %q", userAgents[0], first)
	}

	seen := map[string]bool{first: true}
	for i := 1; i < len(userAgents); i++ {
		seen[pool.Next()] = true
	}
	if len(seen) != len(userAgents) {
		t.Errorf("expected %d distinct agents in one cycle, got %d", len(userAgents), len(seen))
	}

	// Second cycle starts over
	if got := pool.Next(); got != userAgents[0] {
		t.Errorf("expected rotation to wrap to %q, got %q", userAgents[0], got)
	}
}

// TestUserAgentPool_FixedOverride tests that a fixed agent disables rotation.
func TestUserAgentPool_FixedOverride(t *testing.T) {
	t.Parallel()

	pool := NewUserAgentPool("custom-agent/1.0")

	for i := 0; i < 3; i++ {
		if got := pool.Next(); got != "custom-agent/1.0" {
			t.Errorf("expected fixed agent, got %q", got)
		}
	}
}

// TestUserAgentPool_AllBrowserIdentities tests the pool contents look
// like desktop browsers.
func TestUserAgentPool_AllBrowserIdentities(t *testing.T) {
	t.Parallel()

	if len(userAgents) == 0 {
		t.Fatal("expected a non-empty default pool")
	}
	for _, ua := range userAgents {
		if len(ua) == 0 {
			t.Error("empty user agent in pool")
		}
	}
}
