package realtime

import "testing"

func TestPresenceAddAndLookup(t *testing.T) {
	p := NewPresenceRegistry()

	if _, replaced := p.Add("1", "conn-a"); replaced {
		t.Fatal("first add must not report a replacement")
	}
	if !p.Has("1") {
		t.Fatal("expected user 1 online")
	}
	if id, ok := p.ConnectionID("1"); !ok || id != "conn-a" {
		t.Fatalf("expected conn-a, got %q %v", id, ok)
	}
}

func TestPresenceReconnectOverwrites(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("1", "conn-a")

	previous, replaced := p.Add("1", "conn-b")
	if !replaced || previous != "conn-a" {
		t.Fatalf("expected replacement of conn-a, got %q %v", previous, replaced)
	}
	if id, _ := p.ConnectionID("1"); id != "conn-b" {
		t.Fatalf("expected conn-b to win, got %q", id)
	}
}

func TestPresenceSameConnectionIsNotReplacement(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("1", "conn-a")

	if _, replaced := p.Add("1", "conn-a"); replaced {
		t.Fatal("re-adding the same connection must not report a replacement")
	}
}

func TestPresenceRemoveConnectionConditional(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("1", "conn-a")
	p.Add("1", "conn-b")

	// The replaced connection's late teardown must not evict its successor.
	if p.RemoveConnection("1", "conn-a") {
		t.Fatal("stale connection must not remove the current mapping")
	}
	if !p.Has("1") {
		t.Fatal("expected user 1 still online")
	}

	if !p.RemoveConnection("1", "conn-b") {
		t.Fatal("expected current connection to remove the mapping")
	}
	if p.Has("1") {
		t.Fatal("expected user 1 offline")
	}
}

func TestPresenceRemoveUnconditional(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("1", "conn-a")

	p.Remove("1")
	p.Remove("1") // no-op when absent

	if p.Has("1") {
		t.Fatal("expected user 1 offline")
	}
}

func TestPresenceOnlineUserIDs(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add("1", "conn-a")
	p.Add("2", "conn-b")
	p.Add("1", "conn-c") // reconnect must not duplicate the user

	ids := p.OnlineUserIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 online users, got %v", ids)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["1"] || !seen["2"] {
		t.Fatalf("expected users 1 and 2, got %v", ids)
	}
}
