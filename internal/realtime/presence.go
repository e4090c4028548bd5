package realtime

import "sync"

// PresenceRegistry maps authenticated user ids to their active connection id.
// It is the source of truth for "who is online". At most one connection id is
// held per user; a reconnect overwrites the previous entry (last-write-wins).
// The registry holds no network state.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{entries: make(map[string]string)}
}

// Add records or overwrites the mapping for the user and returns the replaced
// connection id, if any, so the caller can tear the stale connection down.
func (p *PresenceRegistry) Add(userID, connectionID string) (previous string, replaced bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous, replaced = p.entries[userID]
	p.entries[userID] = connectionID
	if replaced && previous == connectionID {
		replaced = false
	}
	return previous, replaced
}

// Remove deletes the user's mapping unconditionally. No-op if absent.
func (p *PresenceRegistry) Remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, userID)
}

// RemoveConnection deletes the mapping only if it still points at the given
// connection id. A connection that was replaced by a reconnect must not evict
// its successor's entry when it finally disconnects.
func (p *PresenceRegistry) RemoveConnection(userID, connectionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.entries[userID]; ok && current == connectionID {
		delete(p.entries, userID)
		return true
	}
	return false
}

func (p *PresenceRegistry) Has(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[userID]
	return ok
}

func (p *PresenceRegistry) ConnectionID(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.entries[userID]
	return id, ok
}

// OnlineUserIDs returns the current key set in unspecified order.
func (p *PresenceRegistry) OnlineUserIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.entries))
	for userID := range p.entries {
		ids = append(ids, userID)
	}
	return ids
}
