package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Directory maps a user to at most one live connection. The latest bind
// wins; it is process memory only and is empty after a restart.
type Directory struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]string
}

func NewDirectory() *Directory {
	return &Directory{conns: make(map[uuid.UUID]string)}
}

func (d *Directory) Bind(userID uuid.UUID, connID string) {
	d.mu.Lock()
	d.conns[userID] = connID
	d.mu.Unlock()
}

func (d *Directory) Unbind(userID uuid.UUID) {
	d.mu.Lock()
	delete(d.conns, userID)
	d.mu.Unlock()
}

// Release removes the binding only while it still points at connID, so a
// stale connection closing after a reconnect leaves the new binding intact.
func (d *Directory) Release(userID uuid.UUID, connID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if current, ok := d.conns[userID]; ok && current == connID {
		delete(d.conns, userID)
		return true
	}
	return false
}

func (d *Directory) Lookup(userID uuid.UUID) (string, bool) {
	d.mu.RLock()
	connID, ok := d.conns[userID]
	d.mu.RUnlock()
	return connID, ok
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}
