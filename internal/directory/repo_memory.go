package directory

import (
	"context"
	"strings"
	"sync"
)

// MemoryDirectory is an in-memory Resolver for tests and single-box
// deployments. Production deployments back this with the condominium API.
type MemoryDirectory struct {
	presence Presence

	mu    sync.RWMutex
	units map[string]Unit
}

func NewMemoryDirectory(presence Presence) *MemoryDirectory {
	return &MemoryDirectory{
		presence: presence,
		units:    make(map[string]Unit),
	}
}

func (d *MemoryDirectory) PutUnit(u Unit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.units[u.Key] = u
}

// ResolveReceiver picks the receiving resident for a unit: the first active
// resident with a live connection, falling back to the first active resident
// so offline receivers can still be paged through the notification hook.
func (d *MemoryDirectory) ResolveReceiver(ctx context.Context, unitKey string) (string, error) {
	_ = ctx

	d.mu.RLock()
	u, ok := d.units[strings.TrimSpace(unitKey)]
	d.mu.RUnlock()
	if !ok {
		return "", ErrUnitNotFound
	}

	first := ""
	for _, res := range u.Residents {
		if !res.Active {
			continue
		}
		if first == "" {
			first = res.UserID
		}
		if d.presence != nil && d.presence.Online(res.UserID) {
			return res.UserID, nil
		}
	}
	if first == "" {
		return "", ErrNoResidents
	}
	return first, nil
}
