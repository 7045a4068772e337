package registry

import (
	"log/slog"
	"sync"

	"github.com/niggl1/interfoneapp/internal/auth"
)

// Registry is the process-local mapping between live signaling connections
// and the identities behind them. Users may hold several connections at once
// (one per device); a visitor holds at most one. Entries are created on
// connect and destroyed on disconnect, never persisted.
//
// The registry is an injected instance created at process startup; it holds
// no ownership over call records.
type Registry struct {
	log *slog.Logger

	mu       sync.RWMutex
	sockets  map[string]auth.Identity       // socket id -> identity
	users    map[string]map[string]struct{} // user id -> socket ids
	visitors map[string]string              // visitor id -> socket id
}

func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:      log,
		sockets:  make(map[string]auth.Identity),
		users:    make(map[string]map[string]struct{}),
		visitors: make(map[string]string),
	}
}

// Register binds a socket to an identity. A user socket joins the user's
// personal delivery set; a visitor's previous socket (if any) is displaced,
// keeping the single-connection-per-visitor invariant.
func (r *Registry) Register(socketID string, id auth.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sockets[socketID] = id

	if id.IsUser() {
		set, ok := r.users[id.UserID]
		if !ok {
			set = make(map[string]struct{})
			r.users[id.UserID] = set
		}
		set[socketID] = struct{}{}
		r.log.Debug("socket registered", "socket_id", socketID, "user_id", id.UserID, "devices", len(set))
		return
	}

	if old, ok := r.visitors[id.VisitorID]; ok && old != socketID {
		delete(r.sockets, old)
	}
	r.visitors[id.VisitorID] = socketID
	r.log.Debug("socket registered", "socket_id", socketID, "visitor_id", id.VisitorID)
}

// Unregister removes a socket from every index. The second result reports
// whether this was the identity's last connection, i.e. the user or visitor
// just went offline.
func (r *Registry) Unregister(socketID string) (auth.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.sockets[socketID]
	if !ok {
		return auth.Identity{}, false
	}
	delete(r.sockets, socketID)

	if id.IsUser() {
		set := r.users[id.UserID]
		delete(set, socketID)
		if len(set) > 0 {
			return id, false
		}
		delete(r.users, id.UserID)
		r.log.Debug("user offline", "user_id", id.UserID)
		return id, true
	}

	// A displaced visitor socket must not tear down the replacement.
	if cur, ok := r.visitors[id.VisitorID]; ok && cur == socketID {
		delete(r.visitors, id.VisitorID)
		return id, true
	}
	return id, false
}

// IdentityFor answers "who is this socket".
func (r *Registry) IdentityFor(socketID string) (auth.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sockets[socketID]
	return id, ok
}

// ConnectionsFor returns every live socket of a user.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// ConnectionFor returns a visitor's socket, if connected.
func (r *Registry) ConnectionFor(visitorID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.visitors[visitorID]
	return s, ok
}

// ConnectionsForKey resolves an identity key (user id or visitor id) to its
// live sockets, whichever kind it is.
func (r *Registry) ConnectionsForKey(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if set, ok := r.users[key]; ok {
		out := make([]string, 0, len(set))
		for s := range set {
			out = append(out, s)
		}
		return out
	}
	if s, ok := r.visitors[key]; ok {
		return []string{s}
	}
	return nil
}

// Online reports whether a user has at least one live connection.
// Satisfies the session manager's presence dependency.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// Drain empties every index at shutdown and returns the socket ids that
// were still connected so the transport can close them.
func (r *Registry) Drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.sockets))
	for s := range r.sockets {
		out = append(out, s)
	}
	r.sockets = make(map[string]auth.Identity)
	r.users = make(map[string]map[string]struct{})
	r.visitors = make(map[string]string)
	return out
}
