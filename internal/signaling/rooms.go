package signaling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomPeerTTL = 24 * time.Hour

// Rooms tracks call-room membership: the transient broadcast group of
// sockets currently inside a call. Membership is independent of call state;
// joining or leaving never touches the call record.
//
// When a Redis client is supplied, membership is mirrored into
// call:<id>:peers sets so external observers can see room occupancy; the
// mirror is informational and never consulted for routing.
type Rooms struct {
	log *slog.Logger
	rdb *redis.Client

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRooms(log *slog.Logger, rdb *redis.Client) *Rooms {
	if log == nil {
		log = slog.Default()
	}
	return &Rooms{
		log:   log,
		rdb:   rdb,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join adds a client to a call room. Idempotent: re-joining reports false
// and changes nothing, so no duplicate membership broadcasts happen.
func (r *Rooms) Join(ctx context.Context, c *Client, callID string) bool {
	r.mu.Lock()
	room, ok := r.rooms[callID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[callID] = room
	}
	if _, member := room[c]; member {
		r.mu.Unlock()
		return false
	}
	room[c] = struct{}{}
	r.mu.Unlock()

	if r.rdb != nil {
		key := "call:" + callID + ":peers"
		if err := r.rdb.SAdd(ctx, key, c.ID).Err(); err != nil {
			r.log.Warn("room mirror sadd failed", "call_id", callID, "err", err)
		}
		_ = r.rdb.Expire(ctx, key, roomPeerTTL).Err()
	}
	return true
}

// Leave removes a client from a call room. Idempotent; empty rooms are
// discarded.
func (r *Rooms) Leave(ctx context.Context, c *Client, callID string) bool {
	r.mu.Lock()
	room, ok := r.rooms[callID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, member := room[c]; !member {
		r.mu.Unlock()
		return false
	}
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, callID)
	}
	r.mu.Unlock()

	if r.rdb != nil {
		if err := r.rdb.SRem(ctx, "call:"+callID+":peers", c.ID).Err(); err != nil {
			r.log.Warn("room mirror srem failed", "call_id", callID, "err", err)
		}
	}
	return true
}

// LeaveAll removes a client from every room it occupies, returning the call
// ids it left. Used on disconnect.
func (r *Rooms) LeaveAll(ctx context.Context, c *Client) []string {
	r.mu.Lock()
	var left []string
	for callID, room := range r.rooms {
		if _, member := room[c]; !member {
			continue
		}
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, callID)
		}
		left = append(left, callID)
	}
	r.mu.Unlock()

	if r.rdb != nil {
		for _, callID := range left {
			_ = r.rdb.SRem(ctx, "call:"+callID+":peers", c.ID).Err()
		}
	}
	return left
}

// Members returns the current occupants of a call room.
func (r *Rooms) Members(callID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[callID]
	out := make([]*Client, 0, len(room))
	for c := range room {
		out = append(out, c)
	}
	return out
}

// Contains reports whether a client is inside a call room.
func (r *Rooms) Contains(c *Client, callID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[callID][c]
	return ok
}

// Broadcast sends an envelope to every room member except the sender.
func (r *Rooms) Broadcast(callID string, except *Client, env Envelope) {
	for _, member := range r.Members(callID) {
		if member != except {
			member.Send(env)
		}
	}
}
