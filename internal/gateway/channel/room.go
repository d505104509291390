// Package channel implements C5: the bidirectional event channel
// gateway. It is original wiring on top of gorilla/websocket (see
// SPEC_FULL.md §4.5a) — no example in this codebase's ecosystem ships
// a ready-made rooms+acks abstraction, so the room registry, ack
// handle, and dispatch loop below are built directly on the raw
// connection, following the "explicit guard / explicit handle" idiom
// spec §9's Design Notes call for.
package channel

import "sync"

// room is the unordered set of live connections for one tenant.
type room struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

func newRoom() *room {
	return &room{conns: make(map[*Conn]struct{})}
}

func (r *room) join(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

func (r *room) leave(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c)
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// members returns a snapshot of live connections, optionally excluding
// one sender, per spec §4.5's room semantics.
func (r *room) members(exclude *Conn) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		if c == exclude {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Hub owns every tenant room. Its lifetime is the server's lifetime,
// per spec §9's "process-wide singleton with explicit init" guidance
// for the room registry.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

func (h *Hub) roomFor(tenantID string) *room {
	h.mu.RLock()
	r, ok := h.rooms[tenantID]
	h.mu.RUnlock()
	if ok {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok = h.rooms[tenantID]; ok {
		return r
	}
	r = newRoom()
	h.rooms[tenantID] = r
	return r
}

// Join adds c to its tenant's room.
func (h *Hub) Join(c *Conn) {
	h.roomFor(c.identity.TenantID).join(c)
}

// Leave removes c from its tenant's room, per spec §5's cancellation
// rule: removal must happen before the next broadcast enumeration.
func (h *Hub) Leave(c *Conn) {
	h.roomFor(c.identity.TenantID).leave(c)
}

// RoomSize reports the live connection count for a tenant. It is not
// exported as a metric.
func (h *Hub) RoomSize(tenantID string) int {
	return h.roomFor(tenantID).size()
}
