package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Reserved room names. Connections are auto-joined to their user room on
// authenticated connect; the admin room is gated by role at the handler
// layer.
const (
	AdminRoom = "admin"
)

// OrderRoom returns the room name scoping updates for a single order.
func OrderRoom(orderID string) string { return "order:" + orderID }

// ProductRoom returns the room name scoping updates for a single product.
func ProductRoom(productID string) string { return "product:" + productID }

// UserRoom returns the personal room name for a user id.
func UserRoom(userID string) string { return "user:" + userID }

// Rooms tracks named groups of connection ids. A room exists exactly while
// it has members; membership is mutated only through Join, Leave, and
// Cleanup. All methods are safe for concurrent use.
type Rooms struct {
	mu       sync.RWMutex
	members  map[string]map[uuid.UUID]struct{}
	joined   map[uuid.UUID]map[string]struct{}
	observer func(room string, members int)
}

// NewRooms creates an empty room registry.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[uuid.UUID]struct{}),
		joined:  make(map[uuid.UUID]map[string]struct{}),
	}
}

// SetObserver registers a callback invoked with a room's member count after
// every membership change. Call it before the registry sees traffic.
func (r *Rooms) SetObserver(fn func(room string, members int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Join adds a connection to a room. Joining a room the connection is
// already in is a no-op.
func (r *Rooms) Join(room string, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[room] == nil {
		r.members[room] = make(map[uuid.UUID]struct{})
	}
	r.members[room][connID] = struct{}{}

	if r.joined[connID] == nil {
		r.joined[connID] = make(map[string]struct{})
	}
	r.joined[connID][room] = struct{}{}

	if r.observer != nil {
		r.observer(room, len(r.members[room]))
	}
}

// Leave removes a connection from a room. Leaving a room the connection is
// not in is a no-op. The room disappears with its last member.
func (r *Rooms) Leave(room string, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, connID)
}

// Cleanup removes a connection from every room it joined and returns the
// rooms it was in. Called by the hub before the connection is discarded.
func (r *Rooms) Cleanup(connID uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		rooms = append(rooms, room)
		r.leaveLocked(room, connID)
	}
	return rooms
}

// MembersOf returns a snapshot of the connection ids in a room. An unknown
// room yields an empty slice.
func (r *Rooms) MembersOf(room string) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.members[room]))
	for id := range r.members[room] {
		ids = append(ids, id)
	}
	return ids
}

// RoomsOf returns a snapshot of the rooms a connection has joined.
func (r *Rooms) RoomsOf(connID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Contains reports whether a connection is a member of a room.
func (r *Rooms) Contains(room string, connID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[room][connID]
	return ok
}

// Count returns the number of members in a room.
func (r *Rooms) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}

func (r *Rooms) leaveLocked(room string, connID uuid.UUID) {
	if members, ok := r.members[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.members, room)
		}
	}
	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, connID)
		}
	}
	if r.observer != nil {
		r.observer(room, len(r.members[room]))
	}
}
