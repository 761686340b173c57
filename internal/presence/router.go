// Package presence tracks which users have live connections and which rooms
// each connection has joined. State is process-local and rebuilt from nothing
// on restart: a dropped connection simply reconnects and re-registers.
//
// In a multi-process deployment this view degrades to per-process accuracy;
// sharing it would require a broker, which this core does not do.
package presence

import (
	"sync"
)

// Conn is a live connection handle registered with the router. A user may
// hold any number of concurrent connections (multi-device), each tracked
// independently.
type Conn interface {
	// ID uniquely identifies this connection for its lifetime.
	ID() string
	// UserID is the authenticated user behind the connection.
	UserID() uint
	// Deliver enqueues a payload for the connection without blocking.
	// It returns false when the connection can no longer accept writes.
	Deliver(payload []byte) bool
}

type connState struct {
	conn  Conn
	rooms map[uint]struct{}
}

// Router is the process-wide registry of live connections and per-connection
// room memberships. All mutation is serialized behind a single RWMutex;
// readers may observe a slightly stale view, which at worst produces one
// redundant notification.
type Router struct {
	mu        sync.RWMutex
	conns     map[string]*connState
	userConns map[uint]map[string]*connState
	roomConns map[uint]map[string]*connState
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		conns:     make(map[string]*connState),
		userConns: make(map[uint]map[string]*connState),
		roomConns: make(map[uint]map[string]*connState),
	}
}

// Register adds a connection under its user. Registering an ID that is
// already present replaces the previous handle.
func (r *Router) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[conn.ID()]; ok {
		r.dropLocked(conn.ID(), old)
	}

	state := &connState{conn: conn, rooms: make(map[uint]struct{})}
	r.conns[conn.ID()] = state
	userID := conn.UserID()
	if r.userConns[userID] == nil {
		r.userConns[userID] = make(map[string]*connState)
	}
	r.userConns[userID][conn.ID()] = state
}

// Unregister removes exactly the given connection and all of its room
// memberships. Unknown IDs are a no-op.
func (r *Router) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return
	}
	r.dropLocked(connID, state)
}

func (r *Router) dropLocked(connID string, state *connState) {
	delete(r.conns, connID)

	userID := state.conn.UserID()
	if userSet := r.userConns[userID]; userSet != nil {
		delete(userSet, connID)
		if len(userSet) == 0 {
			delete(r.userConns, userID)
		}
	}
	for roomID := range state.rooms {
		if roomSet := r.roomConns[roomID]; roomSet != nil {
			delete(roomSet, connID)
			if len(roomSet) == 0 {
				delete(r.roomConns, roomID)
			}
		}
	}
}

// JoinRoom marks the connection as viewing the room. Membership is
// per-connection, not per-user: a user may have the conversation open on
// one device and not another.
func (r *Router) JoinRoom(connID string, roomID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return
	}
	state.rooms[roomID] = struct{}{}
	if r.roomConns[roomID] == nil {
		r.roomConns[roomID] = make(map[string]*connState)
	}
	r.roomConns[roomID][connID] = state
}

// LeaveRoom removes the connection's membership in the room.
func (r *Router) LeaveRoom(connID string, roomID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(state.rooms, roomID)
	if roomSet := r.roomConns[roomID]; roomSet != nil {
		delete(roomSet, connID)
		if len(roomSet) == 0 {
			delete(r.roomConns, roomID)
		}
	}
}

// IsUserInRoom reports whether any of the user's live connections has joined
// the room. This is the predicate deciding live delivery vs. an offline
// notification.
func (r *Router) IsUserInRoom(userID uint, roomID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, state := range r.userConns[userID] {
		if _, ok := state.rooms[roomID]; ok {
			return true
		}
	}
	return false
}

// IsOnline reports whether the user has at least one live connection.
func (r *Router) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID]) > 0
}

// ConnsForUser snapshots all live connections of a user.
func (r *Router) ConnsForUser(userID uint) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.userConns[userID]))
	for _, state := range r.userConns[userID] {
		conns = append(conns, state.conn)
	}
	return conns
}

// ConnsInRoom snapshots all connections currently joined to a room,
// regardless of user.
func (r *Router) ConnsInRoom(roomID uint) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.roomConns[roomID]))
	for _, state := range r.roomConns[roomID] {
		conns = append(conns, state.conn)
	}
	return conns
}
