package hub

import "sync"

type Hub struct {
	mu     sync.Mutex
	conns  map[string]map[Conn]struct{} // userID -> live connections
	rooms  map[string]map[Conn]struct{} // roomID -> joined connections
	joined map[Conn]map[string]struct{} // conn -> rooms it joined
}

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]map[Conn]struct{}),
		rooms:  make(map[string]map[Conn]struct{}),
		joined: make(map[Conn]map[string]struct{}),
	}
}

// Register adds an authenticated connection under its user. Idempotent.
// It does not join any room: clients join explicitly after authenticating.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cs, ok := h.conns[c.UserID()]
	if !ok {
		cs = make(map[Conn]struct{})
		h.conns[c.UserID()] = cs
	}
	cs[c] = struct{}{}

	if _, ok := h.joined[c]; !ok {
		h.joined[c] = make(map[string]struct{})
	}
}

// JoinPersonal subscribes the connection to its own personal room.
func (h *Hub) JoinPersonal(c Conn) {
	h.Join(c, PersonalRoom(c.UserID()))
}

// Join subscribes the connection to a room. Joining is cheap and
// speculative: durable membership is checked at send time, not here.
func (h *Hub) Join(c Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[roomID] = rs
	}
	rs[c] = struct{}{}

	j, ok := h.joined[c]
	if !ok {
		j = make(map[string]struct{})
		h.joined[c] = j
	}
	j[roomID] = struct{}{}
}

// Unregister removes the connection from every room and from its user's
// connection set. Called at most once, on disconnect.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range h.joined[c] {
		if rs, ok := h.rooms[roomID]; ok {
			delete(rs, c)
			if len(rs) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.joined, c)

	if cs, ok := h.conns[c.UserID()]; ok {
		delete(cs, c)
		if len(cs) == 0 {
			delete(h.conns, c.UserID())
		}
	}
}

// Members returns a snapshot of the connections joined to a room.
func (h *Hub) Members(roomID string) []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs := h.rooms[roomID]
	out := make([]Conn, 0, len(rs))
	for c := range rs {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns[userID]) > 0
}

// Broadcast fans an event out to every connection in the room. Best-effort:
// a dead or slow connection does not block the others and is not retried.
func (h *Hub) Broadcast(roomID string, ev Event) {
	for _, c := range h.Members(roomID) {
		_ = c.Send(ev)
	}
}

// BroadcastRooms fans out to the union of several rooms, sending to each
// connection at most once even if it sits in more than one of them.
func (h *Hub) BroadcastRooms(roomIDs []string, ev Event) {
	seen := make(map[Conn]struct{})
	for _, roomID := range roomIDs {
		for _, c := range h.Members(roomID) {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			_ = c.Send(ev)
		}
	}
}
