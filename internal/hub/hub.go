// Package hub holds the only shared mutable state in the dispatch core: the
// mapping from authenticated users to live connections and from rooms to the
// connections joined to them. One mutex guards everything; no call here
// suspends, so the lock is never held across I/O.
package hub

type Conn interface {
	SessionID() string
	UserID() string
	Send(ev Event) error
	Close() error
}

// Event is the outbound wire envelope. Ref correlates a reply with the
// client request that caused it; push events leave it empty.
type Event struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Events pushed by the dispatcher to room members.
const (
	TypeReceiveMessage      = "receive-message"
	TypeReceiveGroupMessage = "receive-group-message"
	TypeMessageRead         = "message-read"
)

// Room key helpers. Personal rooms are keyed by user id, groups and
// channels share the group namespace since they share one durable table.
func PersonalRoom(userID string) string { return "user:" + userID }
func GroupRoom(groupID string) string   { return "group:" + groupID }
