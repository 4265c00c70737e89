package domain

import "time"

// Message is immutable once persisted; only the read flag changes, and only
// for direct messages. Exactly one of ReceiverID/GroupID/ChannelID is set.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender"`
	ReceiverID *string   `db:"receiver_id" json:"receiver,omitempty"`
	GroupID    *string   `db:"group_id" json:"group_id,omitempty"`
	ChannelID  *string   `db:"channel_id" json:"channel_id,omitempty"`
	Content    string    `db:"content" json:"content"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (m *Message) IsDirect() bool { return m.ReceiverID != nil }
