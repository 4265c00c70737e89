package http

import (
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageItem struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  *string   `json:"receiver,omitempty"`
	GroupID   *string   `json:"group_id,omitempty"`
	ChannelID *string   `json:"channel_id,omitempty"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type InboxResponse struct {
	Items []MessageItem `json:"items"`
}

type PresenceResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}
