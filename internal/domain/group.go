package domain

import "time"

// Group covers both groups and channels; a channel is a group with the
// Channel flag set and posting restricted to admins.
type Group struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Members   []string  `db:"members"`
	Admins    []string  `db:"admins"`
	Channel   bool      `db:"is_channel"`
	CreatedAt time.Time `db:"created_at"`
}

func (g *Group) IsMember(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

func (g *Group) IsAdmin(userID string) bool {
	for _, id := range g.Admins {
		if id == userID {
			return true
		}
	}
	return false
}
