package chat

import "time"

// DefaultTitle is assigned to every new session.
const DefaultTitle = "New Chat"

// Session captures an anonymous multi-expert conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
