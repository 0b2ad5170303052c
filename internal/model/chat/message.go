package chat

import "time"

// SenderType distinguishes user turns from expert answers.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderExpert SenderType = "expert"
)

// Sender describes who authored a message.
type Sender struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      SenderType `json:"type"`
	Expertise string     `json:"expertise,omitempty"`
	Avatar    string     `json:"avatar,omitempty"`
}

// UserSender is the sender attached to every user-originated message.
var UserSender = Sender{ID: "user", Name: "You", Type: SenderUser}

// Message is one entry of a session transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sender    Sender    `json:"sender"`
}
