package chattypes

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single entry of the chat history.
// The coordinator only reads snapshots of turns and never mutates them.
type ConversationTurn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	IsWelcome bool      `json:"is_welcome"` // Synthetic greeting shown in the UI, never sent to a backend
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile holds the fields the instruction builder folds into the
// system instructions. Only Name is required.
type UserProfile struct {
	Name       string
	Occupation string
	Habits     string
	Hobbies    string
}
