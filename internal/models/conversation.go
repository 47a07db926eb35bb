// internal/models/conversation.go
package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in a session's append-only history.
// Turns are only ever queried as most-recent-N by creation time.
type ConversationTurn struct {
	SessionID string    `json:"sessionId" db:"session_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
