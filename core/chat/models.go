package chat

import "time"

type Conversation struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"-"`
	Content        string    `json:"content"`
	IsUser         bool      `json:"is_user"`
	AIModel        string    `json:"ai_model,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	ProcessingTime float64   `json:"processing_time,omitempty"` // seconds
	Timestamp      time.Time `json:"timestamp"`                 // UTC
}

// ConversationPreview is a Conversation together with list-view metadata.
type ConversationPreview struct {
	Conversation
	LastMessage  string `json:"last_message"`
	MessageCount int    `json:"message_count"`
}

// SendResult is what a processed chat message produces.
type SendResult struct {
	ConversationID int     `json:"conversation_id"`
	UserMessage    Message `json:"user_message"`
	AIResponse     Message `json:"ai_response"`
}
