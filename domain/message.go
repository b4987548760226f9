// Package domain contains core concepts of the group-chat system.
// This file defines chat messages and their construction rules.
// Messages are immutable once built.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemSenderID is the reserved sender identity for server-generated
// announcements. A message carrying it is broadcast only, never persisted.
var SystemSenderID = uuid.Nil

// ChatMessage is one unit of traffic on a GroupChannel.
type ChatMessage struct {
	SenderID   uuid.UUID
	SenderName string
	Content    string
	CreatedAt  time.Time
}

// NewUserMessage builds a message originating from an authenticated client frame.
func NewUserMessage(senderID uuid.UUID, senderName, content string) ChatMessage {
	return ChatMessage{
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewSystemMessage builds a server announcement carrying the sentinel sender.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{
		SenderID:   SystemSenderID,
		SenderName: "system",
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsSystem reports whether the message carries the sentinel sender identity.
func (m ChatMessage) IsSystem() bool {
	return m.SenderID == SystemSenderID
}
