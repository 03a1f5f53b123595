package game

import "fortytwo/internal/model"

// chatLimit matches the server's retained history window.
const chatLimit = 100

// ChatLog is an append-only ordered message log. It is decoupled from game
// state: snapshots and resyncs never touch it. The owning store serializes
// access.
type ChatLog struct {
	messages []model.ChatMessage
}

// Append adds one message in arrival order, trimming the oldest entries
// beyond the limit.
func (c *ChatLog) Append(msg model.ChatMessage) {
	c.messages = append(c.messages, msg)
	if len(c.messages) > chatLimit {
		c.messages = c.messages[len(c.messages)-chatLimit:]
	}
}

// Messages returns a copy of the log in display order.
func (c *ChatLog) Messages() []model.ChatMessage {
	return append([]model.ChatMessage(nil), c.messages...)
}

// Len is the number of retained messages.
func (c *ChatLog) Len() int { return len(c.messages) }
