package models

// Message directions as reported by the Avito messenger API.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// MessageTypeText is the only message type surfaced to operators;
// system messages (images, locations, deleted) are skipped.
const MessageTypeText = "text"

// Conversation is one chat thread between the tenant and a customer,
// as returned by the chat listing endpoint.
type Conversation struct {
	ID          string       `json:"id"`
	Context     ChatContext  `json:"context"`
	LastMessage *LastMessage `json:"last_message"`
	Users       []ChatUser   `json:"users"`
}

// Title returns the advertisement title the conversation is about.
func (c *Conversation) Title() string {
	return c.Context.Value.Title
}

// Customer returns the first chat participant, the customer side.
func (c *Conversation) Customer() ChatUser {
	if len(c.Users) == 0 {
		return ChatUser{}
	}
	return c.Users[0]
}

// LastActivity returns the unix timestamp of the most recent message
// of any direction, or 0 when the conversation is empty.
func (c *Conversation) LastActivity() int64 {
	if c.LastMessage == nil {
		return 0
	}
	return c.LastMessage.Created
}

// ChatContext carries the advertisement the chat was opened for.
type ChatContext struct {
	Value ChatContextValue `json:"value"`
}

type ChatContextValue struct {
	Title string `json:"title"`
}

// LastMessage is the chat-list preview of the newest message.
type LastMessage struct {
	Direction string `json:"direction"`
	Created   int64  `json:"created"`
}

// ChatUser is a chat participant.
type ChatUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Message is a single message inside a conversation.
type Message struct {
	ID        string         `json:"id"`
	Direction string         `json:"direction"`
	Type      string         `json:"type"`
	Created   int64          `json:"created"` // unix seconds
	Content   MessageContent `json:"content"`
}

type MessageContent struct {
	Text string `json:"text"`
}

// Inbound reports whether the message came from the customer.
func (m *Message) Inbound() bool {
	return m.Direction == DirectionIn
}
