package chat

import "fmt"

// Role is the role for a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    Role
	Content string
}

// Transcript is the ordered conversation sent on every turn. It always starts
// with exactly one system message; only user and assistant messages follow.
type Transcript struct {
	messages []Message
}

// NewTranscript seeds a transcript with the system prompt.
func NewTranscript(systemPrompt string) *Transcript {
	return &Transcript{
		messages: []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// Append adds a user or assistant message to the end of the transcript.
func (t *Transcript) Append(role Role, content string) error {
	switch role {
	case RoleUser, RoleAssistant:
	case RoleSystem:
		return fmt.Errorf("transcript already has a system message")
	default:
		return fmt.Errorf("invalid message role: %q", role)
	}
	t.messages = append(t.messages, Message{Role: role, Content: content})
	return nil
}

// Messages returns a copy of the transcript in insertion order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages, system message included.
func (t *Transcript) Len() int {
	return len(t.messages)
}
