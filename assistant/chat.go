package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/devansharma-72/sensory-support-hub/log"
)

const (
	Greeting = "Hello! I'm your assistant. How can I help you today?"
	Apology  = "Sorry, I couldn't reach the assistant right now. Please try again in a moment."
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Chat is one conversation with a Responder. Safe for concurrent use.
type Chat struct {
	responder Responder
	userID    string

	mu       sync.Mutex
	messages []Message
}

func NewChat(r Responder, userID string) *Chat {
	return &Chat{
		responder: r,
		userID:    userID,
		messages:  []Message{{Role: RoleAssistant, Content: Greeting}},
	}
}

func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Send appends the user message and the reply. Blank input is ignored and
// returns false.
func (c *Chat) Send(ctx context.Context, input string) (Message, bool) {
	if strings.TrimSpace(input) == "" {
		return Message{}, false
	}
	c.mu.Lock()
	c.messages = append(c.messages, Message{Role: RoleUser, Content: input})
	c.mu.Unlock()

	text, err := c.responder.Respond(ctx, c.userID, input)
	if err != nil {
		log.Errorf("assistant: %v", err)
		text = Apology
	}
	reply := Message{Role: RoleAssistant, Content: text}

	c.mu.Lock()
	c.messages = append(c.messages, reply)
	c.mu.Unlock()
	return reply, true
}
