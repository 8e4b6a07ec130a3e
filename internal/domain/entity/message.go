package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ImageRef is a captured screenshot ready to be sent inline.
type ImageRef struct {
	Path    string
	MIME    string
	DataURL string
}

// Message is one conversation entry. When Image is set, Content is the caption.
type Message struct {
	Role    MessageRole
	Content string
	Image   *ImageRef
}

func (m Message) HasImage() bool {
	return m.Image != nil
}

// Conversation is the ordered, append-only context sent to the model every turn.
type Conversation struct {
	messages []Message
}

func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{
		messages: []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy so callers cannot rewrite history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
