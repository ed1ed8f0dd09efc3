package chat

// Message roles. These match the wire-level role names used by the
// OpenAI-compatible APIs, so implementations can pass them through.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Unknown is returned by Classify when no candidate matches the utterance.
const Unknown = "unknown"

// Message represents a single turn in a conversation history.
type Message struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string
}
