// Package chat defines the Provider interface for conversational AI backends.
//
// A chat provider wraps a remote or local model API (e.g., OpenAI, Anthropic
// via any-llm, or a local Ollama instance) and exposes the two operations the
// assistant needs: free-form Turkish conversation with history, and picking
// one candidate out of a fixed list for intent resolution.
//
// Implementations must be safe for concurrent use.
package chat

import "context"

// Provider is the abstraction over any conversational model backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and propagate context cancellation promptly.
type Provider interface {
	// Respond sends the conversation history plus the new user utterance to
	// the model and returns its reply. The fixed Turkish assistant system
	// prompt is prepended by the implementation; history carries only user
	// and assistant turns.
	//
	// Returns an error if the request fails or ctx is cancelled before the
	// reply arrives. An empty reply with a nil error is possible and the
	// caller decides how to phrase it to the user.
	Respond(ctx context.Context, history []Message, utterance string) (string, error)

	// Classify asks the model which of the candidates the utterance refers
	// to. It returns one element of candidates verbatim, or Unknown when the
	// model cannot decide. The model's free-text answer is normalised against
	// the candidate list, so callers can rely on the return value without
	// further cleaning.
	Classify(ctx context.Context, utterance string, candidates []string) (string, error)
}
