// Package mock provides a test double for the chat.Provider interface.
//
// Use Provider to script model replies and to verify the history and
// utterances passed by the caller.
//
// Example:
//
//	p := &mock.Provider{RespondResult: "Merhaba! Size nasıl yardımcı olabilirim?"}
//	reply, _ := p.Respond(ctx, history, "merhaba")
package mock

import (
	"context"
	"sync"

	"github.com/bkaraca/dinle/pkg/provider/chat"
)

// RespondCall records a single invocation of Provider.Respond.
type RespondCall struct {
	// Ctx is the context passed to Respond.
	Ctx context.Context
	// History is a copy of the conversation history passed to Respond.
	History []chat.Message
	// Utterance is the new user utterance passed to Respond.
	Utterance string
}

// ClassifyCall records a single invocation of Provider.Classify.
type ClassifyCall struct {
	// Ctx is the context passed to Classify.
	Ctx context.Context
	// Utterance is the utterance passed to Classify.
	Utterance string
	// Candidates is a copy of the candidate list passed to Classify.
	Candidates []string
}

// Provider is a mock implementation of chat.Provider.
type Provider struct {
	mu sync.Mutex

	// RespondFunc, if set, handles every Respond call and ignores the result
	// fields below. Calls are still recorded.
	RespondFunc func(ctx context.Context, history []chat.Message, utterance string) (string, error)

	// RespondResult is returned by Respond.
	RespondResult string

	// RespondErr, if non-nil, is returned as the error from Respond.
	RespondErr error

	// ClassifyResult is returned by Classify. Defaults to chat.Unknown when empty.
	ClassifyResult string

	// ClassifyErr, if non-nil, is returned as the error from Classify.
	ClassifyErr error

	// --- Call records ---

	// RespondCalls records every call to Respond in order.
	RespondCalls []RespondCall

	// ClassifyCalls records every call to Classify in order.
	ClassifyCalls []ClassifyCall
}

// Respond records the call and returns RespondResult, RespondErr.
func (p *Provider) Respond(ctx context.Context, history []chat.Message, utterance string) (string, error) {
	p.mu.Lock()
	historyCopy := make([]chat.Message, len(history))
	copy(historyCopy, history)
	p.RespondCalls = append(p.RespondCalls, RespondCall{Ctx: ctx, History: historyCopy, Utterance: utterance})
	fn := p.RespondFunc
	result, err := p.RespondResult, p.RespondErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, history, utterance)
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

// Classify records the call and returns ClassifyResult, ClassifyErr.
func (p *Provider) Classify(ctx context.Context, utterance string, candidates []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	candidatesCopy := make([]string, len(candidates))
	copy(candidatesCopy, candidates)
	p.ClassifyCalls = append(p.ClassifyCalls, ClassifyCall{Ctx: ctx, Utterance: utterance, Candidates: candidatesCopy})
	if p.ClassifyErr != nil {
		return "", p.ClassifyErr
	}
	if p.ClassifyResult == "" {
		return chat.Unknown, nil
	}
	return p.ClassifyResult, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RespondCalls = nil
	p.ClassifyCalls = nil
}

// Ensure Provider implements chat.Provider at compile time.
var _ chat.Provider = (*Provider)(nil)
