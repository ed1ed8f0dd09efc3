// Package anyllm provides a universal chat provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	p, err := anyllm.New("openai", "gpt-4o-mini", anyllm.WithAPIKey("sk-..."))
//	p, err := anyllm.NewOllama("llama3")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/bkaraca/dinle/pkg/provider/chat"
)

// Provider implements chat.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Provider struct {
	backend      anyllmlib.Provider
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// config holds optional configuration collected before the backend is built.
type config struct {
	systemPrompt string
	temperature  float64
	maxTokens    int
	backendOpts  []anyllmlib.Option
}

// Option is a functional option for Provider.
type Option func(*config)

// WithAPIKey sets the API key passed to the underlying backend. Without it,
// the backend falls back to its environment variable (e.g., OPENAI_API_KEY).
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.backendOpts = append(c.backendOpts, anyllmlib.WithAPIKey(key))
	}
}

// WithBaseURL overrides the backend's default API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.backendOpts = append(c.backendOpts, anyllmlib.WithBaseURL(url))
	}
}

// WithSystemPrompt overrides the default Turkish assistant system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		c.systemPrompt = prompt
	}
}

// WithTemperature sets the sampling temperature for Respond. Classify always
// runs at temperature zero.
func WithTemperature(t float64) Option {
	return func(c *config) {
		c.temperature = t
	}
}

// WithMaxTokens caps the number of completion tokens per response.
// Zero means use the provider default.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		c.maxTokens = n
	}
}

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama", "deepseek",
// "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o-mini", "llama3").
func New(providerName string, model string, opts ...Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	cfg := &config{
		systemPrompt: chat.SystemPrompt,
		temperature:  0.7,
	}
	for _, o := range opts {
		o(cfg)
	}

	backend, err := createBackend(providerName, cfg.backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Provider{
		backend:      backend,
		model:        model,
		systemPrompt: cfg.systemPrompt,
		temperature:  cfg.temperature,
		maxTokens:    cfg.maxTokens,
	}, nil
}

// NewOpenAI creates a Provider backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, opts ...Option) (*Provider, error) {
	return New("openai", model, opts...)
}

// NewAnthropic creates a Provider backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, opts ...Option) (*Provider, error) {
	return New("anthropic", model, opts...)
}

// NewGemini creates a Provider backed by Google Gemini.
// Without options, it reads the GEMINI_API_KEY or GOOGLE_API_KEY environment variable.
func NewGemini(model string, opts ...Option) (*Provider, error) {
	return New("gemini", model, opts...)
}

// NewOllama creates a Provider backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(model string, opts ...Option) (*Provider, error) {
	return New("ollama", model, opts...)
}

// NewDeepSeek creates a Provider backed by DeepSeek.
// Without options, it reads the DEEPSEEK_API_KEY environment variable.
func NewDeepSeek(model string, opts ...Option) (*Provider, error) {
	return New("deepseek", model, opts...)
}

// NewMistral creates a Provider backed by Mistral AI.
// Without options, it reads the MISTRAL_API_KEY environment variable.
func NewMistral(model string, opts ...Option) (*Provider, error) {
	return New("mistral", model, opts...)
}

// NewGroq creates a Provider backed by Groq.
// Without options, it reads the GROQ_API_KEY environment variable.
func NewGroq(model string, opts ...Option) (*Provider, error) {
	return New("groq", model, opts...)
}

// NewLlamaCpp creates a Provider backed by a running llama.cpp server.
// Without options, it connects to http://127.0.0.1:8080/v1.
func NewLlamaCpp(model string, opts ...Option) (*Provider, error) {
	return New("llamacpp", model, opts...)
}

// NewLlamaFile creates a Provider backed by a running llamafile server.
// Without options, it connects to the default llamafile server.
func NewLlamaFile(model string, opts ...Option) (*Provider, error) {
	return New("llamafile", model, opts...)
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Respond implements chat.Provider.
func (p *Provider) Respond(ctx context.Context, history []chat.Message, utterance string) (string, error) {
	messages := buildMessages(p.systemPrompt, history, utterance)

	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
	if p.temperature != 0 {
		t := p.temperature
		params.Temperature = &t
	}
	if p.maxTokens > 0 {
		mt := p.maxTokens
		params.MaxTokens = &mt
	}

	content, err := p.complete(ctx, params)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// Classify implements chat.Provider. It runs a single-shot prompt at
// temperature zero and maps the answer back onto the candidate list.
func (p *Provider) Classify(ctx context.Context, utterance string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return chat.Unknown, nil
	}

	zero := 0.0
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: chat.ClassifyPrompt(utterance, candidates)},
		},
		Temperature: &zero,
	}

	answer, err := p.complete(ctx, params)
	if err != nil {
		return "", err
	}
	if c := chat.PickCandidate(answer, candidates); c != "" {
		return c, nil
	}
	return chat.Unknown, nil
}

// complete runs one completion and returns the first choice's text content.
func (p *Provider) complete(ctx context.Context, params anyllmlib.CompletionParams) (string, error) {
	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// buildMessages assembles the wire message list: system prompt, history, then
// the new user utterance.
func buildMessages(systemPrompt string, history []chat.Message, utterance string) []anyllmlib.Message {
	messages := make([]anyllmlib.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range history {
		messages = append(messages, anyllmlib.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: utterance,
	})
	return messages
}

// Ensure Provider implements chat.Provider at compile time.
var _ chat.Provider = (*Provider)(nil)
