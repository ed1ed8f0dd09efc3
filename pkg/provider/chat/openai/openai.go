// Package openai provides a chat provider backed directly by the OpenAI API.
// It exists alongside the anyllm provider as an independent fallback path
// with its own SDK and connection pool.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/bkaraca/dinle/pkg/provider/chat"
)

// Provider implements chat.Provider using the OpenAI API.
type Provider struct {
	client       oai.Client
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) {
		c.organization = org
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
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

// New constructs a new OpenAI chat Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{
		systemPrompt: chat.SystemPrompt,
		temperature:  0.7,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{
		client:       client,
		model:        model,
		systemPrompt: cfg.systemPrompt,
		temperature:  cfg.temperature,
		maxTokens:    cfg.maxTokens,
	}, nil
}

// Respond implements chat.Provider.
func (p *Provider) Respond(ctx context.Context, history []chat.Message, utterance string) (string, error) {
	messages, err := buildMessages(p.systemPrompt, history, utterance)
	if err != nil {
		return "", fmt.Errorf("openai: build messages: %w", err)
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if p.temperature != 0 {
		params.Temperature = param.NewOpt(p.temperature)
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.maxTokens))
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

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(chat.ClassifyPrompt(utterance, candidates)),
		},
		Temperature: param.NewOpt(0.0),
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
func (p *Provider) complete(ctx context.Context, params oai.ChatCompletionNewParams) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts the system prompt, history and new utterance into
// OpenAI SDK message params.
func buildMessages(systemPrompt string, history []chat.Message, utterance string) ([]oai.ChatCompletionMessageParamUnion, error) {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, oai.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		msg, err := convertMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	messages = append(messages, oai.UserMessage(utterance))
	return messages, nil
}

// convertMessage converts a chat.Message to an OpenAI SDK message param.
func convertMessage(m chat.Message) (oai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case chat.RoleSystem:
		return oai.SystemMessage(m.Content), nil
	case chat.RoleUser:
		return oai.UserMessage(m.Content), nil
	case chat.RoleAssistant:
		return oai.AssistantMessage(m.Content), nil
	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unknown message role %q", m.Role)
	}
}

// Ensure Provider implements chat.Provider at compile time.
var _ chat.Provider = (*Provider)(nil)
