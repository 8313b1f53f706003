package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Default endpoints and models of the OpenAI-compatible services.
const (
	GroqBaseURL         = "https://api.groq.com/openai/v1"
	GroqDefaultModel    = "llama-3.3-70b-versatile"
	GitHubModelsBaseURL = "https://models.inference.ai.azure.com"
	GitHubDefaultModel  = "gpt-4o-mini"
	OpenAIDefaultModel  = "gpt-4o-mini"
)

// OpenAICompatProvider implements the Provider interface for any service
// speaking the OpenAI chat completions API: Groq, OpenAI and GitHub Models.
type OpenAICompatProvider struct {
	name        string
	client      *openai.LLM
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAICompatProvider creates a provider named name.
func NewOpenAICompatProvider(name string, cfg Config, httpClient *http.Client) (*OpenAICompatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model is required", name)
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}

	return &OpenAICompatProvider{
		name:        name,
		client:      client,
		model:       cfg.Model,
		temperature: float64(cfg.Temperature),
		maxTokens:   int(cfg.MaxTokens),
	}, nil
}

// NewGroqProvider creates the Groq provider.
func NewGroqProvider(cfg Config) (*OpenAICompatProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GroqDefaultModel
	}
	return NewOpenAICompatProvider("groq", cfg, nil)
}

// NewGitHubModelsProvider creates the GitHub Models provider.
func NewGitHubModelsProvider(cfg Config) (*OpenAICompatProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = GitHubModelsBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = GitHubDefaultModel
	}
	return NewOpenAICompatProvider("github_models", cfg, nil)
}

// NewOpenAIProvider creates the OpenAI provider.
func NewOpenAIProvider(cfg Config) (*OpenAICompatProvider, error) {
	if cfg.Model == "" {
		cfg.Model = OpenAIDefaultModel
	}
	return NewOpenAICompatProvider("openai", cfg, nil)
}

// Name returns the provider name
func (p *OpenAICompatProvider) Name() string {
	return p.name
}

// Complete implements the Provider interface
func (p *OpenAICompatProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	contents := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var msgType schema.ChatMessageType
		switch msg.Role {
		case RoleSystem:
			msgType = schema.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = schema.ChatMessageTypeAI
		case RoleUser:
			msgType = schema.ChatMessageTypeHuman
		default:
			return "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		contents = append(contents, llms.TextParts(msgType, msg.Content))
	}

	opts := []llms.CallOption{
		llms.WithModel(p.model),
		llms.WithJSONMode(),
	}
	if p.temperature > 0 {
		opts = append(opts, llms.WithTemperature(p.temperature))
	}
	if p.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.maxTokens))
	}

	response, err := p.client.GenerateContent(ctx, contents, opts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}

	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", p.name)
	}

	return response.Choices[0].Content, nil
}

var _ Provider = (*OpenAICompatProvider)(nil)
