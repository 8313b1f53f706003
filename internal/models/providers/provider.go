package providers

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider interface for LLM providers. Complete asks for a JSON-object
// completion and returns its raw text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Config selects and tunes a provider.
type Config struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"-"`
	Endpoint    string        `yaml:"endpoint"`
	Deployment  string        `yaml:"deployment"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int32         `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context, messages []Message) (string, error)

// Name implements Provider
func (f Func) Name() string { return "func" }

// Complete implements Provider
func (f Func) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

var _ Provider = Func(nil)
