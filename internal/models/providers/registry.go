package providers

import "fmt"

// Provider names accepted in configuration.
const (
	Groq         = "groq"
	OpenAI       = "openai"
	GitHubModels = "github_models"
	AzureOpenAI  = "azure_openai"
	Gemini       = "gemini"
)

// New builds the provider named by cfg.Provider.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case Groq, "":
		return NewGroqProvider(cfg)
	case OpenAI:
		return NewOpenAIProvider(cfg)
	case GitHubModels:
		return NewGitHubModelsProvider(cfg)
	case AzureOpenAI:
		return NewAzureOpenAIProvider(cfg, nil)
	case Gemini:
		return NewGeminiProvider(cfg, nil)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
