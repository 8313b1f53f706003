// Package config loads the YAML configuration shared by the chat proxy and
// the client, then applies environment overrides for secrets.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"qtrestaurant/internal/logging"
	"qtrestaurant/internal/models/providers"
	"qtrestaurant/internal/proxy"
)

// Config represents the application configuration
type Config struct {
	Environment string             `yaml:"environment"`
	Server      ServerConfig       `yaml:"server"`
	LLM         providers.Config   `yaml:"llm"`
	Prompt      proxy.PromptConfig `yaml:"prompt"`
	Database    DatabaseConfig     `yaml:"database"`
	Admin       AdminConfig        `yaml:"admin"`
	Log         logging.Config     `yaml:"log"`
	Client      ClientConfig       `yaml:"client"`
}

// ServerConfig configures the chat proxy's HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the transcript database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// AdminConfig protects the transcript endpoint.
type AdminConfig struct {
	JWTSecret string `yaml:"-"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	BackendURL   string        `yaml:"backend_url"`
	ChatURL      string        `yaml:"chat_url"`
	StatePath    string        `yaml:"state_path"`
	HistoryLimit int           `yaml:"history_limit"`
	Timeout      time.Duration `yaml:"timeout"`
	EmailJS      EmailJSConfig `yaml:"emailjs"`
	Payment      PaymentConfig `yaml:"payment"`
}

// EmailJSConfig holds the password-reset mail template identifiers.
type EmailJSConfig struct {
	BaseURL    string `yaml:"base_url"`
	ServiceID  string `yaml:"service_id"`
	TemplateID string `yaml:"template_id"`
	PublicKey  string `yaml:"-"`
}

// PaymentConfig is the bank account shown on the VietQR code.
type PaymentConfig struct {
	BankID      string `yaml:"bank_id"`
	AccountNo   string `yaml:"account_no"`
	AccountName string `yaml:"account_name"`
	MomoPhone   string `yaml:"momo_phone"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: providers.Config{
			Provider:    providers.Groq,
			Model:       providers.GroqDefaultModel,
			Temperature: 0.7,
			MaxTokens:   512,
			Timeout:     proxy.DefaultTimeout,
		},
		Prompt: proxy.DefaultPromptConfig(),
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "chat_transcript.db",
		},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Client: ClientConfig{
			BackendURL:   "https://restaurant-backend-production-4830.up.railway.app/api",
			ChatURL:      "http://localhost:8080/api/chat",
			StatePath:    "qtclient.db",
			HistoryLimit: 4,
			Timeout:      45 * time.Second,
			EmailJS: EmailJSConfig{
				BaseURL: "https://api.emailjs.com",
			},
			Payment: PaymentConfig{
				BankID:      "tpbank",
				AccountNo:   "0934016724",
				AccountName: "LE HOANG QUAN",
				MomoPhone:   "0934016724",
			},
		},
	}
}

// Load reads path over the defaults, loads a .env file outside production
// and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parsing %s", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Environment = env
	}
	if cfg.Environment != "production" {
		_ = godotenv.Load()
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Model, "LLM_MODEL")
	switch c.LLM.Provider {
	case providers.Groq:
		setString(&c.LLM.APIKey, "GROQ_API_KEY")
	case providers.OpenAI:
		setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	case providers.GitHubModels:
		setString(&c.LLM.APIKey, "GITHUB_TOKEN")
	case providers.AzureOpenAI:
		setString(&c.LLM.APIKey, "AZURE_OPENAI_API_KEY")
		setString(&c.LLM.Endpoint, "AZURE_OPENAI_ENDPOINT")
		setString(&c.LLM.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
	case providers.Gemini:
		setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		setString(&c.LLM.Model, "GEMINI_MODEL")
	}
	setString(&c.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			c.Database.Driver = "postgres"
		}
	}
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		c.Server.Port = port
	}
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Client.BackendURL, "QT_BACKEND_URL")
	setString(&c.Client.ChatURL, "QT_CHAT_URL")
	setString(&c.Client.EmailJS.ServiceID, "EMAILJS_SERVICE_ID")
	setString(&c.Client.EmailJS.TemplateID, "EMAILJS_TEMPLATE_ID")
	setString(&c.Client.EmailJS.PublicKey, "EMAILJS_PUBLIC_KEY")
}

// Validate checks the settings both binaries depend on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = proxy.DefaultTimeout
	}
	if c.Prompt.HistoryLimit <= 0 {
		c.Prompt.HistoryLimit = 4
	}
	if c.Client.HistoryLimit <= 0 {
		c.Client.HistoryLimit = 4
	}
	if c.Prompt.MenuURL == "" {
		if err := c.Prompt.Validate(); err != nil {
			return errors.Wrap(err, "invalid prompt")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
