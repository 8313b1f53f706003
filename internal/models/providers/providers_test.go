package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chatMessages = []Message{
	{Role: RoleSystem, Content: "Bạn là lễ tân nhà hàng QT."},
	{Role: RoleUser, Content: "cho anh sườn cừu"},
	{Role: RoleAssistant, Content: `{"text":"Dạ","action":null,"items":[]}`},
	{Role: RoleUser, Content: "lấy cả hai"},
}

func TestOpenAICompatProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, GroqDefaultModel, body["model"])
		assert.Equal(t, map[string]interface{}{"type": "json_object"}, body["response_format"])
		assert.Len(t, body["messages"], 4)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"llama-3.3-70b-versatile",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"text\":\"ok\",\"action\":null,\"items\":[]}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAICompatProvider(Groq, Config{APIKey: "test-key", Model: GroqDefaultModel, BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), chatMessages)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"ok","action":null,"items":[]}`, out)
	assert.Equal(t, Groq, p.Name())
}

func TestOpenAICompatProvider_RejectsUnknownRole(t *testing.T) {
	p, err := NewOpenAICompatProvider(OpenAI, Config{APIKey: "k", Model: "m", BaseURL: "http://127.0.0.1:0"}, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}

func TestOpenAICompatProvider_RequiresKey(t *testing.T) {
	_, err := NewGroqProvider(Config{})
	assert.Error(t, err)
}

func TestGeminiProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "Bạn là lễ tân nhà hàng QT.", req.SystemInstruction.Parts[0].Text)
		require.Len(t, req.Contents, 3)
		assert.Equal(t, "model", req.Contents[1].Role)
		assert.Equal(t, "application/json", req.GenerationConfig["responseMimeType"])

		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"text\":\"ok\","},{"text":"\"action\":null}"}]}}]}`))
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(Config{APIKey: "g-key", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), chatMessages)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"ok","action":null}`, out)
}

func TestGeminiProvider_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "empty" {
			w.Write([]byte(`{"candidates":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), chatMessages)
	assert.Error(t, err)

	p, err = NewGeminiProvider(Config{APIKey: "empty", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), chatMessages)
	assert.Error(t, err)

	_, err = NewGeminiProvider(Config{}, nil)
	assert.Error(t, err)
}

func azureTestOptions() *azopenai.ClientOptions {
	return &azopenai.ClientOptions{ClientOptions: azcore.ClientOptions{
		InsecureAllowCredentialWithHTTP: true,
		Retry:                           policy.RetryOptions{MaxRetries: -1},
	}}
}

func TestAzureOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/qt-gpt/chat/completions", r.URL.Path)
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		assert.NotEmpty(t, r.URL.Query().Get("api-version"))

		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			ResponseFormat map[string]interface{} `json:"response_format"`
			MaxTokens      int                    `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 4)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "assistant", body.Messages[2].Role)
		assert.Equal(t, "lấy cả hai", body.Messages[3].Content)
		assert.Equal(t, "json_object", body.ResponseFormat["type"])
		assert.Equal(t, 256, body.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","created":1,"choices":[{"index":0,"message":{"role":"assistant","content":"{\"text\":\"Dạ\",\"action\":null,\"items\":[]}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p, err := NewAzureOpenAIProvider(Config{
		Endpoint:   srv.URL,
		APIKey:     "azure-key",
		Deployment: "qt-gpt",
		MaxTokens:  256,
	}, azureTestOptions())
	require.NoError(t, err)
	assert.Equal(t, AzureOpenAI, p.Name())

	out, err := p.Complete(context.Background(), chatMessages)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Dạ","action":null,"items":[]}`, out)
}

func TestAzureOpenAIProvider_Errors(t *testing.T) {
	_, err := NewAzureOpenAIProvider(Config{APIKey: "k", Deployment: "d"}, nil)
	assert.Error(t, err)
	_, err = NewAzureOpenAIProvider(Config{Endpoint: "https://qt.openai.azure.com", Deployment: "d"}, nil)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","created":1,"choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewAzureOpenAIProvider(Config{Endpoint: srv.URL, APIKey: "k", Deployment: "d"}, azureTestOptions())
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), []Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)

	_, err = p.Complete(context.Background(), chatMessages)
	assert.Error(t, err)
}

func TestNew_SelectsByName(t *testing.T) {
	p, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, Groq, p.Name())

	p, err = New(Config{Provider: Gemini, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, Gemini, p.Name())

	_, err = New(Config{Provider: Gemini})
	assert.Error(t, err)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(Config{Provider: "anthropic"})
	assert.Error(t, err)
}
