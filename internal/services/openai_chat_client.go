package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// OpenAIChatClient is the single-shot completion backend. It talks to any
// OpenAI-compatible chat completions endpoint (OpenRouter by default).
type OpenAIChatClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *openai.Client
}

// NewOpenAIChatClient creates a completion backend with lazy initialization.
// An empty baseURL uses the SDK default.
func NewOpenAIChatClient(apiKey, baseURL string) *OpenAIChatClient {
	return &OpenAIChatClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  nil, // Will be initialized lazily
	}
}

// Kind returns the calling convention served by this backend.
func (c *OpenAIChatClient) Kind() chattypes.ProtocolKind {
	return chattypes.ProtocolRestCompletion
}

// IsConfigured returns true if the client has an API key.
func (c *OpenAIChatClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SetHTTPClient overrides the HTTP client used for API calls.
func (c *OpenAIChatClient) SetHTTPClient(httpClient *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = httpClient
	c.client = nil
}

func (c *OpenAIChatClient) initializeClientIfNeeded() (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai: %w", chattypes.ErrBackendNotConfigured)
	}

	options := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		options = append(options, option.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		options = append(options, option.WithHTTPClient(c.httpClient))
	}

	client := openai.NewClient(options...)
	c.client = &client

	logger.Debug("OpenAI client initialized", "provider", "openai", "base_url", c.baseURL)
	return c.client, nil
}

// Send posts the completion request and returns the first choice.
func (c *OpenAIChatClient) Send(ctx context.Context, profile chattypes.ProviderProfile, req *ProviderRequest) (string, error) {
	if req == nil || req.Completion == nil {
		return "", fmt.Errorf("openai client cannot send %s request", requestKind(req))
	}

	client, err := c.initializeClientIfNeeded()
	if err != nil {
		return "", err
	}

	logger.Debug("Sending completion request", "provider", profile.Key, "model", req.Completion.Params.Model, "message_count", len(req.Completion.Params.Messages))
	completion, err := client.Chat.Completions.New(ctx, req.Completion.Params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	content, err := CompletionReplyText(completion)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	logger.Debug("Completion response received", "provider", profile.Key, "content_length", len(content))
	return content, nil
}
