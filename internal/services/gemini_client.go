package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// GeminiClient is the session-style backend. Each request opens a chat
// session seeded with the adapted history and sends the live message.
// The underlying genai client is created lazily on first use.
type GeminiClient struct {
	apiKey     string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a new Gemini backend with lazy initialization.
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey: apiKey,
		client: nil, // Will be initialized lazily
	}
}

// Kind returns the calling convention served by this backend.
func (c *GeminiClient) Kind() chattypes.ProtocolKind {
	return chattypes.ProtocolSessionChat
}

// IsConfigured returns true if the client has an API key.
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SetHTTPClient overrides the HTTP client used for API calls.
func (c *GeminiClient) SetHTTPClient(httpClient *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = httpClient
	c.client = nil
}

func (c *GeminiClient) initializeClientIfNeeded(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", chattypes.ErrBackendNotConfigured)
	}

	config := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Debug("Gemini client initialized", "provider", "gemini")
	c.client = client
	return client, nil
}

// Send opens a chat session from the seeded history and sends the message.
func (c *GeminiClient) Send(ctx context.Context, profile chattypes.ProviderProfile, req *ProviderRequest) (string, error) {
	if req == nil || req.Session == nil {
		return "", fmt.Errorf("gemini client cannot send %s request", requestKind(req))
	}

	client, err := c.initializeClientIfNeeded(ctx)
	if err != nil {
		return "", err
	}

	logger.Debug("Gemini chat starting", "provider", profile.Key, "model", req.Session.Model, "history", len(req.Session.History))
	chat, err := client.Chats.Create(ctx, req.Session.Model, req.Session.Config, req.Session.History)
	if err != nil {
		return "", fmt.Errorf("gemini chat creation failed: %w", err)
	}

	result, err := chat.SendMessage(ctx, genai.Part{Text: req.Session.Message})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	content, err := SessionReplyText(result)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	logger.Debug("Gemini response received", "provider", profile.Key, "content_length", len(content))
	return content, nil
}

func requestKind(req *ProviderRequest) string {
	if req == nil {
		return "nil"
	}
	return string(req.Kind)
}
