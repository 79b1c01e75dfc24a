package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// AnthropicClient is the messages-style backend.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *anthropic.Client
}

// NewAnthropicClient creates a messages backend with lazy initialization.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  nil, // Will be initialized lazily
	}
}

// Kind returns the calling convention served by this backend.
func (c *AnthropicClient) Kind() chattypes.ProtocolKind {
	return chattypes.ProtocolMessages
}

// IsConfigured returns true if the client has an API key.
func (c *AnthropicClient) IsConfigured() bool {
	return c.apiKey != ""
}

// SetHTTPClient overrides the HTTP client used for API calls.
func (c *AnthropicClient) SetHTTPClient(httpClient *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = httpClient
	c.client = nil
}

func (c *AnthropicClient) initializeClientIfNeeded() (*anthropic.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", chattypes.ErrBackendNotConfigured)
	}

	options := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		options = append(options, option.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		options = append(options, option.WithHTTPClient(c.httpClient))
	}

	client := anthropic.NewClient(options...)
	c.client = &client

	logger.Debug("Anthropic client initialized", "provider", "anthropic")
	return c.client, nil
}

// Send posts the message request and concatenates the text blocks.
func (c *AnthropicClient) Send(ctx context.Context, profile chattypes.ProviderProfile, req *ProviderRequest) (string, error) {
	if req == nil || req.Messages == nil {
		return "", fmt.Errorf("anthropic client cannot send %s request", requestKind(req))
	}

	client, err := c.initializeClientIfNeeded()
	if err != nil {
		return "", err
	}

	logger.Debug("Sending Anthropic request", "provider", profile.Key, "model", req.Messages.Params.Model)
	message, err := client.Messages.New(ctx, req.Messages.Params)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	content, err := MessagesReplyText(message)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	logger.Debug("Anthropic response received", "provider", profile.Key, "content_length", len(content))
	return content, nil
}
