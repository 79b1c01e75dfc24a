package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// Backend sends an adapted request to one provider and returns the reply text.
// Any error is a per-provider failure and triggers failover.
type Backend interface {
	// Kind returns the calling convention this backend accepts.
	Kind() chattypes.ProtocolKind

	// Send delivers req to the provider described by profile.
	Send(ctx context.Context, profile chattypes.ProviderProfile, req *ProviderRequest) (string, error)
}

// BackendResolver returns the backend that serves a provider profile.
type BackendResolver interface {
	GetBackend(profile chattypes.ProviderProfile) (Backend, error)
}

// APIKeyProvider looks up an API key by its environment variable name.
type APIKeyProvider interface {
	GetAPIKey(envVar string) (string, error)
}

// HTTPClientProvider supplies the HTTP client a provider's backend uses.
type HTTPClientProvider interface {
	HTTPClient(provider string) *http.Client
}

// ClientFactoryService creates and caches one backend per provider profile.
type ClientFactoryService struct {
	initialized bool
	keys        APIKeyProvider
	httpClients HTTPClientProvider
	clients     map[string]Backend
	mutex       sync.RWMutex
}

// NewClientFactoryService creates a new ClientFactoryService that resolves
// API keys through keys.
func NewClientFactoryService(keys APIKeyProvider) *ClientFactoryService {
	return &ClientFactoryService{
		initialized: false,
		keys:        keys,
		clients:     make(map[string]Backend),
	}
}

// SetHTTPClientProvider routes newly created backends through httpClients.
// Already cached backends are unaffected.
func (f *ClientFactoryService) SetHTTPClientProvider(httpClients HTTPClientProvider) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.httpClients = httpClients
}

// Name returns the service name "client_factory" for registration.
func (f *ClientFactoryService) Name() string {
	return "client_factory"
}

// Initialize sets up the ClientFactoryService for operation.
func (f *ClientFactoryService) Initialize() error {
	logger.ServiceOperation("client_factory", "initialize", "starting")
	f.initialized = true
	logger.ServiceOperation("client_factory", "initialize", "completed")
	return nil
}

// GetBackend returns the cached backend for profile, creating it on first use.
// A missing API key is not an error here: the backend reports
// ErrBackendNotConfigured when called, which the failover loop records.
func (f *ClientFactoryService) GetBackend(profile chattypes.ProviderProfile) (Backend, error) {
	if !f.initialized {
		return nil, fmt.Errorf("client factory service not initialized")
	}

	f.mutex.RLock()
	if client, exists := f.clients[profile.Key]; exists {
		f.mutex.RUnlock()
		return client, nil
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()

	// Double-check pattern
	if client, exists := f.clients[profile.Key]; exists {
		return client, nil
	}

	apiKey := ""
	if f.keys != nil {
		key, err := f.keys.GetAPIKey(profile.APIKeyEnv)
		if err != nil {
			logger.Debug("No API key for provider", "provider", profile.Key, "error", err)
		}
		apiKey = key
	}

	var httpClient *http.Client
	if f.httpClients != nil {
		httpClient = f.httpClients.HTTPClient(profile.Key)
	}

	var client Backend
	switch profile.ProtocolKind {
	case chattypes.ProtocolSessionChat:
		gemini := NewGeminiClient(apiKey)
		if httpClient != nil {
			gemini.SetHTTPClient(httpClient)
		}
		client = gemini
	case chattypes.ProtocolRestCompletion:
		completion := NewOpenAIChatClient(apiKey, profile.BaseURL)
		if httpClient != nil {
			completion.SetHTTPClient(httpClient)
		}
		client = completion
	case chattypes.ProtocolMessages:
		messages := NewAnthropicClient(apiKey, profile.BaseURL)
		if httpClient != nil {
			messages.SetHTTPClient(httpClient)
		}
		client = messages
	default:
		return nil, fmt.Errorf("provider %s: %w: %q", profile.Key, chattypes.ErrUnknownProviderKind, profile.ProtocolKind)
	}

	f.clients[profile.Key] = client
	logger.Debug("Created new provider client", "provider", profile.Key, "protocol", profile.ProtocolKind)
	return client, nil
}

// GetCachedClientCount returns the number of cached clients (for testing/debugging).
func (f *ClientFactoryService) GetCachedClientCount() int {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return len(f.clients)
}

// ClearCache removes all cached clients, e.g. after API keys change.
func (f *ClientFactoryService) ClearCache() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.clients = make(map[string]Backend)
	logger.Debug("Client cache cleared")
}
