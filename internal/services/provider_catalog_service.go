package services

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"calmchat/internal/data/embedded"
	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// ProviderCatalogService is the provider registry: a static, ordered list of
// backend profiles loaded once at startup. Order is significant; index 0 is
// the default selection and the list order is the failover sequence.
type ProviderCatalogService struct {
	initialized bool
	data        []byte
	providers   []chattypes.ProviderProfile
}

// NewProviderCatalogService creates a registry backed by the embedded catalog.
func NewProviderCatalogService() *ProviderCatalogService {
	return &ProviderCatalogService{
		initialized: false,
		data:        embedded.ProviderCatalogData,
	}
}

// NewProviderCatalogServiceFromYAML creates a registry from catalog YAML data.
func NewProviderCatalogServiceFromYAML(data []byte) *ProviderCatalogService {
	return &ProviderCatalogService{
		initialized: false,
		data:        data,
	}
}

// NewProviderCatalogServiceFromProfiles creates a registry from profiles that
// are already in memory. They are still validated by Initialize.
func NewProviderCatalogServiceFromProfiles(profiles []chattypes.ProviderProfile) *ProviderCatalogService {
	copied := make([]chattypes.ProviderProfile, len(profiles))
	copy(copied, profiles)
	return &ProviderCatalogService{
		initialized: false,
		providers:   copied,
	}
}

// Name returns the service name "provider_catalog" for registration.
func (p *ProviderCatalogService) Name() string {
	return "provider_catalog"
}

// Initialize parses and validates the catalog. Unknown protocol kinds are
// rejected here so they are never discovered per request.
func (p *ProviderCatalogService) Initialize() error {
	if p.initialized {
		return nil
	}

	if p.providers == nil {
		var file chattypes.ProviderCatalogFile
		if err := yaml.Unmarshal(p.data, &file); err != nil {
			return fmt.Errorf("failed to parse provider catalog: %w", err)
		}
		p.providers = file.Providers
	}

	if err := validateProviders(p.providers); err != nil {
		return fmt.Errorf("provider catalog validation failed: %w", err)
	}

	p.initialized = true
	logger.Debug("Provider catalog loaded", "providers", len(p.providers))
	return nil
}

// validateProviders checks each profile and that keys are unique (case-insensitive).
func validateProviders(providers []chattypes.ProviderProfile) error {
	if len(providers) == 0 {
		return chattypes.ErrNoProviders
	}

	seen := make(map[string]bool, len(providers))
	for _, profile := range providers {
		if err := profile.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(profile.Key)
		if seen[key] {
			return fmt.Errorf("duplicate provider key: %s", profile.Key)
		}
		seen[key] = true
	}

	return nil
}

// ApplyDefaultMaxOutputTokens sets the reply length limit on every profile
// that does not declare its own.
func (p *ProviderCatalogService) ApplyDefaultMaxOutputTokens(tokens int) {
	if tokens <= 0 {
		return
	}
	for i := range p.providers {
		if p.providers[i].MaxOutputTokens <= 0 {
			p.providers[i].MaxOutputTokens = tokens
		}
	}
}

// ListProviders returns the registry in order. The slice is a copy.
func (p *ProviderCatalogService) ListProviders() []chattypes.ProviderProfile {
	if !p.initialized {
		return nil
	}
	result := make([]chattypes.ProviderProfile, len(p.providers))
	copy(result, p.providers)
	return result
}

// Len returns the number of registered providers.
func (p *ProviderCatalogService) Len() int {
	if !p.initialized {
		return 0
	}
	return len(p.providers)
}

// Provider returns the profile at index.
func (p *ProviderCatalogService) Provider(index int) (chattypes.ProviderProfile, bool) {
	if !p.initialized || index < 0 || index >= len(p.providers) {
		return chattypes.ProviderProfile{}, false
	}
	return p.providers[index], true
}

// IndexOf returns the registry position of key, or -1.
func (p *ProviderCatalogService) IndexOf(key string) int {
	for i, profile := range p.providers {
		if strings.EqualFold(profile.Key, key) {
			return i
		}
	}
	return -1
}
