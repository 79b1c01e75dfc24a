package services

import (
	"fmt"
	"sync"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// ProviderRegistry is the read-only view of the provider catalog used by the
// chat services.
type ProviderRegistry interface {
	ListProviders() []chattypes.ProviderProfile
	Len() int
	Provider(index int) (chattypes.ProviderProfile, bool)
}

// SelectionService holds the index of the preferred provider. The index is
// always valid for the registry; out-of-range requests leave it unchanged.
// It lives in process memory only and resets to 0 on restart.
type SelectionService struct {
	initialized bool
	registry    ProviderRegistry

	mu      sync.RWMutex
	current int
}

// NewSelectionService creates a selection over registry, starting at index 0.
func NewSelectionService(registry ProviderRegistry) *SelectionService {
	return &SelectionService{
		initialized: false,
		registry:    registry,
	}
}

// Name returns the service name "selection" for registration.
func (s *SelectionService) Name() string {
	return "selection"
}

// Initialize requires a non-empty registry.
func (s *SelectionService) Initialize() error {
	if s.registry == nil || s.registry.Len() == 0 {
		return fmt.Errorf("selection service: %w", chattypes.ErrNoProviders)
	}
	s.mu.Lock()
	s.current = 0
	s.mu.Unlock()
	s.initialized = true
	return nil
}

// Current returns the selected registry index.
func (s *SelectionService) Current() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CurrentProvider returns the profile at the selected index.
func (s *SelectionService) CurrentProvider() chattypes.ProviderProfile {
	profile, _ := s.registry.Provider(s.Current())
	return profile
}

// SetSelection jumps to index. Out-of-range values are ignored and logged;
// the return value reports whether index was accepted.
func (s *SelectionService) SetSelection(index int) bool {
	n := s.registry.Len()
	if index < 0 || index >= n {
		logger.Warn("Ignoring out-of-range provider selection", "index", index, "providers", n)
		return false
	}

	s.mu.Lock()
	s.current = index
	s.mu.Unlock()

	logger.Debug("Provider selected", "index", index)
	return true
}

// Advance moves to the next provider, wrapping to 0 past the end, and
// returns the new index.
func (s *SelectionService) Advance() int {
	n := s.registry.Len()

	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.current = (s.current + 1) % n
	}
	return s.current
}

// Promote records that the provider at index answered. It is a no-op when
// index is already selected and reports whether the selection moved.
func (s *SelectionService) Promote(index int) bool {
	if index < 0 || index >= s.registry.Len() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == index {
		return false
	}
	s.current = index
	return true
}
