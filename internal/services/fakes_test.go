package services

import (
	"context"
	"sync"

	"calmchat/pkg/chattypes"
)

// scriptedBackends is a BackendResolver whose backends answer from a
// per-provider script and record every request they receive.
type scriptedBackends struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	block    map[string]chan struct{}
	calls    []string
	requests map[string][]*ProviderRequest
}

func newScriptedBackends() *scriptedBackends {
	return &scriptedBackends{
		replies:  make(map[string]string),
		failures: make(map[string]error),
		block:    make(map[string]chan struct{}),
		requests: make(map[string][]*ProviderRequest),
	}
}

func (s *scriptedBackends) reply(key, text string) *scriptedBackends {
	s.replies[key] = text
	return s
}

func (s *scriptedBackends) fail(key string, err error) *scriptedBackends {
	s.failures[key] = err
	return s
}

func (s *scriptedBackends) GetBackend(profile chattypes.ProviderProfile) (Backend, error) {
	return &scriptedBackend{owner: s, kind: profile.ProtocolKind}, nil
}

func (s *scriptedBackends) callOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type scriptedBackend struct {
	owner *scriptedBackends
	kind  chattypes.ProtocolKind
}

func (b *scriptedBackend) Kind() chattypes.ProtocolKind { return b.kind }

func (b *scriptedBackend) Send(ctx context.Context, profile chattypes.ProviderProfile, req *ProviderRequest) (string, error) {
	s := b.owner
	s.mu.Lock()
	s.calls = append(s.calls, profile.Key)
	s.requests[profile.Key] = append(s.requests[profile.Key], req)
	wait := s.block[profile.Key]
	reply, err := s.replies[profile.Key], s.failures[profile.Key]
	s.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// staticKeys is an APIKeyProvider over a fixed map.
type staticKeys map[string]string

func (k staticKeys) GetAPIKey(envVar string) (string, error) {
	if key, ok := k[envVar]; ok {
		return key, nil
	}
	return "", chattypes.ErrBackendNotConfigured
}

func newTestCatalog(profiles []chattypes.ProviderProfile) *ProviderCatalogService {
	catalog := NewProviderCatalogServiceFromProfiles(profiles)
	if err := catalog.Initialize(); err != nil {
		panic(err)
	}
	return catalog
}
