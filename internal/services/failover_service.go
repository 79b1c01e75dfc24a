package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// FailoverService delivers a user message through the provider registry.
// It starts at the selected provider, walks the remaining providers in
// registry order, and stops at the first success, promoting that provider.
// Each provider is tried at most once per call and calls never overlap.
type FailoverService struct {
	initialized bool
	registry    ProviderRegistry
	selection   *SelectionService
	backends    BackendResolver

	attemptTimeout time.Duration
	gate           *semaphore.Weighted
	loading        atomic.Bool
	onLoading      func(bool)
	log            *log.Logger
}

// NewFailoverService wires the orchestrator to its registry, selection and
// backend resolver.
func NewFailoverService(registry ProviderRegistry, selection *SelectionService, backends BackendResolver) *FailoverService {
	return &FailoverService{
		initialized: false,
		registry:    registry,
		selection:   selection,
		backends:    backends,
		gate:        semaphore.NewWeighted(1),
	}
}

// Name returns the service name "failover" for registration.
func (f *FailoverService) Name() string {
	return "failover"
}

// Initialize prepares the component logger.
func (f *FailoverService) Initialize() error {
	if f.registry == nil || f.selection == nil || f.backends == nil {
		return fmt.Errorf("failover service requires a registry, a selection and a backend resolver")
	}
	f.log = logger.NewStyledLogger("Failover")
	f.initialized = true
	return nil
}

// SetAttemptTimeout bounds each backend call. Zero disables the bound.
func (f *FailoverService) SetAttemptTimeout(timeout time.Duration) {
	f.attemptTimeout = timeout
}

// SetLoadingObserver registers a callback invoked whenever the loading flag
// changes. It is called synchronously from GetResponse.
func (f *FailoverService) SetLoadingObserver(observer func(bool)) {
	f.onLoading = observer
}

// IsLoading reports whether a GetResponse call is in flight.
func (f *FailoverService) IsLoading() bool {
	return f.loading.Load()
}

func (f *FailoverService) setLoading(value bool) {
	f.loading.Store(value)
	if f.onLoading != nil {
		f.onLoading(value)
	}
}

// TryOrder returns the registry indices to attempt: current first, then
// every other index in registry order.
func TryOrder(current, n int) []int {
	if n <= 0 {
		return nil
	}
	if current < 0 || current >= n {
		current = 0
	}

	order := make([]int, 0, n)
	order = append(order, current)
	for i := 0; i < n; i++ {
		if i != current {
			order = append(order, i)
		}
	}
	return order
}

// GetResponse sends userInput to the first provider that answers.
// When every provider fails the returned *chattypes.FailoverError unwraps to
// the last provider's error. An unknown provider kind aborts immediately.
// Cancelling ctx stops the walk without touching the selection.
func (f *FailoverService) GetResponse(ctx context.Context, userInput, instructions string, history []chattypes.ConversationTurn) (*chattypes.ResponseResult, error) {
	if !f.initialized {
		return nil, fmt.Errorf("failover service not initialized")
	}

	if err := f.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.gate.Release(1)

	f.setLoading(true)
	defer f.setLoading(false)

	providers := f.registry.ListProviders()
	if len(providers) == 0 {
		return nil, chattypes.ErrNoProviders
	}

	start := f.selection.Current()
	order := TryOrder(start, len(providers))

	var attempts []chattypes.AttemptError
	var lastErr error

	for attempt, index := range order {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		profile := providers[index]
		f.log.Debug("Trying provider", "provider", profile.Key, "attempt", attempt+1, "index", index)

		text, err := f.attempt(ctx, profile, userInput, instructions, history)
		if errors.Is(err, chattypes.ErrUnknownProviderKind) {
			f.log.Error("Provider has an unknown calling convention", "provider", profile.Key, "error", err)
			return nil, err
		}
		if err != nil {
			f.log.Warn("Provider failed", "provider", profile.Key, "attempt", attempt+1, "error", err)
			attempts = append(attempts, chattypes.AttemptError{
				ProviderKey:         profile.Key,
				ProviderDisplayName: profile.DisplayName,
				Err:                 err,
			})
			lastErr = err
			continue
		}

		if f.selection.Promote(index) {
			f.log.Info("Promoted provider", "provider", profile.Key, "index", index)
		}

		return &chattypes.ResponseResult{
			Text:                text,
			ProviderKey:         profile.Key,
			ProviderDisplayName: profile.DisplayName,
			ProviderIndex:       index,
		}, nil
	}

	return nil, &chattypes.FailoverError{Attempts: attempts, Last: lastErr}
}

func (f *FailoverService) attempt(ctx context.Context, profile chattypes.ProviderProfile, userInput, instructions string, history []chattypes.ConversationTurn) (string, error) {
	req, err := BuildProviderRequest(profile, history, instructions, userInput)
	if err != nil {
		return "", err
	}

	backend, err := f.backends.GetBackend(profile)
	if err != nil {
		return "", err
	}

	if f.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.attemptTimeout)
		defer cancel()
	}

	return backend.Send(ctx, profile, req)
}
