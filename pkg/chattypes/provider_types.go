package chattypes

import (
	"fmt"
	"strings"
)

// ProtocolKind identifies the calling convention a provider expects.
// It is resolved once when the provider catalog is loaded.
type ProtocolKind string

const (
	// ProtocolSessionChat is the session-style convention: seeded chat history
	// plus a live message (Gemini chats).
	ProtocolSessionChat ProtocolKind = "session-chat"

	// ProtocolRestCompletion is the single-shot completion convention: one
	// request carrying system, history and user messages (OpenAI-compatible).
	ProtocolRestCompletion ProtocolKind = "rest-completion"

	// ProtocolMessages is the messages convention with a top-level system
	// field (Anthropic).
	ProtocolMessages ProtocolKind = "messages"
)

// KnownProtocolKinds lists every calling convention the adapter understands.
var KnownProtocolKinds = []ProtocolKind{
	ProtocolSessionChat,
	ProtocolRestCompletion,
	ProtocolMessages,
}

// IsKnown reports whether k is one of the supported calling conventions.
func (k ProtocolKind) IsKnown() bool {
	for _, known := range KnownProtocolKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ProviderProfile describes one backend in the provider registry.
// Profiles are immutable once the registry has been loaded.
type ProviderProfile struct {
	Key             string       `yaml:"key" json:"key"`                           // Stable identifier, unique within the registry
	DisplayName     string       `yaml:"display_name" json:"display_name"`         // e.g. "Server 2 - Secondary"
	Description     string       `yaml:"description" json:"description"`           // Presentation only
	ColorTag        string       `yaml:"color_tag" json:"color_tag"`               // Presentation only (lipgloss color)
	ModelIdentifier string       `yaml:"model" json:"model"`                       // Model name sent to the backend
	ProtocolKind    ProtocolKind `yaml:"protocol" json:"protocol"`                 // Calling convention
	BaseURL         string       `yaml:"base_url,omitempty" json:"base_url"`       // Optional API base URL override
	APIKeyEnv       string       `yaml:"api_key_env" json:"api_key_env"`           // Environment variable holding the API key
	MaxOutputTokens int          `yaml:"max_output_tokens,omitempty" json:"max_output_tokens"`
}

// Validate checks that a profile can be used by the coordinator.
func (p ProviderProfile) Validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("provider key cannot be empty")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return fmt.Errorf("provider %s: display name cannot be empty", p.Key)
	}
	if strings.TrimSpace(p.ModelIdentifier) == "" {
		return fmt.Errorf("provider %s: model cannot be empty", p.Key)
	}
	if !p.ProtocolKind.IsKnown() {
		return fmt.Errorf("provider %s: %w: %q", p.Key, ErrUnknownProviderKind, p.ProtocolKind)
	}
	return nil
}

// ProviderCatalogFile is the shape of the embedded provider catalog YAML.
type ProviderCatalogFile struct {
	Version   string            `yaml:"version"`
	Providers []ProviderProfile `yaml:"providers"`
}
