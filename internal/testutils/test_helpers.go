package testutils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmchat/pkg/chattypes"
)

// WelcomeText is the greeting used by SampleHistory's welcome turn.
const WelcomeText = "Hi there! I'm your wellness companion. How are you feeling today?"

// SampleHistory returns a short conversation that starts with a welcome turn.
func SampleHistory() []chattypes.ConversationTurn {
	return []chattypes.ConversationTurn{
		{ID: "t0", Role: chattypes.RoleAssistant, Text: WelcomeText, IsWelcome: true},
		{ID: "t1", Role: chattypes.RoleUser, Text: "I couldn't sleep last night."},
		{ID: "t2", Role: chattypes.RoleAssistant, Text: "That sounds exhausting. What kept you awake?"},
	}
}

// TwoProviderRegistry returns [A(session), B(rest)], the smallest registry
// that exercises both calling conventions.
func TwoProviderRegistry() []chattypes.ProviderProfile {
	return []chattypes.ProviderProfile{
		{
			Key:             "A",
			DisplayName:     "A",
			ModelIdentifier: "gemini-2.0-flash",
			ProtocolKind:    chattypes.ProtocolSessionChat,
			APIKeyEnv:       "TEST_A_KEY",
		},
		{
			Key:             "B",
			DisplayName:     "B",
			ModelIdentifier: "deepseek/deepseek-chat",
			ProtocolKind:    chattypes.ProtocolRestCompletion,
			APIKeyEnv:       "TEST_B_KEY",
		},
	}
}

// LongText returns a string of n 'x' characters.
func LongText(n int) string {
	return strings.Repeat("x", n)
}

// AssertPayloadExcludes marshals payload to JSON and fails if any of the
// forbidden strings appears in it.
func AssertPayloadExcludes(t *testing.T, payload interface{}, forbidden ...string) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	for _, text := range forbidden {
		assert.NotContains(t, string(data), text)
	}
}

// AssertPayloadContains marshals payload to JSON and fails unless every
// expected string appears in it.
func AssertPayloadContains(t *testing.T, payload interface{}, expected ...string) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	for _, text := range expected {
		assert.Contains(t, string(data), text)
	}
}
