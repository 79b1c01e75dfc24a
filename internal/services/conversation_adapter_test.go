package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"calmchat/internal/testutils"
	"calmchat/pkg/chattypes"
)

func profileOfKind(kind chattypes.ProtocolKind) chattypes.ProviderProfile {
	return chattypes.ProviderProfile{
		Key:             "p-" + string(kind),
		DisplayName:     "P",
		ModelIdentifier: "test-model",
		ProtocolKind:    kind,
	}
}

func TestCapInstructions(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		expectedLen  int
		expectSuffix bool
	}{
		{name: "empty", input: "", expectedLen: 0},
		{name: "short", input: "be kind", expectedLen: 7},
		{name: "exactly at cap", input: testutils.LongText(MaxInstructionLength), expectedLen: MaxInstructionLength},
		{name: "over cap", input: testutils.LongText(20000), expectedLen: MaxInstructionLength + len(InstructionEllipsis), expectSuffix: true},
		{name: "multibyte counted as characters", input: strings.Repeat("é", MaxInstructionLength+1), expectedLen: MaxInstructionLength + len(InstructionEllipsis), expectSuffix: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CapInstructions(tt.input)
			assert.Equal(t, tt.expectedLen, utf8.RuneCountInString(result))
			if tt.expectSuffix {
				assert.True(t, strings.HasSuffix(result, InstructionEllipsis))
			} else {
				assert.Equal(t, tt.input, result)
			}
		})
	}
}

func TestFilterWelcomeTurns(t *testing.T) {
	history := testutils.SampleHistory()

	filtered := FilterWelcomeTurns(history)

	require.Len(t, filtered, 2)
	assert.Equal(t, "t1", filtered[0].ID)
	assert.Equal(t, "t2", filtered[1].ID)
	assert.Len(t, history, 3, "input must not be modified")
}

func TestBuildProviderRequest_ExcludesWelcomeTurn(t *testing.T) {
	for _, kind := range chattypes.KnownProtocolKinds {
		t.Run(string(kind), func(t *testing.T) {
			req, err := BuildProviderRequest(profileOfKind(kind), testutils.SampleHistory(), "be gentle", "I feel anxious")
			require.NoError(t, err)
			assert.Equal(t, kind, req.Kind)

			var payload interface{}
			switch kind {
			case chattypes.ProtocolSessionChat:
				payload = req.Session.History
			case chattypes.ProtocolRestCompletion:
				payload = req.Completion.Params
			case chattypes.ProtocolMessages:
				payload = req.Messages.Params
			}

			testutils.AssertPayloadExcludes(t, payload, testutils.WelcomeText)
			testutils.AssertPayloadContains(t, payload, "I couldn't sleep last night.", "That sounds exhausting.")
		})
	}
}

func TestBuildProviderRequest_CapsInstructions(t *testing.T) {
	long := testutils.LongText(20000)
	capped := testutils.LongText(MaxInstructionLength) + InstructionEllipsis

	for _, kind := range chattypes.KnownProtocolKinds {
		t.Run(string(kind), func(t *testing.T) {
			req, err := BuildProviderRequest(profileOfKind(kind), nil, long, "hi")
			require.NoError(t, err)

			var sent string
			switch kind {
			case chattypes.ProtocolSessionChat:
				require.NotEmpty(t, req.Session.History)
				sent = req.Session.History[0].Parts[0].Text
			case chattypes.ProtocolRestCompletion:
				require.NotEmpty(t, req.Completion.Params.Messages)
				require.NotNil(t, req.Completion.Params.Messages[0].OfSystem)
				sent = req.Completion.Params.Messages[0].OfSystem.Content.OfString.Value
			case chattypes.ProtocolMessages:
				require.Len(t, req.Messages.Params.System, 1)
				sent = req.Messages.Params.System[0].Text
			}

			assert.Equal(t, MaxInstructionLength+len(InstructionEllipsis), len(sent))
			assert.Equal(t, capped, sent)
		})
	}
}

func TestBuildProviderRequest_SessionShape(t *testing.T) {
	req, err := BuildProviderRequest(profileOfKind(chattypes.ProtocolSessionChat), testutils.SampleHistory(), "be gentle", "I feel anxious")
	require.NoError(t, err)
	require.NotNil(t, req.Session)

	session := req.Session
	assert.Equal(t, "test-model", session.Model)
	assert.Equal(t, "I feel anxious", session.Message)
	assert.Equal(t, int32(defaultMaxOutputTokens), session.Config.MaxOutputTokens)

	// Instructions seed the session as a user turn, then history in order.
	require.Len(t, session.History, 3)
	assert.Equal(t, genai.RoleUser, session.History[0].Role)
	assert.Equal(t, "be gentle", session.History[0].Parts[0].Text)
	assert.Equal(t, genai.RoleUser, session.History[1].Role)
	assert.Equal(t, genai.RoleModel, session.History[2].Role)

	// The live message is never part of the seeded history.
	testutils.AssertPayloadExcludes(t, session.History, "I feel anxious")
}

func TestBuildProviderRequest_SessionWithoutInstructions(t *testing.T) {
	req, err := BuildProviderRequest(profileOfKind(chattypes.ProtocolSessionChat), nil, "", "hello")
	require.NoError(t, err)
	assert.Empty(t, req.Session.History)
}

func TestBuildProviderRequest_CompletionShape(t *testing.T) {
	profile := profileOfKind(chattypes.ProtocolRestCompletion)
	profile.MaxOutputTokens = 256

	req, err := BuildProviderRequest(profile, testutils.SampleHistory(), "be gentle", "I feel anxious")
	require.NoError(t, err)
	require.NotNil(t, req.Completion)

	messages := req.Completion.Params.Messages
	require.Len(t, messages, 4)
	assert.NotNil(t, messages[0].OfSystem)
	assert.NotNil(t, messages[1].OfUser)
	assert.NotNil(t, messages[2].OfAssistant)
	require.NotNil(t, messages[3].OfUser)
	assert.Equal(t, "I feel anxious", messages[3].OfUser.Content.OfString.Value)
	assert.Equal(t, int64(256), req.Completion.Params.MaxTokens.Value)
}

func TestBuildProviderRequest_CompletionWithoutInstructions(t *testing.T) {
	req, err := BuildProviderRequest(profileOfKind(chattypes.ProtocolRestCompletion), nil, "", "hello")
	require.NoError(t, err)

	messages := req.Completion.Params.Messages
	require.Len(t, messages, 1)
	assert.NotNil(t, messages[0].OfUser)
}

func TestBuildProviderRequest_MessagesShape(t *testing.T) {
	req, err := BuildProviderRequest(profileOfKind(chattypes.ProtocolMessages), testutils.SampleHistory(), "be gentle", "I feel anxious")
	require.NoError(t, err)
	require.NotNil(t, req.Messages)

	params := req.Messages.Params
	require.Len(t, params.System, 1)
	assert.Equal(t, "be gentle", params.System[0].Text)
	require.Len(t, params.Messages, 3)
	assert.Equal(t, "user", string(params.Messages[0].Role))
	assert.Equal(t, "assistant", string(params.Messages[1].Role))
	assert.Equal(t, "user", string(params.Messages[2].Role))
	testutils.AssertPayloadContains(t, params.Messages[2], "I feel anxious")
}

func TestBuildProviderRequest_UnknownKind(t *testing.T) {
	profile := profileOfKind("carrier-pigeon")

	req, err := BuildProviderRequest(profile, nil, "", "hello")
	assert.Nil(t, req)
	assert.ErrorIs(t, err, chattypes.ErrUnknownProviderKind)
}

func TestSessionReplyText(t *testing.T) {
	tests := []struct {
		name      string
		response  *genai.GenerateContentResponse
		expected  string
		expectErr bool
	}{
		{name: "nil response", response: nil, expectErr: true},
		{name: "no candidates", response: &genai.GenerateContentResponse{}, expectErr: true},
		{
			name: "text parts joined, thoughts skipped",
			response: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: "Take a "},
					{Text: "deep breath."},
				}},
			}}},
			expected: "Take a deep breath.",
		},
		{
			name: "whitespace only",
			response: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "  "}}},
			}}},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := SessionReplyText(tt.response)
			if tt.expectErr {
				assert.ErrorIs(t, err, chattypes.ErrEmptyResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}
