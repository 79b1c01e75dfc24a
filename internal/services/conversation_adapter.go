package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"

	"calmchat/pkg/chattypes"
)

const (
	// MaxInstructionLength caps system instructions, in characters, before
	// any request is built.
	MaxInstructionLength = 15000

	// InstructionEllipsis is appended to truncated instructions.
	InstructionEllipsis = "..."

	defaultMaxOutputTokens = 1024
)

// SessionRequest is a session-style request: a seeded chat history followed
// by one live message.
type SessionRequest struct {
	Model   string
	Config  *genai.GenerateContentConfig
	History []*genai.Content
	Message string
}

// CompletionRequest is a single-shot chat completion request.
type CompletionRequest struct {
	Params openai.ChatCompletionNewParams
}

// MessagesRequest is a messages-style request with a top-level system field.
type MessagesRequest struct {
	Params anthropic.MessageNewParams
}

// ProviderRequest carries exactly one convention-specific request, selected
// by Kind.
type ProviderRequest struct {
	Kind       chattypes.ProtocolKind
	Session    *SessionRequest
	Completion *CompletionRequest
	Messages   *MessagesRequest
}

// CapInstructions truncates instructions longer than MaxInstructionLength
// characters and appends InstructionEllipsis.
func CapInstructions(instructions string) string {
	if utf8.RuneCountInString(instructions) <= MaxInstructionLength {
		return instructions
	}
	runes := []rune(instructions)
	return string(runes[:MaxInstructionLength]) + InstructionEllipsis
}

// FilterWelcomeTurns drops UI-only greeting turns. The input is not modified.
func FilterWelcomeTurns(history []chattypes.ConversationTurn) []chattypes.ConversationTurn {
	filtered := make([]chattypes.ConversationTurn, 0, len(history))
	for _, turn := range history {
		if turn.IsWelcome {
			continue
		}
		filtered = append(filtered, turn)
	}
	return filtered
}

// BuildProviderRequest converts a turn history, system instructions and the
// live user input into the request shape of the profile's calling convention.
// It performs no I/O; the only failure is an unknown protocol kind.
func BuildProviderRequest(profile chattypes.ProviderProfile, history []chattypes.ConversationTurn, instructions string, userInput string) (*ProviderRequest, error) {
	instructions = CapInstructions(instructions)
	turns := FilterWelcomeTurns(history)

	maxTokens := profile.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	switch profile.ProtocolKind {
	case chattypes.ProtocolSessionChat:
		return &ProviderRequest{
			Kind:    profile.ProtocolKind,
			Session: buildSessionRequest(profile.ModelIdentifier, turns, instructions, userInput, maxTokens),
		}, nil
	case chattypes.ProtocolRestCompletion:
		return &ProviderRequest{
			Kind:       profile.ProtocolKind,
			Completion: buildCompletionRequest(profile.ModelIdentifier, turns, instructions, userInput, maxTokens),
		}, nil
	case chattypes.ProtocolMessages:
		return &ProviderRequest{
			Kind:     profile.ProtocolKind,
			Messages: buildMessagesRequest(profile.ModelIdentifier, turns, instructions, userInput, maxTokens),
		}, nil
	default:
		return nil, fmt.Errorf("provider %s: %w: %q", profile.Key, chattypes.ErrUnknownProviderKind, profile.ProtocolKind)
	}
}

// buildSessionRequest seeds the instructions as a user turn, then maps the
// history with assistant turns spoken by the "model" role.
func buildSessionRequest(model string, turns []chattypes.ConversationTurn, instructions, userInput string, maxTokens int) *SessionRequest {
	history := make([]*genai.Content, 0, len(turns)+1)
	if instructions != "" {
		history = append(history, genai.NewContentFromText(instructions, genai.RoleUser))
	}

	for _, turn := range turns {
		switch turn.Role {
		case chattypes.RoleUser:
			history = append(history, genai.NewContentFromText(turn.Text, genai.RoleUser))
		case chattypes.RoleAssistant:
			history = append(history, genai.NewContentFromText(turn.Text, genai.RoleModel))
		default:
			continue
		}
	}

	return &SessionRequest{
		Model:   model,
		Config:  &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)},
		History: history,
		Message: userInput,
	}
}

// buildCompletionRequest emits system, history, then the live user message.
func buildCompletionRequest(model string, turns []chattypes.ConversationTurn, instructions, userInput string, maxTokens int) *CompletionRequest {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+2)
	if instructions != "" {
		messages = append(messages, openai.SystemMessage(instructions))
	}

	for _, turn := range turns {
		switch turn.Role {
		case chattypes.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Text))
		case chattypes.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Text))
		default:
			continue
		}
	}
	messages = append(messages, openai.UserMessage(userInput))

	return &CompletionRequest{
		Params: openai.ChatCompletionNewParams{
			Model:     openai.ChatModel(model),
			Messages:  messages,
			MaxTokens: openai.Int(int64(maxTokens)),
		},
	}
}

func buildMessagesRequest(model string, turns []chattypes.ConversationTurn, instructions, userInput string, maxTokens int) *MessagesRequest {
	messages := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, turn := range turns {
		switch turn.Role {
		case chattypes.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))
		case chattypes.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Text)))
		default:
			continue
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userInput)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: instructions}}
	}

	return &MessagesRequest{Params: params}
}

// SessionReplyText extracts the reply text from a Gemini response, skipping
// thought parts.
func SessionReplyText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil {
		return "", chattypes.ErrEmptyResponse
	}

	var content strings.Builder
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" || part.Thought {
				continue
			}
			content.WriteString(part.Text)
		}
	}

	if strings.TrimSpace(content.String()) == "" {
		return "", chattypes.ErrEmptyResponse
	}
	return content.String(), nil
}

// CompletionReplyText extracts the first choice of a chat completion.
func CompletionReplyText(completion *openai.ChatCompletion) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", chattypes.ErrEmptyResponse
	}
	return content, nil
}

// MessagesReplyText concatenates the text blocks of a message.
func MessagesReplyText(message *anthropic.Message) (string, error) {
	if message == nil || len(message.Content) == 0 {
		return "", fmt.Errorf("no response content returned")
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		content.WriteString(block.Text)
	}

	if strings.TrimSpace(content.String()) == "" {
		return "", chattypes.ErrEmptyResponse
	}
	return content.String(), nil
}
