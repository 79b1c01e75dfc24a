package services

import (
	"context"
	"fmt"

	"calmchat/pkg/chattypes"
)

// ChatService is the caller-facing API of the response coordinator. It
// combines failover delivery, quick replies and provider selection.
type ChatService struct {
	initialized  bool
	failover     *FailoverService
	quickReplies *QuickReplyService
	selection    *SelectionService
}

// NewChatService creates the facade over its collaborators.
func NewChatService(failover *FailoverService, quickReplies *QuickReplyService, selection *SelectionService) *ChatService {
	return &ChatService{
		initialized:  false,
		failover:     failover,
		quickReplies: quickReplies,
		selection:    selection,
	}
}

// Name returns the service name "chat" for registration.
func (c *ChatService) Name() string {
	return "chat"
}

// Initialize sets up the ChatService for operation.
func (c *ChatService) Initialize() error {
	if c.failover == nil || c.quickReplies == nil || c.selection == nil {
		return fmt.Errorf("chat service requires failover, quick reply and selection services")
	}
	c.initialized = true
	return nil
}

// GetChatResponse returns the reply and the name of the server that
// actually answered.
func (c *ChatService) GetChatResponse(ctx context.Context, userInput, instructions string, history []chattypes.ConversationTurn) (*chattypes.ChatReply, error) {
	if !c.initialized {
		return nil, fmt.Errorf("chat service not initialized")
	}

	result, err := c.failover.GetResponse(ctx, userInput, instructions, history)
	if err != nil {
		return nil, err
	}

	return &chattypes.ChatReply{
		Text:   result.Text,
		Server: result.ProviderDisplayName,
	}, nil
}

// GenerateQuickReplies returns 0-5 suggested continuations. It never fails.
func (c *ChatService) GenerateQuickReplies(ctx context.Context, userMessage, botResponse string) []string {
	if !c.initialized {
		return []string{}
	}
	return c.quickReplies.DeriveQuickReplies(ctx, userMessage, botResponse)
}

// ToggleAPIService advances to the next server and returns it.
func (c *ChatService) ToggleAPIService() chattypes.ProviderProfile {
	c.selection.Advance()
	return c.selection.CurrentProvider()
}

// SetAPIService selects the server at index; out-of-range values are ignored.
func (c *ChatService) SetAPIService(index int) bool {
	return c.selection.SetSelection(index)
}

// GetCurrentServerInfo returns the currently selected server.
func (c *ChatService) GetCurrentServerInfo() chattypes.ProviderProfile {
	return c.selection.CurrentProvider()
}

// CurrentServerIndex returns the registry position of the selected server.
func (c *ChatService) CurrentServerIndex() int {
	return c.selection.Current()
}

// IsLoading reports whether a reply is being fetched.
func (c *ChatService) IsLoading() bool {
	return c.failover.IsLoading()
}
