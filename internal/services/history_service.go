package services

import (
	"sync"

	"calmchat/internal/testutils"
	"calmchat/pkg/chattypes"
)

// HistoryService is an in-memory turn history for one conversation.
// Callers receive copies; stored turns are never handed out by reference.
type HistoryService struct {
	initialized bool
	testMode    bool

	mu    sync.RWMutex
	turns []chattypes.ConversationTurn
}

// NewHistoryService creates an empty history. In test mode turn IDs and
// timestamps are deterministic.
func NewHistoryService(testMode bool) *HistoryService {
	return &HistoryService{
		initialized: false,
		testMode:    testMode,
	}
}

// Name returns the service name "history" for registration.
func (h *HistoryService) Name() string {
	return "history"
}

// Initialize sets up the HistoryService for operation.
func (h *HistoryService) Initialize() error {
	h.initialized = true
	return nil
}

// Reset clears the conversation and, if welcome is non-empty, seeds it with
// a welcome turn that is shown to the user but never sent to a backend.
func (h *HistoryService) Reset(welcome string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = nil
	if welcome != "" {
		h.turns = append(h.turns, h.newTurn(chattypes.RoleAssistant, welcome, true))
	}
}

// AppendUser records a user turn and returns it.
func (h *HistoryService) AppendUser(text string) chattypes.ConversationTurn {
	return h.append(chattypes.RoleUser, text)
}

// AppendAssistant records an assistant turn and returns it.
func (h *HistoryService) AppendAssistant(text string) chattypes.ConversationTurn {
	return h.append(chattypes.RoleAssistant, text)
}

func (h *HistoryService) append(role chattypes.Role, text string) chattypes.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()

	turn := h.newTurn(role, text, false)
	h.turns = append(h.turns, turn)
	return turn
}

func (h *HistoryService) newTurn(role chattypes.Role, text string, welcome bool) chattypes.ConversationTurn {
	return chattypes.ConversationTurn{
		ID:        testutils.GenerateUUID(h.testMode),
		Role:      role,
		Text:      text,
		IsWelcome: welcome,
		CreatedAt: testutils.GetCurrentTime(h.testMode),
	}
}

// Snapshot returns a copy of the turns in order.
func (h *HistoryService) Snapshot() []chattypes.ConversationTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make([]chattypes.ConversationTurn, len(h.turns))
	copy(snapshot, h.turns)
	return snapshot
}

// Len returns the number of stored turns, welcome turns included.
func (h *HistoryService) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}
