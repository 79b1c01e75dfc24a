package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// quickReplyPrompt asks for short continuations of one exchange.
const quickReplyPrompt = `Based on this exchange between a user and a supportive wellness assistant, suggest 3-4 short, natural replies the user might send next.

User: "%s"
Assistant: "%s"

Each reply should do one of these: express deeper feelings, explore the topic further, respond to the assistant's suggestions, or share more of their own experience.
Write each reply in the first person, under 8 words, one per line, with no numbering and no extra commentary.`

var (
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•‣◦▪]\s*|\d+[.)]\s+)`)
	emphasis     = strings.NewReplacer("*", "", "_", "", "`", "")
)

// boilerplate lines are meta-commentary leaking from the backend.
var quickReplyBoilerplate = []string{"quick replies", "provide"}

// QuickReplyService derives quick-reply suggestions from the latest
// exchange. It always asks the first registry entry, which must be
// session-style, and never returns an error: any failure yields an empty set.
type QuickReplyService struct {
	initialized bool
	registry    ProviderRegistry
	backends    BackendResolver
	timeout     time.Duration
}

// NewQuickReplyService creates a new QuickReplyService.
func NewQuickReplyService(registry ProviderRegistry, backends BackendResolver) *QuickReplyService {
	return &QuickReplyService{
		initialized: false,
		registry:    registry,
		backends:    backends,
	}
}

// Name returns the service name "quick_reply" for registration.
func (q *QuickReplyService) Name() string {
	return "quick_reply"
}

// Initialize sets up the QuickReplyService for operation.
func (q *QuickReplyService) Initialize() error {
	q.initialized = true
	return nil
}

// SetTimeout bounds the quick-reply request. Zero disables the bound.
func (q *QuickReplyService) SetTimeout(timeout time.Duration) {
	q.timeout = timeout
}

// DeriveQuickReplies asks the primary session-style provider for
// continuations of the exchange. The result holds at most MaxQuickReplies
// entries and is empty, never nil, on failure.
func (q *QuickReplyService) DeriveQuickReplies(ctx context.Context, userMessage, botResponse string) chattypes.QuickReplySet {
	if !q.initialized {
		logger.Debug("Quick replies skipped", "reason", "service not initialized")
		return chattypes.QuickReplySet{}
	}

	profile, ok := q.registry.Provider(0)
	if !ok {
		return chattypes.QuickReplySet{}
	}
	if profile.ProtocolKind != chattypes.ProtocolSessionChat {
		logger.Debug("Quick replies skipped", "reason", "primary provider is not session-style", "provider", profile.Key)
		return chattypes.QuickReplySet{}
	}

	req, err := BuildProviderRequest(profile, nil, "", BuildQuickReplyPrompt(userMessage, botResponse))
	if err != nil {
		logger.Debug("Quick replies skipped", "error", err)
		return chattypes.QuickReplySet{}
	}

	backend, err := q.backends.GetBackend(profile)
	if err != nil {
		logger.Debug("Quick replies skipped", "error", err)
		return chattypes.QuickReplySet{}
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	raw, err := backend.Send(ctx, profile, req)
	if err != nil {
		logger.Debug("Quick reply request failed", "provider", profile.Key, "error", err)
		return chattypes.QuickReplySet{}
	}

	return ParseQuickReplies(raw)
}

// BuildQuickReplyPrompt embeds one exchange in the quick-reply instructions.
func BuildQuickReplyPrompt(userMessage, botResponse string) string {
	return fmt.Sprintf(quickReplyPrompt, userMessage, botResponse)
}

// ParseQuickReplies splits a raw backend reply into suggestions: one per
// line, bullet prefixes and emphasis markup removed, empty and boilerplate
// lines dropped, first MaxQuickReplies kept in order.
func ParseQuickReplies(raw string) chattypes.QuickReplySet {
	replies := chattypes.QuickReplySet{}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = bulletPrefix.ReplaceAllString(line, "")
		line = emphasis.Replace(line)
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.Trim(line, `"“”`))

		if line == "" || isBoilerplate(line) {
			continue
		}

		replies = append(replies, line)
		if len(replies) == chattypes.MaxQuickReplies {
			break
		}
	}

	return replies
}

func isBoilerplate(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range quickReplyBoilerplate {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
