package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"calmchat/pkg/chattypes"
)

const (
	defaultChipWidth = 36
	fallbackColor    = "#9E9E9E"
)

// RenderService styles the coordinator's caller-facing output: server
// labels, the server list and quick-reply chips.
type RenderService struct {
	initialized bool
	chipWidth   int

	muted   lipgloss.Style
	errorSt lipgloss.Style
	chip    lipgloss.Style
}

// NewRenderService creates a new RenderService instance.
func NewRenderService() *RenderService {
	return &RenderService{
		initialized: false,
		chipWidth:   defaultChipWidth,
	}
}

// Name returns the service name "render" for registration.
func (r *RenderService) Name() string {
	return "render"
}

// Initialize builds the styles.
func (r *RenderService) Initialize() error {
	r.muted = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	r.errorSt = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	r.chip = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("60")).
		Padding(0, 1)
	r.initialized = true
	return nil
}

// ServerLabel renders a provider's display name in its color tag.
func (r *RenderService) ServerLabel(profile chattypes.ProviderProfile) string {
	color := profile.ColorTag
	if color == "" {
		color = fallbackColor
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(profile.DisplayName)
}

// ServerList renders the registry with a marker on the current index.
// Numbers are 1-based for display.
func (r *RenderService) ServerList(providers []chattypes.ProviderProfile, current int) string {
	var b strings.Builder
	for i, profile := range providers {
		marker := "  "
		if i == current {
			marker = "▸ "
		}
		fmt.Fprintf(&b, "%s%d. %s %s\n", marker, i+1, r.ServerLabel(profile), r.muted.Render(profile.Description))
	}
	return b.String()
}

// QuickReplyChips renders numbered suggestions on one line, truncating
// long ones to the chip width.
func (r *RenderService) QuickReplyChips(replies []string) string {
	if len(replies) == 0 {
		return ""
	}

	chips := make([]string, 0, len(replies))
	for i, reply := range replies {
		label := ansi.Truncate(fmt.Sprintf("/%d %s", i+1, reply), r.chipWidth, "…")
		chips = append(chips, r.chip.Render(label))
	}
	return strings.Join(chips, " ")
}

// Muted renders secondary text such as the "thinking" indicator.
func (r *RenderService) Muted(text string) string {
	return r.muted.Render(text)
}

// Failure renders a user-facing failure notice.
func (r *RenderService) Failure(text string) string {
	return r.errorSt.Render(text)
}

// SetChipWidth changes the maximum chip label width.
func (r *RenderService) SetChipWidth(width int) {
	if width > 0 {
		r.chipWidth = width
	}
}
