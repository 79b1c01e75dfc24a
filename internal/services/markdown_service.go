package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"calmchat/internal/logger"
)

const defaultWordWrap = 80

// MarkdownService renders assistant replies as terminal markdown using Glamour.
type MarkdownService struct {
	initialized bool
	style       string
	renderer    *glamour.TermRenderer
}

// NewMarkdownService creates a new MarkdownService instance.
func NewMarkdownService() *MarkdownService {
	return &MarkdownService{
		initialized: false,
		renderer:    nil,
	}
}

// Name returns the service name "markdown" for registration.
func (m *MarkdownService) Name() string {
	return "markdown"
}

// Initialize picks a Glamour style from the terminal and builds the renderer.
func (m *MarkdownService) Initialize() error {
	m.style = DetectGlamourStyle(lipgloss.ColorProfile(), termenv.HasDarkBackground())
	if err := m.SetWordWrap(defaultWordWrap); err != nil {
		return err
	}

	m.initialized = true
	logger.Debug("MarkdownService initialized", "style", m.style)
	return nil
}

// DetectGlamourStyle maps terminal capabilities to a Glamour standard style.
func DetectGlamourStyle(profile termenv.Profile, darkBackground bool) string {
	switch {
	case profile == termenv.Ascii:
		return "notty"
	case darkBackground:
		return "dark"
	default:
		return "light"
	}
}

// SetWordWrap rebuilds the renderer with a new wrap width.
func (m *MarkdownService) SetWordWrap(width int) error {
	if width <= 0 {
		return fmt.Errorf("word wrap width must be positive, got %d", width)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	m.renderer = renderer
	return nil
}

// Render renders markdown to ANSI terminal output. If rendering fails the
// plain text is returned so a reply is never lost.
func (m *MarkdownService) Render(markdown string) string {
	if !m.initialized || strings.TrimSpace(markdown) == "" {
		return markdown
	}

	rendered, err := m.renderer.Render(markdown)
	if err != nil {
		logger.Debug("Markdown rendering failed, using plain text", "error", err)
		return markdown
	}

	return rendered
}

// Style returns the Glamour style in use.
func (m *MarkdownService) Style() string {
	return m.style
}
