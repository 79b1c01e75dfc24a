package services

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmchat/internal/testutils"
)

func setupRender(t *testing.T) *RenderService {
	t.Helper()
	render := NewRenderService()
	require.NoError(t, render.Initialize())
	return render
}

func TestRenderService_ServerLabel(t *testing.T) {
	render := setupRender(t)
	profiles := testutils.TwoProviderRegistry()

	label := ansi.Strip(render.ServerLabel(profiles[0]))
	assert.Equal(t, "A", label)
}

func TestRenderService_ServerList(t *testing.T) {
	render := setupRender(t)
	profiles := testutils.TwoProviderRegistry()
	profiles[1].Description = "backup"

	list := ansi.Strip(render.ServerList(profiles, 1))
	lines := strings.Split(strings.TrimRight(list, "\n"), "\n")

	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  1. A"))
	assert.True(t, strings.HasPrefix(lines[1], "▸ 2. B"))
	assert.Contains(t, lines[1], "backup")
}

func TestRenderService_QuickReplyChips(t *testing.T) {
	tests := []struct {
		name     string
		replies  []string
		width    int
		contains []string
		empty    bool
	}{
		{name: "none", replies: nil, empty: true},
		{name: "numbered", replies: []string{"Thanks", "Tell me more"}, contains: []string{"/1 Thanks", "/2 Tell me more"}},
		{name: "truncated", replies: []string{"This reply is much longer than the chip width allows"}, width: 12, contains: []string{"/1 This rep…"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			render := setupRender(t)
			render.SetChipWidth(tt.width)

			chips := ansi.Strip(render.QuickReplyChips(tt.replies))
			if tt.empty {
				assert.Empty(t, chips)
				return
			}
			for _, expected := range tt.contains {
				assert.Contains(t, chips, expected)
			}
		})
	}
}

func TestRenderService_TextStyles(t *testing.T) {
	render := setupRender(t)

	assert.Equal(t, "thinking", ansi.Strip(render.Muted("thinking")))
	assert.Equal(t, "offline", ansi.Strip(render.Failure("offline")))
}
