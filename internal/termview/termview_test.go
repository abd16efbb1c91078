package termview

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/musetheory-go/internal/keyboard"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestRenderRows(t *testing.T) {
	out := Render(keyboard.Layout(keyboard.NewHighlightSet("C", "E", "G")))
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)

	naturals := strings.Fields(lines[1])
	assert.Equal(t, []string{
		"C", "D", "E", "F", "G", "A", "B",
		"C", "D", "E", "F", "G", "A", "B",
		"C",
	}, naturals)
	assert.Len(t, strings.Fields(lines[0]), 10)
	assert.Equal(t, 15*4, lipgloss.Width(lines[1]))
}

func TestRenderTitled(t *testing.T) {
	slots := keyboard.Layout(nil)
	out := RenderTitled("C Major Scale", slots)
	assert.True(t, strings.HasPrefix(out, "C Major Scale"))
	assert.Equal(t, Render(slots), RenderTitled("  ", slots))
}
