// Package termview draws the key layout in a terminal.
package termview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/musetheory-go/internal/keyboard"
)

var (
	naturalStyle = lipgloss.NewStyle().
			Width(4).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#F5F5F5"))
	raisedStyle = lipgloss.NewStyle().
			Width(4).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color("#DDDDDD")).
			Background(lipgloss.Color("#222222"))
	litStyle = lipgloss.NewStyle().
			Width(4).
			Align(lipgloss.Center).
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD700"))
	gapStyle   = lipgloss.NewStyle().Width(4)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
)

// Render draws two rows: raised keys above the natural key they follow, then
// the naturals left to right. Highlighted keys are drawn lit.
func Render(slots []keyboard.KeySlot) string {
	var top, bottom []string
	for _, s := range slots {
		if s.Raised {
			continue
		}
		bottom = append(bottom, cell(s.Note, s.Highlighted, naturalStyle))
		if !s.HasRaisedNeighbor {
			top = append(top, gapStyle.Render(""))
			continue
		}
		next := slots[s.Index+1]
		top = append(top, cell(next.Note, s.NeighborHighlighted, raisedStyle))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, top...),
		lipgloss.JoinHorizontal(lipgloss.Top, bottom...),
	)
}

// RenderTitled renders the keyboard under a heading.
func RenderTitled(title string, slots []keyboard.KeySlot) string {
	if strings.TrimSpace(title) == "" {
		return Render(slots)
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), Render(slots))
}

func cell(note string, lit bool, base lipgloss.Style) string {
	if lit {
		return litStyle.Render(note)
	}
	return base.Render(note)
}
