// Package element implements a declarative Element sum type, its Renderer,
// and the registries a render pass produces (InteractionRegistry,
// FocusRegistry, DropdownRegistry). Rendering composes
// charmbracelet/lipgloss (styling), charmbracelet/bubbles/viewport
// (List/Tree's scrollable region) and muesli/termenv (terminal color profile
// detection); select.go also holds a charmbracelet/huh option-list helper
// that the Renderer does not call.
package element

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the shared palette/style set every Element renders against.
type Theme struct {
	Profile termenv.Profile

	Base     lipgloss.Style
	Border   lipgloss.Style
	Selected lipgloss.Style
	Hovered  lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
	Header   lipgloss.Style
	Focused  lipgloss.Style

	// Match-state colors mirror internal/comparison's Red/Yellow/Green
	// propagation so tree renderers can color a node by its MappingType
	// without this package importing internal/comparison.
	MatchUnmapped  lipgloss.Style
	MatchMixed     lipgloss.Style
	MatchFullMatch lipgloss.Style
}

// NewDefaultTheme detects the terminal's color profile via termenv and
// builds a Theme whose styles degrade gracefully on a no-color or 256-color
// terminal (lipgloss itself does the per-profile color substitution once
// lipgloss.SetColorProfile mirrors what termenv detected).
func NewDefaultTheme() *Theme {
	profile := termenv.ColorProfile()
	lipgloss.SetColorProfile(termenv.Profile(profile))

	return &Theme{
		Profile:  profile,
		Base:     lipgloss.NewStyle(),
		Border:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		Selected: lipgloss.NewStyle().Reverse(true).Bold(true),
		Hovered:  lipgloss.NewStyle().Underline(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		Focused:  lipgloss.NewStyle().BorderForeground(lipgloss.Color("33")),

		MatchUnmapped:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		MatchMixed:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		MatchFullMatch: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}
