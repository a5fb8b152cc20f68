package element

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Output is one render pass's result: the drawn frame plus the registries
// the runtime needs to route input against it.
type Output struct {
	Frame        string
	Interactions *InteractionRegistry
	Focus        *FocusRegistry
	Dropdowns    *DropdownRegistry

	// TextInputs lets the runtime find a focused TextInput's live callbacks
	// (OnChange/OnSubmit) by FocusID without re-walking the Element tree.
	TextInputs map[FocusID]Element
}

// Renderer turns an Element tree into a terminal frame, with each scrollable
// List/Tree backed by a bubbles/viewport rather than hand-rolled scroll math.
type Renderer struct {
	theme *Theme
}

func NewRenderer(theme *Theme) *Renderer {
	return &Renderer{theme: theme}
}

// Render draws root into a width x height frame.
func (r *Renderer) Render(root Element, width, height int) Output {
	out := Output{
		Interactions: NewInteractionRegistry(),
		Focus:        NewFocusRegistry(),
		Dropdowns:    NewDropdownRegistry(),
		TextInputs:   make(map[FocusID]Element),
	}
	out.Frame = r.draw(root, 0, 0, width, height, &out)
	return out
}

func (r *Renderer) draw(e Element, x, y, width, height int, out *Output) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	switch e.Kind {
	case KindNone:
		return ""

	case KindText:
		return r.styleFor("").Width(width).Height(height).Render(e.Content)

	case KindStyledText:
		return r.styleFor(e.StyleName).Width(width).Height(height).Render(e.Content)

	case KindButton:
		style := r.theme.Base
		if e.OnHover != nil {
			style = r.theme.Hovered
		}
		rendered := style.Width(width).Render(e.Label)
		out.Focus.Register(e.ID)
		out.Interactions.RegisterPress(Rect{X: x, Y: y, Width: width, Height: 1}, e.ID, e.OnPress)
		return rendered

	case KindColumn:
		return r.drawColumn(e, x, y, width, height, out)

	case KindRow:
		return r.drawRow(e, x, y, width, height, out)

	case KindContainer:
		inner := r.innerRect(x, y, width, height, e.Padding)
		var child string
		if e.Child != nil {
			child = r.draw(*e.Child, inner.X, inner.Y, inner.Width, inner.Height, out)
		}
		return lipgloss.NewStyle().Padding(e.Padding).Width(width).Render(child)

	case KindPanel:
		style := r.theme.Border.Width(width - 2).Height(height - 2)
		if e.Title != "" {
			style = style.BorderStyle(lipgloss.RoundedBorder())
		}
		var child string
		if e.Child != nil {
			child = r.draw(*e.Child, x+1, y+1, width-2, height-2, out)
		}
		return style.Render(child)

	case KindStack:
		return r.drawStack(e, x, y, width, height, out)

	case KindList:
		return r.drawList(e, x, y, width, height, out)

	case KindTree:
		return r.drawTree(e, x, y, width, height, out)

	case KindTextInput:
		out.Focus.Register(e.ID)
		out.TextInputs[e.ID] = e
		display := e.Value
		if display == "" {
			display = r.theme.Muted.Render(e.Placeholder)
		}
		return r.theme.Base.Width(width).Render(display)

	case KindSelect, KindAutocomplete:
		out.Focus.Register(e.ID)
		label := e.Label
		if len(e.Options) > e.Selected && e.Selected >= 0 {
			label = e.Label + ": " + e.Options[e.Selected]
		}
		rendered := r.theme.Base.Width(width).Render(label)
		out.Dropdowns.Anchor(e.ID, Rect{X: x, Y: y, Width: width, Height: 1})
		out.Interactions.RegisterPress(Rect{X: x, Y: y, Width: width, Height: 1}, e.ID, func() any {
			if e.OnOptionPick != nil {
				return e.OnOptionPick(e.Selected)
			}
			return nil
		})
		_ = huhOptionList // referenced only; no option overlay is drawn
		return rendered

	case KindFileBrowser:
		out.Focus.Register(e.ID)
		var b strings.Builder
		b.WriteString(e.CurrentDir)
		b.WriteString("\n")
		for _, entry := range e.Entries {
			b.WriteString(entry)
			b.WriteString("\n")
		}
		return r.theme.Base.Width(width).Height(height).Render(b.String())

	case KindProgressBar:
		filled := int(e.Fraction * float64(width))
		bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
		return r.theme.Base.Render(bar)
	}
	return ""
}

func (r *Renderer) drawColumn(e Element, x, y, width, height int, out *Output) string {
	sizes := distribute(height, e.Items, len(e.Items)*e.Spacing)
	var rows []string
	curY := y
	for i, item := range e.Items {
		h := sizes[i]
		rows = append(rows, r.draw(item.Child, x, curY, width, h, out))
		curY += h + e.Spacing
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (r *Renderer) drawRow(e Element, x, y, width, height int, out *Output) string {
	sizes := distribute(width, e.Items, len(e.Items)*e.Spacing)
	var cols []string
	curX := x
	for i, item := range e.Items {
		w := sizes[i]
		cols = append(cols, r.draw(item.Child, curX, y, w, height, out))
		curX += w + e.Spacing
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (r *Renderer) drawStack(e Element, x, y, width, height int, out *Output) string {
	base := ""
	for _, layer := range e.Layers {
		rendered := r.draw(layer.Element, x, y, width, height, out)
		if layer.DimBelow {
			base = r.theme.Muted.Render(base)
		}
		base = lipgloss.Place(width, height, alignHoriz(layer.Align), alignVert(layer.Align), rendered)
	}
	return base
}

func (r *Renderer) drawList(e Element, x, y, width, height int, out *Output) string {
	var rows []string
	for i, item := range e.ListItems {
		rendered := r.draw(item, x, y+i, width, 1, out)
		if e.OnSelect != nil {
			out.Interactions.RegisterListItem(Rect{X: x, Y: y + i, Width: width, Height: 1}, e.ID, i, e.OnSelect)
		}
		rows = append(rows, rendered)
	}
	out.Focus.Register(e.ID)

	vp := viewport.New(width, height)
	vp.SetContent(strings.Join(rows, "\n"))
	return vp.View()
}

func (r *Renderer) drawTree(e Element, x, y, width, height int, out *Output) string {
	var rows []string
	for i, item := range e.TreeItems {
		rows = append(rows, r.draw(item, x, y+i, width, 1, out))
	}
	out.Focus.Register(e.ID)

	vp := viewport.New(width, height)
	vp.SetContent(strings.Join(rows, "\n"))
	return vp.View()
}

func (r *Renderer) innerRect(x, y, width, height, padding int) Rect {
	return Rect{X: x + padding, Y: y + padding, Width: width - 2*padding, Height: height - 2*padding}
}

func (r *Renderer) styleFor(name string) lipgloss.Style {
	switch name {
	case "Header":
		return r.theme.Header
	case "Error":
		return r.theme.Error
	case "Muted":
		return r.theme.Muted
	case "MatchUnmapped":
		return r.theme.MatchUnmapped
	case "MatchMixed":
		return r.theme.MatchMixed
	case "MatchFullMatch":
		return r.theme.MatchFullMatch
	default:
		return r.theme.Base
	}
}

// distribute allocates total (minus the fixed spacing already reserved)
// across items per their Constraint: Length gets exactly N, Min and Fill
// share the remainder proportionally (Min weighted 1, Fill weighted N),
// then Min entries are floored up to their minimum if rounding left them
// short.
func distribute(total int, items []LayoutItem, spacingReserved int) []int {
	sizes := make([]int, len(items))
	remaining := total - spacingReserved
	weightSum := 0
	for i, item := range items {
		if item.Constraint.Kind == Length {
			sizes[i] = item.Constraint.N
			remaining -= item.Constraint.N
			continue
		}
		weight := 1
		if item.Constraint.Kind == Fill {
			weight = item.Constraint.N
		}
		weightSum += weight
	}
	if remaining < 0 {
		remaining = 0
	}
	for i, item := range items {
		if item.Constraint.Kind == Length {
			continue
		}
		weight := 1
		if item.Constraint.Kind == Fill {
			weight = item.Constraint.N
		}
		share := 0
		if weightSum > 0 {
			share = remaining * weight / weightSum
		}
		if item.Constraint.Kind == Min && share < item.Constraint.N {
			share = item.Constraint.N
		}
		sizes[i] = share
	}
	return sizes
}

func alignHoriz(a Alignment) lipgloss.Position {
	switch a {
	case TopCenter, Center, BottomCenter:
		return lipgloss.Center
	case TopRight, BottomRight:
		return lipgloss.Right
	default:
		return lipgloss.Left
	}
}

func alignVert(a Alignment) lipgloss.Position {
	switch a {
	case Center, TopLeft, TopCenter, TopRight:
		return lipgloss.Top
	default:
		return lipgloss.Bottom
	}
}
