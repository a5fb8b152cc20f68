package element

// ListItem renders one row of a virtual-scrolling List. Implementations are
// typically a thin wrapper around a domain struct (a QueueItem, an
// Environment) — see internal/tui/apps for concrete examples.
type ListItem interface {
	ToElement(theme *Theme, isSelected, isHovered bool) Element
}

// ListState is the scroll/selection state a List element renders against,
// owned by the App (not the renderer) so it survives across frames.
type ListState struct {
	Selected     int
	ScrollOffset int
	// ScrollOff is the minimum number of rows kept visible above/below the
	// selection when scrolling.
	ScrollOff int
}

// NewListState starts at the top with a 2-row scroll margin.
func NewListState() *ListState {
	return &ListState{ScrollOff: 2}
}

// EnsureVisible adjusts ScrollOffset so Selected stays within the scrolloff
// margin of a viewport height rows tall.
func (s *ListState) EnsureVisible(height int) {
	if height <= 0 {
		return
	}
	margin := s.ScrollOff
	if margin*2 >= height {
		margin = 0
	}
	if s.Selected < s.ScrollOffset+margin {
		s.ScrollOffset = s.Selected - margin
	}
	if s.Selected > s.ScrollOffset+height-1-margin {
		s.ScrollOffset = s.Selected - height + 1 + margin
	}
	if s.ScrollOffset < 0 {
		s.ScrollOffset = 0
	}
}

// NewList windows items to the visible range (ensuring selection stays
// visible first) and renders only that window, giving O(viewport) render
// cost regardless of len(items) — needed for queue/comparison lists with
// thousands of rows.
func NewList[T ListItem](id FocusID, items []T, state *ListState, height int, theme *Theme,
	onSelect func(int) any, onActivate func(int) any) Element {

	if state == nil {
		state = NewListState()
	}
	if state.Selected >= len(items) {
		state.Selected = len(items) - 1
	}
	if state.Selected < 0 {
		state.Selected = 0
	}
	state.EnsureVisible(height)

	start := state.ScrollOffset
	end := start + height
	if end > len(items) || height <= 0 {
		end = len(items)
	}
	if start > end {
		start = end
	}

	rendered := make([]Element, 0, end-start)
	for i := start; i < end; i++ {
		rendered = append(rendered, items[i].ToElement(theme, i == state.Selected, false))
	}

	return Element{
		Kind:       KindList,
		ID:         id,
		ListItems:  rendered,
		ListState:  state,
		OnSelect:   onSelect,
		OnActivate: onActivate,
	}
}
