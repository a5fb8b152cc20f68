package element

import "testing"

type stringItem string

func (s stringItem) ToElement(theme *Theme, isSelected, isHovered bool) Element {
	return Text(string(s))
}

func TestListStateEnsureVisibleScrollsDownPastMargin(t *testing.T) {
	s := &ListState{ScrollOff: 2}
	s.Selected = 10
	s.EnsureVisible(5)
	if s.ScrollOffset != 8 {
		t.Fatalf("expected scroll offset 8 (selected 10, height 5, margin 2), got %d", s.ScrollOffset)
	}
}

func TestListStateEnsureVisibleScrollsUpWhenSelectionAboveWindow(t *testing.T) {
	s := &ListState{ScrollOffset: 20, ScrollOff: 2}
	s.Selected = 5
	s.EnsureVisible(5)
	if s.ScrollOffset != 3 {
		t.Fatalf("expected scroll offset 3 (selected 5, margin 2), got %d", s.ScrollOffset)
	}
}

func TestNewListWindowsToVisibleRangeOnly(t *testing.T) {
	items := make([]stringItem, 100)
	for i := range items {
		items[i] = stringItem("row")
	}
	state := &ListState{Selected: 50, ScrollOff: 2}
	theme := NewDefaultTheme()

	el := NewList[stringItem]("q", items, state, 10, theme, nil, nil)

	if len(el.ListItems) != 10 {
		t.Fatalf("expected exactly 10 rendered rows for a height-10 viewport over 100 items, got %d", len(el.ListItems))
	}
}

func TestNewListClampsSelectedWithinBounds(t *testing.T) {
	items := []stringItem{"a", "b", "c"}
	state := &ListState{Selected: 99}
	theme := NewDefaultTheme()

	el := NewList[stringItem]("q", items, state, 10, theme, nil, nil)

	if el.ListState.Selected != 2 {
		t.Fatalf("expected selection clamped to last index 2, got %d", el.ListState.Selected)
	}
}
