package element

// TreeItem renders one node of a virtual-scrolling Tree. ID must be stable
// across frames.
type TreeItem interface {
	ID() string
	HasChildren() bool
	Children() []TreeItem
	ToElement(theme *Theme, depth int, isSelected, isExpanded bool) Element
}

// TreeState tracks expansion, selection and scrolling, with a DFS-order
// cache so recomputing the visible window on every frame doesn't require
// re-walking the whole tree on every frame.
type TreeState struct {
	expanded map[string]bool
	selected string
	scrollOffset int
	scrollOff    int

	nodeParents map[string]string
	nodeDepths  map[string]int
	visibleOrder []string
	cacheValid   bool
}

// NewTreeState starts with nothing expanded or selected.
func NewTreeState() *TreeState {
	return &TreeState{
		expanded:     make(map[string]bool),
		nodeParents:  make(map[string]string),
		nodeDepths:   make(map[string]int),
		scrollOff:    3,
	}
}

func (s *TreeState) Selected() string       { return s.selected }
func (s *TreeState) Select(id string)        { s.selected = id }
func (s *TreeState) IsExpanded(id string) bool { return s.expanded[id] }

func (s *TreeState) Expand(id string) {
	s.expanded[id] = true
	s.cacheValid = false
}

func (s *TreeState) Collapse(id string) {
	delete(s.expanded, id)
	s.cacheValid = false
}

func (s *TreeState) Toggle(id string) {
	if s.expanded[id] {
		s.Collapse(id)
	} else {
		s.Expand(id)
	}
}

// rebuild recomputes visibleOrder/nodeParents/nodeDepths via DFS, skipping
// the children of any node that isn't expanded. Called lazily from
// VisibleOrder whenever the expansion set has changed since the last call.
func (s *TreeState) rebuild(roots []TreeItem) {
	s.visibleOrder = s.visibleOrder[:0]
	s.nodeParents = make(map[string]string)
	s.nodeDepths = make(map[string]int)

	var walk func(items []TreeItem, parent string, depth int)
	walk = func(items []TreeItem, parent string, depth int) {
		for _, item := range items {
			id := item.ID()
			s.visibleOrder = append(s.visibleOrder, id)
			s.nodeDepths[id] = depth
			if parent != "" {
				s.nodeParents[id] = parent
			}
			if item.HasChildren() && s.expanded[id] {
				walk(item.Children(), id, depth+1)
			}
		}
	}
	walk(roots, "", 0)
	s.cacheValid = true
}

// VisibleOrder returns the DFS-order list of currently visible node IDs,
// rebuilding the cache first if the expansion set changed.
func (s *TreeState) VisibleOrder(roots []TreeItem) []string {
	if !s.cacheValid {
		s.rebuild(roots)
	}
	return s.visibleOrder
}

func (s *TreeState) DepthOf(id string) int    { return s.nodeDepths[id] }
func (s *TreeState) ParentOf(id string) string { return s.nodeParents[id] }

// indexOf returns the position of id within the visible order, or -1.
func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

// itemsByID walks the same structure rebuild uses, needed to resolve a
// visible-order ID back to its TreeItem for rendering.
func itemsByID(roots []TreeItem, expanded map[string]bool) map[string]TreeItem {
	out := make(map[string]TreeItem)
	var walk func(items []TreeItem)
	walk = func(items []TreeItem) {
		for _, item := range items {
			out[item.ID()] = item
			if item.HasChildren() && expanded[item.ID()] {
				walk(item.Children())
			}
		}
	}
	walk(roots)
	return out
}

// NewTree windows the visible DFS order to height rows around the current
// selection (same scroll-margin logic as NewList) and renders only that
// window.
func NewTree(id FocusID, roots []TreeItem, state *TreeState, height int, theme *Theme) Element {
	if state == nil {
		state = NewTreeState()
	}
	order := state.VisibleOrder(roots)
	if state.selected == "" && len(order) > 0 {
		state.selected = order[0]
	}

	sel := indexOf(order, state.selected)
	if sel < 0 {
		sel = 0
	}

	listState := &ListState{Selected: sel, ScrollOffset: state.scrollOffset, ScrollOff: state.scrollOff}
	listState.EnsureVisible(height)
	state.scrollOffset = listState.ScrollOffset

	start := listState.ScrollOffset
	end := start + height
	if end > len(order) || height <= 0 {
		end = len(order)
	}
	if start > end {
		start = end
	}

	byID := itemsByID(roots, state.expanded)
	rendered := make([]Element, 0, end-start)
	for i := start; i < end; i++ {
		nodeID := order[i]
		item, ok := byID[nodeID]
		if !ok {
			continue
		}
		rendered = append(rendered, item.ToElement(theme, state.nodeDepths[nodeID], i == sel, state.expanded[nodeID]))
	}

	return Element{Kind: KindTree, ID: id, TreeItems: rendered, TreeState: state}
}
