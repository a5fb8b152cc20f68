package element

// Rect is a screen-space region in terminal cells, used to route mouse
// events and to anchor dropdown overlays.
type Rect struct {
	X, Y, Width, Height int
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// InteractionRegistry maps the screen regions a render pass drew to the
// callbacks that region's Element carries, so the runtime can turn a mouse
// click at (x, y) into the right Msg without re-walking the Element tree.
type InteractionRegistry struct {
	entries []interactionEntry
}

type interactionEntry struct {
	rect     Rect
	id       FocusID
	onPress  func() any
	onSelect func(int) any
	itemRect Rect // sub-row rect for list/tree item clicks, relative offset baked in
	item     int
}

func NewInteractionRegistry() *InteractionRegistry { return &InteractionRegistry{} }

func (r *InteractionRegistry) RegisterPress(rect Rect, id FocusID, onPress func() any) {
	r.entries = append(r.entries, interactionEntry{rect: rect, id: id, onPress: onPress})
}

func (r *InteractionRegistry) RegisterListItem(rowRect Rect, id FocusID, index int, onSelect func(int) any) {
	r.entries = append(r.entries, interactionEntry{rect: rowRect, id: id, onSelect: onSelect, item: index})
}

// HitTest returns the Msg produced by clicking (x, y), if any region there
// has a registered handler.
func (r *InteractionRegistry) HitTest(x, y int) (any, bool) {
	for i := len(r.entries) - 1; i >= 0; i-- { // last-drawn (topmost) wins
		e := r.entries[i]
		if !e.rect.Contains(x, y) {
			continue
		}
		if e.onPress != nil {
			return e.onPress(), true
		}
		if e.onSelect != nil {
			return e.onSelect(e.item), true
		}
	}
	return nil, false
}

// FocusRegistry lists every focusable FocusID a render pass drew, in tab
// order, so Tab/Shift+Tab can cycle without the App tracking layout itself.
type FocusRegistry struct {
	order []FocusID
}

func NewFocusRegistry() *FocusRegistry { return &FocusRegistry{} }

func (r *FocusRegistry) Register(id FocusID) { r.order = append(r.order, id) }

func (r *FocusRegistry) Next(current FocusID) (FocusID, bool) {
	return r.step(current, 1)
}

func (r *FocusRegistry) Prev(current FocusID) (FocusID, bool) {
	return r.step(current, -1)
}

func (r *FocusRegistry) step(current FocusID, delta int) (FocusID, bool) {
	if len(r.order) == 0 {
		return "", false
	}
	idx := 0
	for i, id := range r.order {
		if id == current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(r.order)) % len(r.order)
	return r.order[idx], true
}

// DropdownRegistry records the rect each Select/Autocomplete trigger
// rendered at, keyed by FocusID. The Renderer fills it; neither the Renderer
// nor the runtime draws an option overlay from it.
type DropdownRegistry struct {
	anchors map[FocusID]Rect
}

func NewDropdownRegistry() *DropdownRegistry {
	return &DropdownRegistry{anchors: make(map[FocusID]Rect)}
}

func (r *DropdownRegistry) Anchor(id FocusID, rect Rect) { r.anchors[id] = rect }
func (r *DropdownRegistry) RectFor(id FocusID) (Rect, bool) {
	rect, ok := r.anchors[id]
	return rect, ok
}
