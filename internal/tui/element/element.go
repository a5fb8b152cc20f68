package element

// FocusID names one focusable element within a rendered view. Defined here
// (not imported from package tui) so this package has no dependency on the
// runtime — App code converts between tui.FocusID and element.FocusID at the
// view-construction boundary, both being plain strings.
type FocusID string

// ConstraintKind discriminates how a Constraint sizes a Column/Row child.
type ConstraintKind int

const (
	Length ConstraintKind = iota
	Min
	Fill
)

// Constraint sizes one child of a Column/Row.
type Constraint struct {
	Kind ConstraintKind
	N    int // Length: exact size. Min: minimum size. Fill: weight.
}

func LengthC(n int) Constraint { return Constraint{Kind: Length, N: n} }
func MinC(n int) Constraint    { return Constraint{Kind: Min, N: n} }
func FillC(weight int) Constraint {
	if weight <= 0 {
		weight = 1
	}
	return Constraint{Kind: Fill, N: weight}
}

// LayoutItem pairs one Column/Row child with its sizing constraint.
type LayoutItem struct {
	Constraint Constraint
	Child      Element
}

// Alignment positions a Layer within a Stack.
type Alignment int

const (
	TopLeft Alignment = iota
	TopCenter
	TopRight
	Center
	BottomLeft
	BottomCenter
	BottomRight
)

// Layer is one member of a Stack.
type Layer struct {
	Element  Element
	Align    Alignment
	DimBelow bool
}

// Kind discriminates the Element tagged union.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindStyledText
	KindButton
	KindColumn
	KindRow
	KindContainer
	KindPanel
	KindStack
	KindList
	KindTextInput
	KindTree
	KindSelect
	KindAutocomplete
	KindFileBrowser
	KindProgressBar
)

// Element is the declarative UI tree every App.View returns. Exactly the
// fields relevant to Kind are meaningful; use the constructor functions
// rather than struct literals so a new variant's zero-valued fields can't be
// mistaken for an intentional empty value.
type Element struct {
	Kind Kind

	// Text, StyledText
	Content    string
	StyleName  string // looked up against a Theme field by the renderer
	Background bool

	// Button, List, TextInput, Tree, Select, Autocomplete, FileBrowser
	ID FocusID

	// Button
	Label       string
	OnPress     func() any
	OnHover     func() any
	OnHoverExit func() any
	OnFocus     func() any
	OnBlur      func() any

	// Column, Row
	Items   []LayoutItem
	Spacing int

	// Container, Panel
	Child   *Element
	Padding int
	Title   string

	// Stack
	Layers []Layer

	// List
	ListItems    []Element // pre-rendered, windowed to the visible range
	ListState    *ListState
	OnSelect     func(index int) any
	OnActivate   func(index int) any

	// TextInput
	Value       string
	CursorPos   int
	Placeholder string
	MaxLength   int
	OnChange    func(value string) any
	OnSubmit    func() any

	// Tree
	TreeItems []Element
	TreeState *TreeState

	// Select, Autocomplete
	Options       []string
	Selected      int
	OnOptionPick  func(index int) any
	FilterQuery   string // Autocomplete only

	// FileBrowser
	CurrentDir string
	Entries    []string

	// ProgressBar
	Fraction float64
}

// None renders nothing.
func None() Element { return Element{Kind: KindNone} }

// Text renders a single unstyled line.
func Text(content string) Element { return Element{Kind: KindText, Content: content} }

// StyledText renders content through the Theme style named styleName
// (e.g. "Header", "Error", "MatchFullMatch" — see Theme's fields).
func StyledText(content, styleName string) Element {
	return Element{Kind: KindStyledText, Content: content, StyleName: styleName}
}

// Button is a focusable, clickable label.
func Button(id FocusID, label string) Element {
	return Element{Kind: KindButton, ID: id, Label: label}
}

// Column lays items out top to bottom per their Constraint.
func Column(spacing int, items ...LayoutItem) Element {
	return Element{Kind: KindColumn, Items: items, Spacing: spacing}
}

// Row lays items out left to right per their Constraint.
func Row(spacing int, items ...LayoutItem) Element {
	return Element{Kind: KindRow, Items: items, Spacing: spacing}
}

// Container adds uniform padding around a single child.
func Container(child Element, padding int) Element {
	return Element{Kind: KindContainer, Child: &child, Padding: padding}
}

// Panel draws a border around a single child. title is kept on the Element;
// the Renderer does not draw it.
func Panel(child Element, title string) Element {
	return Element{Kind: KindPanel, Child: &child, Title: title}
}

// Stack overlays layers, later entries drawn on top of earlier ones.
func Stack(layers ...Layer) Element {
	return Element{Kind: KindStack, Layers: layers}
}

// TextInput is a focusable single-line editable field.
func TextInput(id FocusID, value, placeholder string, cursorPos int) Element {
	return Element{Kind: KindTextInput, ID: id, Value: value, Placeholder: placeholder, CursorPos: cursorPos}
}

// ProgressBar renders fraction (clamped 0..1) as a filled bar.
func ProgressBar(fraction float64) Element {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return Element{Kind: KindProgressBar, Fraction: fraction}
}

// FileBrowser renders a directory listing rooted at currentDir.
func FileBrowser(id FocusID, currentDir string, entries []string) Element {
	return Element{Kind: KindFileBrowser, ID: id, CurrentDir: currentDir, Entries: entries}
}
