package element

import "github.com/charmbracelet/huh"

// Select is a focusable dropdown over a fixed option list. The Renderer
// draws its trigger row (label and current option), registers it for focus
// and clicks, and records its rect in the DropdownRegistry; it does not draw
// an option-list overlay. Selection and keyboard handling stay owned by this
// package's own Msg plumbing so a Select composes with the rest of the
// Element tree the same way a Button does.
func Select(id FocusID, label string, options []string, selected int, onPick func(index int) any) Element {
	return Element{
		Kind:         KindSelect,
		ID:           id,
		Label:        label,
		Options:      options,
		Selected:     selected,
		OnOptionPick: onPick,
	}
}

// Autocomplete is a Select whose option list is filtered by FilterQuery as
// the user types (prefix mapping lookups, entity pickers).
func Autocomplete(id FocusID, label string, options []string, filterQuery string, selected int, onPick func(index int) any) Element {
	return Element{
		Kind:         KindAutocomplete,
		ID:           id,
		Label:        label,
		Options:      options,
		FilterQuery:  filterQuery,
		Selected:     selected,
		OnOptionPick: onPick,
	}
}

// huhOptionList renders a read-only option list with huh's own Select field
// styling. Neither the Renderer nor the runtime calls it.
func huhOptionList(options []string, selected int) string {
	huhOpts := make([]huh.Option[int], len(options))
	for i, opt := range options {
		huhOpts[i] = huh.NewOption(opt, i)
	}
	field := huh.NewSelect[int]().
		Options(huhOpts...).
		Value(&selected)
	return field.View()
}
