package tui

import "github.com/norpie/dynamics-cli-sub003/internal/tui/element"

// focusStack is one App's focus history: SetFocus pushes, losing a modal
// pops back to whatever had focus before it. An empty stack means
// PassThrough — unhandled keys fall back to the App's global Keyboard
// subscriptions instead of a focused element's own input handling.
type focusStack struct {
	stack []element.FocusID
}

func newFocusStack() *focusStack {
	return &focusStack{}
}

func (f *focusStack) push(id element.FocusID) {
	f.stack = append(f.stack, id)
}

// pop removes the current focus target, returning to whatever was focused
// before it (or PassThrough if the stack is now empty).
func (f *focusStack) pop() {
	if len(f.stack) == 0 {
		return
	}
	f.stack = f.stack[:len(f.stack)-1]
}

// current returns the focused element, or ("", false) for PassThrough.
func (f *focusStack) current() (element.FocusID, bool) {
	if len(f.stack) == 0 {
		return "", false
	}
	return f.stack[len(f.stack)-1], true
}
