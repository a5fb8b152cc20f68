package tui

import (
	"fmt"

	"golang.org/x/term"
)

// termBackend isolates golang.org/x/term behind an interface so
// TerminalLifecycle's push/pop balancing can be tested against a fake
// without a real TTY. Pushes/pops are tracked as an explicit stack so every
// exit path (normal quit, panic recovery, signal) can restore exactly what
// it pushed.
type termBackend interface {
	IsTerminal(fd int) bool
	MakeRaw(fd int) (*term.State, error)
	Restore(fd int, state *term.State) error
}

type osTermBackend struct{}

func (osTermBackend) IsTerminal(fd int) bool { return term.IsTerminal(fd) }
func (osTermBackend) MakeRaw(fd int) (*term.State, error) {
	return term.MakeRaw(fd)
}
func (osTermBackend) Restore(fd int, state *term.State) error {
	return term.Restore(fd, state)
}

// TerminalLifecycle saves and restores raw terminal mode across a session,
// so the user's shell always gets its original terminal state back on exit
// regardless of how the program exits. bubbletea's own tea.Program manages
// raw mode and the alt-screen buffer for the duration of Run(); this wrapper
// covers the narrower case of probing and restoring terminal state around
// that call (e.g. on a non-TTY stdin, where Push is a documented no-op
// rather than an error).
type TerminalLifecycle struct {
	fd      int
	backend termBackend
	stack   []*term.State
}

func NewTerminalLifecycle(fd int) *TerminalLifecycle {
	return &TerminalLifecycle{fd: fd, backend: osTermBackend{}}
}

// Push saves the current terminal state and switches to raw mode. On a
// non-TTY fd, it records a nil marker so Pop still balances without
// touching any terminal state.
func (t *TerminalLifecycle) Push() error {
	if !t.backend.IsTerminal(t.fd) {
		t.stack = append(t.stack, nil)
		return nil
	}
	state, err := t.backend.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	t.stack = append(t.stack, state)
	return nil
}

// Pop restores the state saved by the most recent unmatched Push. Calling
// Pop with no outstanding Push is a no-op, not an error — exit paths
// (panic recovery racing a signal handler) may both attempt cleanup.
func (t *TerminalLifecycle) Pop() error {
	if len(t.stack) == 0 {
		return nil
	}
	state := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	if state == nil {
		return nil
	}
	return t.backend.Restore(t.fd, state)
}

// Balanced reports whether every Push so far has a matching Pop.
func (t *TerminalLifecycle) Balanced() bool {
	return len(t.stack) == 0
}
