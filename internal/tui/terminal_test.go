package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

// fakeTermBackend is a termBackend that never touches a real TTY, so
// push/pop balancing is testable without a terminal attached to the test
// process.
type fakeTermBackend struct {
	isTerminal  bool
	makeRawErr  error
	restoreErr  error
	restoreCalls int
}

func (f *fakeTermBackend) IsTerminal(fd int) bool { return f.isTerminal }
func (f *fakeTermBackend) MakeRaw(fd int) (*term.State, error) {
	if f.makeRawErr != nil {
		return nil, f.makeRawErr
	}
	return &term.State{}, nil
}
func (f *fakeTermBackend) Restore(fd int, state *term.State) error {
	f.restoreCalls++
	return f.restoreErr
}

func TestTerminalLifecyclePushPopBalances(t *testing.T) {
	backend := &fakeTermBackend{isTerminal: true}
	tl := &TerminalLifecycle{fd: 0, backend: backend}

	require.NoError(t, tl.Push())
	assert.False(t, tl.Balanced())

	require.NoError(t, tl.Pop())
	assert.True(t, tl.Balanced())
	assert.Equal(t, 1, backend.restoreCalls)
}

func TestTerminalLifecycleNestedPushPopBalances(t *testing.T) {
	backend := &fakeTermBackend{isTerminal: true}
	tl := &TerminalLifecycle{fd: 0, backend: backend}

	require.NoError(t, tl.Push())
	require.NoError(t, tl.Push())
	assert.False(t, tl.Balanced())

	require.NoError(t, tl.Pop())
	assert.False(t, tl.Balanced())
	require.NoError(t, tl.Pop())
	assert.True(t, tl.Balanced())
	assert.Equal(t, 2, backend.restoreCalls)
}

func TestTerminalLifecyclePopWithoutPushIsNoOp(t *testing.T) {
	backend := &fakeTermBackend{isTerminal: true}
	tl := &TerminalLifecycle{fd: 0, backend: backend}

	require.NoError(t, tl.Pop())
	assert.Equal(t, 0, backend.restoreCalls)
}

func TestTerminalLifecycleNonTTYPushIsNoOpButStillBalances(t *testing.T) {
	backend := &fakeTermBackend{isTerminal: false}
	tl := &TerminalLifecycle{fd: 0, backend: backend}

	require.NoError(t, tl.Push())
	assert.False(t, tl.Balanced())
	require.NoError(t, tl.Pop())
	assert.True(t, tl.Balanced())
	assert.Equal(t, 0, backend.restoreCalls, "non-TTY push must never call Restore")
}

func TestTerminalLifecycleMakeRawErrorDoesNotPushState(t *testing.T) {
	backend := &fakeTermBackend{isTerminal: true, makeRawErr: errors.New("ioctl failed")}
	tl := &TerminalLifecycle{fd: 0, backend: backend}

	err := tl.Push()
	assert.Error(t, err)
	assert.True(t, tl.Balanced(), "a failed Push must not leave an unmatched stack entry")
}
