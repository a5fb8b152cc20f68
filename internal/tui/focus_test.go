package tui

import (
	"testing"

	"github.com/norpie/dynamics-cli-sub003/internal/tui/element"
)

func TestFocusStackPassThroughWhenEmpty(t *testing.T) {
	f := newFocusStack()
	if _, ok := f.current(); ok {
		t.Fatal("expected PassThrough (ok=false) on a fresh focus stack")
	}
}

func TestFocusStackPushThenPopReturnsToPrevious(t *testing.T) {
	f := newFocusStack()
	f.push(element.FocusID("list"))
	f.push(element.FocusID("modal"))

	if cur, ok := f.current(); !ok || cur != "modal" {
		t.Fatalf("expected modal focused, got %q ok=%v", cur, ok)
	}

	f.pop()
	if cur, ok := f.current(); !ok || cur != "list" {
		t.Fatalf("expected list focused after popping modal, got %q ok=%v", cur, ok)
	}

	f.pop()
	if _, ok := f.current(); ok {
		t.Fatal("expected PassThrough after popping the last entry")
	}
}

func TestFocusStackPopOnEmptyIsNoOp(t *testing.T) {
	f := newFocusStack()
	f.pop()
	if _, ok := f.current(); ok {
		t.Fatal("popping an empty stack should not panic or fabricate a focus target")
	}
}
