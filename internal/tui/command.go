// Package tui is the TUI Runtime: a Model-View-Update runtime where each App
// owns its own state and is driven by Command/Subscription sums, hosted
// inside a MultiAppRuntime that implements bubbletea's tea.Model.
package tui

import "context"

// AppID names one registered App within a MultiAppRuntime.
type AppID string

// FocusID names one focusable element within an App's current view.
type FocusID string

// Msg is delivered to App.Update. Concrete message types are defined by
// each App; the runtime and event bus route them opaquely.
type Msg any

// CommandKind discriminates the Command tagged union.
type CommandKind int

const (
	CmdNone CommandKind = iota
	CmdBatch
	CmdQuit
	CmdNavigateTo
	CmdStartApp
	CmdQuitSelf
	CmdSetFocus
	CmdPublish
	CmdPerform
)

// Command is the sum type an App's Init/Update return to request runtime
// effects. Exactly the fields relevant to Kind are meaningful; use the
// constructors below rather than the struct literal.
type Command struct {
	Kind CommandKind

	BatchCmds []Command // CmdBatch, executed in declaration order

	NavigateToApp AppID // CmdNavigateTo

	StartAppID     AppID // CmdStartApp
	StartAppParams any   // CmdStartApp

	FocusTarget FocusID // CmdSetFocus

	PublishTopic string // CmdPublish
	PublishData  any    // CmdPublish

	// Perform runs asynchronously on the task pool; its result is delivered
	// to App.Update as exactly one Msg on a later runtime tick.
	Perform func(ctx context.Context) Msg // CmdPerform
}

// NoCommand is the identity Command — nothing happens.
func NoCommand() Command { return Command{Kind: CmdNone} }

// Batch runs every cmd in declaration order within the same tick; the Msgs
// their async work eventually produces are not ordered relative to each
// other.
func Batch(cmds ...Command) Command {
	return Command{Kind: CmdBatch, BatchCmds: cmds}
}

// Quit tears down the whole MultiAppRuntime.
func Quit() Command { return Command{Kind: CmdQuit} }

// NavigateTo switches the active app to an already-running instance of id,
// preserving its state. Starting a fresh instance is StartApp.
func NavigateTo(id AppID) Command { return Command{Kind: CmdNavigateTo, NavigateToApp: id} }

// StartApp creates (or replaces) a running instance of id, calling its
// Init(params) before making it active.
func StartApp(id AppID, params any) Command {
	return Command{Kind: CmdStartApp, StartAppID: id, StartAppParams: params}
}

// QuitSelf removes the currently active app and returns to whichever app
// was active before it.
func QuitSelf() Command { return Command{Kind: CmdQuitSelf} }

// SetFocus pushes id onto the active app's focus stack.
func SetFocus(id FocusID) Command { return Command{Kind: CmdSetFocus, FocusTarget: id} }

// Publish delivers data synchronously, in this tick, to every subscriber
// registered on topic before the publish (across every live app).
func Publish(topic string, data any) Command {
	return Command{Kind: CmdPublish, PublishTopic: topic, PublishData: data}
}

// Perform schedules fn on the task pool; its return value arrives as a Msg
// exactly once, on a later tick.
func Perform(fn func(ctx context.Context) Msg) Command {
	return Command{Kind: CmdPerform, Perform: fn}
}
