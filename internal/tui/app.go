package tui

import "github.com/norpie/dynamics-cli-sub003/internal/tui/element"

// App is one screen/workflow hosted by a MultiAppRuntime. Each App owns its
// own state inside its receiver — a method already mutates in place, so
// there's no need for a generic State/update(&State, Msg) split.
type App interface {
	// Init prepares the App's state from params (passed via StartApp) and
	// returns any Command to run immediately (typically an async fetch).
	Init(params any) Command

	// Update handles one Msg — from a Subscription, a Perform result, or an
	// Element callback routed back in through the runtime — mutating the
	// App's own state and returning any follow-up Command.
	Update(msg Msg) Command

	// View renders the App's current state.
	View(theme *element.Theme) element.Element

	// Subscriptions declares this App's live keyboard bindings, timers and
	// event-bus topics. Called once per tick; returning a different set than
	// last tick is how an App changes its own key bindings dynamically (e.g.
	// disabling navigation while a modal is open).
	Subscriptions() []Subscription

	// Title names this App in the runtime's header line.
	Title() string

	// Status is a one-line footer message (e.g. "3 pending, 1 running").
	Status() string
}
