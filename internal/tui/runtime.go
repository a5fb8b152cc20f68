package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// instance is one running App plus the bookkeeping MultiAppRuntime needs to
// drive it: its focus stack and the subscriptions it declared on the most
// recent tick.
type instance struct {
	id    AppID
	app   App
	focus *focusStack
	subs  []Subscription
}

func newInstance(id AppID, app App) *instance {
	return &instance{id: id, app: app, focus: newFocusStack()}
}

// refreshSubs re-reads the App's current Subscriptions, so a change in what
// it returns (e.g. disabling navigation keys while a modal is open) takes
// effect on the very next tick.
func (inst *instance) refreshSubs() {
	inst.subs = inst.app.Subscriptions()
}

// matchKeyboard finds a Keyboard subscription bound to key, bubbletea's
// KeyMsg.String() form ("j", "ctrl+c", "enter").
func (inst *instance) matchKeyboard(key string) (Msg, bool) {
	for _, s := range inst.subs {
		if s.Kind == SubKeyboard && s.Binding.Key == key {
			return s.Msg, true
		}
	}
	return nil, false
}

// timerCmds converts this instance's current Timer subscriptions into
// tea.Cmd values that fire once after their interval; the runtime
// re-requests them every tick so a changed interval takes effect
// immediately rather than waiting for the previous one to elapse.
func (inst *instance) timerCmds() []tea.Cmd {
	var cmds []tea.Cmd
	for _, s := range inst.subs {
		if s.Kind != SubTimer {
			continue
		}
		s := s
		id := inst.id
		cmds = append(cmds, tea.Tick(s.Interval, func(time.Time) tea.Msg {
			return routedMsg{app: id, msg: s.Msg}
		}))
	}
	return cmds
}

// busSubscribers converts this instance's current Subscribe subscriptions
// into the shared event bus's subscriber shape.
func (inst *instance) busSubscribers() []busSubscriber {
	var out []busSubscriber
	for _, s := range inst.subs {
		if s.Kind != SubSubscribe {
			continue
		}
		s := s
		out = append(out, busSubscriber{app: inst.id, topic: s.Topic, handler: s.Handler})
	}
	return out
}

// routedMsg carries a Msg destined for one specific app instance through
// bubbletea's single global tea.Msg delivery channel.
type routedMsg struct {
	app AppID
	msg Msg
}

// performCmd runs fn on the task pool via bubbletea's own goroutine-per-Cmd
// model; its result arrives as exactly one routedMsg on a later tick.
func performCmd(ctx context.Context, id AppID, fn func(context.Context) Msg) tea.Cmd {
	return func() tea.Msg {
		return routedMsg{app: id, msg: fn(ctx)}
	}
}
