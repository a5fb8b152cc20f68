package tui

import "time"

// SubscriptionKind discriminates the Subscription tagged union.
type SubscriptionKind int

const (
	SubKeyboard SubscriptionKind = iota
	SubTimer
	SubSubscribe
)

// KeyBinding names one keyboard shortcut for the help overlay and for
// matching against incoming key events. Key uses bubbletea's key.String()
// form (e.g. "ctrl+c", "enter", "j").
type KeyBinding struct {
	Key         string
	Description string
}

// Subscription is the sum type App.Subscriptions returns. Exactly the
// fields relevant to Kind are meaningful.
type Subscription struct {
	Kind SubscriptionKind

	Binding KeyBinding // SubKeyboard
	Msg     Msg        // SubKeyboard, SubTimer: the message to emit when triggered

	Interval time.Duration // SubTimer

	Topic   string                    // SubSubscribe
	Handler func(data any) (Msg, bool) // SubSubscribe: ok=false means "ignore this publish"
}

// Keyboard subscribes to a global key binding.
func Keyboard(binding KeyBinding, msg Msg) Subscription {
	return Subscription{Kind: SubKeyboard, Binding: binding, Msg: msg}
}

// Timer fires msg at most once per runtime tick, repeating every interval.
func Timer(interval time.Duration, msg Msg) Subscription {
	return Subscription{Kind: SubTimer, Interval: interval, Msg: msg}
}

// Subscribe reacts to Publish calls on topic from any live app.
func Subscribe(topic string, handler func(data any) (Msg, bool)) Subscription {
	return Subscription{Kind: SubSubscribe, Topic: topic, Handler: handler}
}
