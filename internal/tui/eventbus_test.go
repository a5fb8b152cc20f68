package tui

import "testing"

func TestEventBusDeliversToMatchingTopic(t *testing.T) {
	b := newEventBus()
	b.setSubscribers("queue", []busSubscriber{
		{app: "queue", topic: "item-done", handler: func(data any) (Msg, bool) {
			return "refresh:" + data.(string), true
		}},
	})
	b.setSubscribers("other", []busSubscriber{
		{app: "other", topic: "unrelated", handler: func(data any) (Msg, bool) {
			return "should-not-fire", true
		}},
	})

	out := b.publish("item-done", "abc")
	if len(out) != 1 {
		t.Fatalf("expected exactly one app to receive the publish, got %d", len(out))
	}
	msgs, ok := out["queue"]
	if !ok || len(msgs) != 1 || msgs[0] != "refresh:abc" {
		t.Fatalf("unexpected delivery: %#v", out)
	}
}

func TestEventBusHandlerCanDeclineDelivery(t *testing.T) {
	b := newEventBus()
	b.setSubscribers("app1", []busSubscriber{
		{app: "app1", topic: "t", handler: func(data any) (Msg, bool) { return nil, false }},
	})
	out := b.publish("t", nil)
	if len(out) != 0 {
		t.Fatalf("expected no deliveries when handler declines, got %#v", out)
	}
}

func TestEventBusSetSubscribersReplacesPerApp(t *testing.T) {
	b := newEventBus()
	calls := 0
	b.setSubscribers("app1", []busSubscriber{
		{app: "app1", topic: "t", handler: func(data any) (Msg, bool) { calls++; return "old", true }},
	})
	b.setSubscribers("app1", []busSubscriber{
		{app: "app1", topic: "t", handler: func(data any) (Msg, bool) { calls++; return "new", true }},
	})
	out := b.publish("t", nil)
	if calls != 1 {
		t.Fatalf("expected exactly one handler invocation after replacing app1's subscribers, got %d", calls)
	}
	if out["app1"][0] != "new" {
		t.Fatalf("expected the replacement handler's result, got %#v", out)
	}
}
