package apps

import (
	"context"
	"fmt"
	"time"

	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/queue"
	"github.com/norpie/dynamics-cli-sub003/internal/tui"
	"github.com/norpie/dynamics-cli-sub003/internal/tui/element"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

const QueueMonitorID tui.AppID = "queue-monitor"

// queueTickMsg drives the periodic refresh this app's own Timer subscription
// requests — distinct from QueueEngine's internal scheduling tick, which
// runs independently in the background regardless of whether this app is
// the active one.
type queueTickMsg struct{}

type queueLoadedMsg struct {
	items    []types.QueueItem
	settings types.QueueSettings
	err      error
}

// QueueMonitor shows the live queue: sorted per QueueSettings.SortMode,
// filtered per QueueSettings.Filter, with keys to move the selection, toggle
// auto-play, kick a manual rescan and refresh. It has no key for changing an
// item's priority.
type QueueMonitor struct {
	store  *config.Store
	engine *queue.Engine

	items    []types.QueueItem
	settings types.QueueSettings
	err      error

	listState *element.ListState
}

func NewQueueMonitor(store *config.Store, engine *queue.Engine) *QueueMonitor {
	return &QueueMonitor{store: store, engine: engine, listState: element.NewListState()}
}

func (a *QueueMonitor) Init(params any) tui.Command {
	return a.fetchCmd()
}

func (a *QueueMonitor) fetchCmd() tui.Command {
	return tui.Perform(func(ctx context.Context) tui.Msg {
		items, err := a.store.ListQueueItems(ctx)
		if err != nil {
			return queueLoadedMsg{err: err}
		}
		settings, err := a.store.GetQueueSettings(ctx)
		if err != nil {
			return queueLoadedMsg{err: err}
		}
		return queueLoadedMsg{items: filterAndSort(items, settings), settings: settings}
	})
}

func filterAndSort(items []types.QueueItem, settings types.QueueSettings) []types.QueueItem {
	var out []types.QueueItem
	for _, item := range items {
		switch settings.Filter {
		case types.QueueFilterPending:
			if item.Status != types.QueuePending {
				continue
			}
		case types.QueueFilterRunning:
			if item.Status != types.QueueRunning {
				continue
			}
		case types.QueueFilterPaused:
			if item.Status != types.QueuePaused {
				continue
			}
		case types.QueueFilterFailed:
			if item.Status != types.QueueFailed {
				continue
			}
		}
		out = append(out, item)
	}
	switch settings.SortMode {
	case types.QueueSortCreatedAt:
		sortQueueItems(out, func(a, b types.QueueItem) bool { return a.CreatedAt.Before(b.CreatedAt) })
	default:
		sortQueueItems(out, func(a, b types.QueueItem) bool { return a.Priority < b.Priority })
	}
	return out
}

func sortQueueItems(items []types.QueueItem, less func(a, b types.QueueItem) bool) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func (a *QueueMonitor) Update(msg tui.Msg) tui.Command {
	switch m := msg.(type) {
	case queueTickMsg:
		return a.fetchCmd()

	case queueLoadedMsg:
		a.err = m.err
		if m.err == nil {
			a.items = m.items
			a.settings = m.settings
		}
		return tui.NoCommand()

	case string:
		switch m {
		case "move-down":
			a.listState.Selected++
		case "move-up":
			a.listState.Selected--
			if a.listState.Selected < 0 {
				a.listState.Selected = 0
			}
		case "toggle-autoplay":
			return a.withSettings(func(s *types.QueueSettings) { s.AutoPlay = !s.AutoPlay })
		case "kick":
			a.engine.Kick()
			return tui.NoCommand()
		case "refresh":
			return a.fetchCmd()
		}
	}
	return tui.NoCommand()
}

func (a *QueueMonitor) withSettings(mutate func(s *types.QueueSettings)) tui.Command {
	settings := a.settings
	mutate(&settings)
	return tui.Perform(func(ctx context.Context) tui.Msg {
		if err := a.store.SetQueueSettings(ctx, settings); err != nil {
			return queueLoadedMsg{err: err}
		}
		a.engine.Kick()
		items, err := a.store.ListQueueItems(ctx)
		return queueLoadedMsg{items: filterAndSort(items, settings), settings: settings, err: err}
	})
}

type queueItemRow struct{ item types.QueueItem }

func (row queueItemRow) ToElement(theme *element.Theme, isSelected, isHovered bool) element.Element {
	label := fmt.Sprintf("[%s] P%d  %s", row.item.Status, row.item.Priority, row.item.ID)
	style := "Base"
	switch row.item.Status {
	case types.QueueFailed:
		style = "Error"
	case types.QueueRunning:
		style = "Header"
	}
	if isSelected {
		style = "Header"
	}
	return element.StyledText(label, style)
}

func (a *QueueMonitor) View(theme *element.Theme) element.Element {
	if a.err != nil {
		return element.StyledText(fmt.Sprintf("error loading queue: %v", a.err), "Error")
	}
	rows := make([]queueItemRow, len(a.items))
	for i, item := range a.items {
		rows[i] = queueItemRow{item: item}
	}
	list := element.NewList[queueItemRow]("queue-items", rows, a.listState, 20, theme, nil, nil)
	return element.Panel(list, "Queue")
}

func (a *QueueMonitor) Subscriptions() []tui.Subscription {
	return []tui.Subscription{
		tui.Keyboard(tui.KeyBinding{Key: "j", Description: "down"}, "move-down"),
		tui.Keyboard(tui.KeyBinding{Key: "k", Description: "up"}, "move-up"),
		tui.Keyboard(tui.KeyBinding{Key: "p", Description: "toggle auto-play"}, "toggle-autoplay"),
		tui.Keyboard(tui.KeyBinding{Key: "x", Description: "kick the scheduler"}, "kick"),
		tui.Keyboard(tui.KeyBinding{Key: "r", Description: "refresh"}, "refresh"),
		tui.Timer(2*time.Second, queueTickMsg{}), // matches the engine's own tick interval
		tui.Subscribe("environment-switched", func(data any) (tui.Msg, bool) {
			return "refresh", true
		}),
	}
}

func (a *QueueMonitor) Title() string { return "Queue" }

func (a *QueueMonitor) Status() string {
	running, pending := 0, 0
	for _, item := range a.items {
		switch item.Status {
		case types.QueueRunning:
			running++
		case types.QueuePending:
			pending++
		}
	}
	autoplay := "off"
	if a.settings.AutoPlay {
		autoplay = "on"
	}
	return fmt.Sprintf("%d running, %d pending, auto-play %s", running, pending, autoplay)
}
