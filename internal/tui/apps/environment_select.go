// Package apps hosts the concrete Apps registered with a
// tui.MultiAppRuntime: environment selection and the queue monitor, both
// built on the same Init/Update/View/Subscriptions shape.
package apps

import (
	"context"
	"fmt"
	"sort"

	"github.com/norpie/dynamics-cli-sub003/internal/config"
	"github.com/norpie/dynamics-cli-sub003/internal/tui"
	"github.com/norpie/dynamics-cli-sub003/internal/tui/element"
	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

const EnvironmentSelectID tui.AppID = "environment-select"

// environmentsLoadedMsg carries a completed ListEnvironments fetch.
type environmentsLoadedMsg struct {
	environments []types.Environment
	current      string
	err          error
}

// environmentSwitchedMsg confirms SetCurrent finished.
type environmentSwitchedMsg struct {
	name string
	err  error
}

// EnvironmentSelect lists configured environments and lets the user switch
// the active one.
type EnvironmentSelect struct {
	store *config.Store

	environments []types.Environment
	current      string
	err          error

	listState *element.ListState
}

func NewEnvironmentSelect(store *config.Store) *EnvironmentSelect {
	return &EnvironmentSelect{store: store, listState: element.NewListState()}
}

func (a *EnvironmentSelect) Init(params any) tui.Command {
	return a.fetchCmd()
}

func (a *EnvironmentSelect) fetchCmd() tui.Command {
	return tui.Perform(func(ctx context.Context) tui.Msg {
		envs, err := a.store.ListEnvironments(ctx)
		if err != nil {
			return environmentsLoadedMsg{err: err}
		}
		cur, err := a.store.GetCurrent(ctx)
		currentName := ""
		if err == nil {
			currentName = cur.Name
		}
		return environmentsLoadedMsg{environments: envs, current: currentName}
	})
}

func (a *EnvironmentSelect) Update(msg tui.Msg) tui.Command {
	switch m := msg.(type) {
	case environmentsLoadedMsg:
		a.err = m.err
		a.environments = m.environments
		a.current = m.current
		sort.Slice(a.environments, func(i, j int) bool {
			return a.environments[i].Name < a.environments[j].Name
		})
		return tui.NoCommand()

	case environmentSwitchedMsg:
		if m.err != nil {
			a.err = m.err
			return tui.NoCommand()
		}
		a.current = m.name
		return tui.Publish("environment-switched", m.name)

	case string:
		switch m {
		case "move-down":
			a.listState.Selected++
		case "move-up":
			a.listState.Selected--
			if a.listState.Selected < 0 {
				a.listState.Selected = 0
			}
		case "activate":
			if a.listState.Selected < len(a.environments) {
				name := a.environments[a.listState.Selected].Name
				return tui.Perform(func(ctx context.Context) tui.Msg {
					return environmentSwitchedMsg{name: name, err: a.store.SetCurrent(ctx, name)}
				})
			}
		case "refresh":
			return a.fetchCmd()
		}
	}
	return tui.NoCommand()
}

type environmentRow struct {
	env     types.Environment
	current bool
}

func (row environmentRow) ToElement(theme *element.Theme, isSelected, isHovered bool) element.Element {
	label := row.env.Name + "  (" + row.env.Host + ")"
	if row.current {
		label = "* " + label
	} else {
		label = "  " + label
	}
	style := "Base"
	if isSelected {
		style = "Header"
	}
	return element.StyledText(label, style)
}

func (a *EnvironmentSelect) View(theme *element.Theme) element.Element {
	if a.err != nil {
		return element.StyledText(fmt.Sprintf("error loading environments: %v", a.err), "Error")
	}
	rows := make([]environmentRow, len(a.environments))
	for i, env := range a.environments {
		rows[i] = environmentRow{env: env, current: env.Name == a.current}
	}
	list := element.NewList[environmentRow]("environments", rows, a.listState, 20, theme, nil, nil)
	return element.Panel(list, "Environments")
}

func (a *EnvironmentSelect) Subscriptions() []tui.Subscription {
	return []tui.Subscription{
		tui.Keyboard(tui.KeyBinding{Key: "j", Description: "down"}, "move-down"),
		tui.Keyboard(tui.KeyBinding{Key: "k", Description: "up"}, "move-up"),
		tui.Keyboard(tui.KeyBinding{Key: "enter", Description: "switch to selected environment"}, "activate"),
		tui.Keyboard(tui.KeyBinding{Key: "r", Description: "refresh"}, "refresh"),
	}
}

func (a *EnvironmentSelect) Title() string { return "Environments" }

func (a *EnvironmentSelect) Status() string {
	if a.current == "" {
		return fmt.Sprintf("%d environments, none active", len(a.environments))
	}
	return fmt.Sprintf("%d environments, active: %s", len(a.environments), a.current)
}
