package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"charm.land/glamour/v2"

	"github.com/norpie/dynamics-cli-sub003/internal/tui/element"
)

// MultiAppRuntime hosts a set of Apps behind one bubbletea program: exactly
// one app is active at a time, StartApp/NavigateTo switch between them while
// non-active instances keep their state, and a global help overlay and
// header/footer frame wrap whichever app is active.
type MultiAppRuntime struct {
	ctx    context.Context
	cancel context.CancelFunc

	theme *element.Theme
	bus   *eventBus

	instances map[AppID]*instance
	history   []AppID // previously-active stack, for QuitSelf
	active    AppID

	// factories lets CmdStartApp construct a fresh App by ID without this
	// package needing to import internal/tui/apps (which itself depends on
	// this package) — each app registers its own zero-arg constructor.
	factories map[AppID]func() App

	width, height int
	lastOutput    element.Output

	// initCmd holds the tea.Cmd produced by the constructor's Init call, run
	// once bubbletea's own Init hook fires.
	initCmd tea.Cmd

	helpOpen bool
	quitting bool
}

// NewMultiAppRuntime starts with a single running instance, already
// Init'd, as the active app.
func NewMultiAppRuntime(initial AppID, app App, params any) *MultiAppRuntime {
	ctx, cancel := context.WithCancel(context.Background())
	r := &MultiAppRuntime{
		ctx:       ctx,
		cancel:    cancel,
		theme:     element.NewDefaultTheme(),
		bus:       newEventBus(),
		instances: make(map[AppID]*instance),
		factories: make(map[AppID]func() App),
		active:    initial,
	}
	inst := newInstance(initial, app)
	r.instances[initial] = inst
	r.initCmd = r.runCommand(initial, app.Init(params))
	return r
}

// RegisterApp makes id startable via StartApp/NavigateTo commands issued by
// any running app, constructing a fresh App instance on demand.
func (r *MultiAppRuntime) RegisterApp(id AppID, factory func() App) {
	r.factories[id] = factory
}

func (r *MultiAppRuntime) Init() tea.Cmd {
	inst := r.instances[r.active]
	inst.refreshSubs()
	r.bus.setSubscribers(r.active, inst.busSubscribers())
	cmds := append([]tea.Cmd{r.initCmd}, inst.timerCmds()...)
	return tea.Batch(cmds...)
}

func (r *MultiAppRuntime) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The active app's Subscriptions() can change every tick (e.g. disabling
	// navigation keys while a modal is open); re-read it before routing
	// anything through matchKeyboard. Backgrounded apps keep whatever
	// subscriptions they had as of their last active tick, per refreshActive.
	if inst, ok := r.instances[r.active]; ok {
		inst.refreshSubs()
		r.bus.setSubscribers(r.active, inst.busSubscribers())
	}

	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		r.width, r.height = m.Width, m.Height
		return r, nil

	case tea.KeyMsg:
		return r, r.handleKey(m.String())

	case tea.MouseMsg:
		return r, r.handleMouse(m)

	case routedMsg:
		return r, r.dispatch(m.app, m.msg)
	}
	return r, nil
}

func (r *MultiAppRuntime) View() string {
	if r.quitting {
		return ""
	}
	inst := r.instances[r.active]
	root := inst.app.View(r.theme)

	renderer := element.NewRenderer(r.theme)
	contentHeight := r.height - 2 // header + footer
	if contentHeight < 1 {
		contentHeight = 1
	}
	out := renderer.Render(root, r.width, contentHeight)
	r.lastOutput = out

	header := r.theme.Header.Width(r.width).Render(fmt.Sprintf(" %s ", inst.app.Title()))
	footer := r.theme.Muted.Width(r.width).Render(fmt.Sprintf(" %s  (? for help) ", inst.app.Status()))

	frame := header + "\n" + out.Frame + "\n" + footer
	if r.helpOpen {
		return frame + "\n" + r.renderHelp(inst)
	}
	return frame
}

// renderHelp lists the active app's current Keyboard bindings as markdown
// rendered through glamour, falling back to the raw markdown if rendering
// fails.
func (r *MultiAppRuntime) renderHelp(inst *instance) string {
	var b strings.Builder
	b.WriteString("# Keyboard shortcuts\n\n")
	for _, s := range inst.subs {
		if s.Kind != SubKeyboard {
			continue
		}
		fmt.Fprintf(&b, "- **%s** — %s\n", s.Binding.Key, s.Binding.Description)
	}
	rendered, err := glamour.Render(b.String(), "dark")
	if err != nil {
		return b.String()
	}
	return rendered
}

func (r *MultiAppRuntime) handleKey(key string) tea.Cmd {
	if key == "?" {
		r.helpOpen = !r.helpOpen
		return nil
	}
	if r.helpOpen {
		r.helpOpen = false
		return nil
	}

	inst := r.instances[r.active]

	if focused, ok := inst.focus.current(); ok {
		if ti, ok := r.lastOutput.TextInputs[focused]; ok {
			return r.handleTextInputKey(inst, ti, key)
		}
	}

	if msg, ok := inst.matchKeyboard(key); ok {
		return r.dispatch(r.active, msg)
	}
	return nil
}

func (r *MultiAppRuntime) handleTextInputKey(inst *instance, ti element.Element, key string) tea.Cmd {
	switch key {
	case "enter":
		if ti.OnSubmit != nil {
			return r.dispatch(r.active, ti.OnSubmit())
		}
		return nil
	case "backspace":
		if ti.OnChange != nil && len(ti.Value) > 0 {
			return r.dispatch(r.active, ti.OnChange(ti.Value[:len(ti.Value)-1]))
		}
		return nil
	case "esc":
		inst.focus.pop()
		return nil
	}
	if ti.OnChange != nil && len(key) == 1 {
		return r.dispatch(r.active, ti.OnChange(ti.Value+key))
	}
	return nil
}

func (r *MultiAppRuntime) handleMouse(m tea.MouseMsg) tea.Cmd {
	if m.Action != tea.MouseActionPress {
		return nil
	}
	if msg, ok := r.lastOutput.Interactions.HitTest(m.X, m.Y-1); ok { // -1 for the header row
		return r.dispatch(r.active, msg)
	}
	return nil
}

// dispatch runs app.Update(msg) for the named app instance (which need not
// be the active one — event-bus publishes can target a backgrounded app)
// and applies the resulting Command.
func (r *MultiAppRuntime) dispatch(id AppID, msg Msg) tea.Cmd {
	inst, ok := r.instances[id]
	if !ok || msg == nil {
		return nil
	}
	cmd := inst.app.Update(msg)
	return r.runCommand(id, cmd)
}

// runCommand interprets one Command, returning the tea.Cmd that realizes
// any async effect it requested.
func (r *MultiAppRuntime) runCommand(id AppID, cmd Command) tea.Cmd {
	switch cmd.Kind {
	case CmdNone:
		return nil

	case CmdBatch:
		var cmds []tea.Cmd
		for _, c := range cmd.BatchCmds {
			cmds = append(cmds, r.runCommand(id, c))
		}
		return tea.Batch(cmds...)

	case CmdQuit:
		r.quitting = true
		r.cancel()
		return tea.Quit

	case CmdNavigateTo:
		if _, ok := r.instances[cmd.NavigateToApp]; ok {
			r.history = append(r.history, r.active)
			r.active = cmd.NavigateToApp
			r.refreshActive()
		}
		return nil

	case CmdStartApp:
		factory, ok := r.factories[cmd.StartAppID]
		if !ok {
			return nil
		}
		app := factory()
		newInst := newInstance(cmd.StartAppID, app)
		r.instances[cmd.StartAppID] = newInst
		r.history = append(r.history, r.active)
		r.active = cmd.StartAppID
		initCmd := r.runCommand(r.active, app.Init(cmd.StartAppParams))
		r.refreshActive()
		return initCmd

	case CmdQuitSelf:
		delete(r.instances, r.active)
		if n := len(r.history); n > 0 {
			r.active = r.history[n-1]
			r.history = r.history[:n-1]
			r.refreshActive()
		} else {
			r.quitting = true
			r.cancel()
			return tea.Quit
		}
		return nil

	case CmdSetFocus:
		r.instances[id].focus.push(element.FocusID(cmd.FocusTarget))
		return nil

	case CmdPublish:
		deliveries := r.bus.publish(cmd.PublishTopic, cmd.PublishData)
		var cmds []tea.Cmd
		for appID, msgs := range deliveries {
			for _, m := range msgs {
				cmds = append(cmds, func() tea.Msg { return routedMsg{app: appID, msg: m} })
			}
		}
		return tea.Batch(cmds...)

	case CmdPerform:
		return performCmd(r.ctx, id, cmd.Perform)
	}
	return nil
}

// refreshActive re-reads the newly active instance's subscriptions (a
// backgrounded app's subscriptions are frozen at whatever they were the last
// time it was active, until it runs again).
func (r *MultiAppRuntime) refreshActive() {
	inst := r.instances[r.active]
	inst.refreshSubs()
	r.bus.setSubscribers(r.active, inst.busSubscribers())
}
