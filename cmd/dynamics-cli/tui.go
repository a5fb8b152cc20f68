package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/norpie/dynamics-cli-sub003/internal/tui"
	"github.com/norpie/dynamics-cli-sub003/internal/tui/apps"
)

func init() {
	rootCmd.AddCommand(tuiCmd)
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI (default when no subcommand is given)",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ac, err := buildAppContext(rootCtx, s)
	if err != nil {
		return err
	}
	defer func() { _ = ac.Close(rootCtx) }()

	go func() {
		if err := ac.queue.Run(rootCtx); err != nil && rootCtx.Err() == nil {
			ac.logger.Error("queue engine stopped", "error", err)
		}
	}()

	runtime := tui.NewMultiAppRuntime(apps.EnvironmentSelectID, apps.NewEnvironmentSelect(ac.store), nil)
	runtime.RegisterApp(apps.EnvironmentSelectID, func() tui.App { return apps.NewEnvironmentSelect(ac.store) })
	runtime.RegisterApp(apps.QueueMonitorID, func() tui.App { return apps.NewQueueMonitor(ac.store, ac.queue) })

	term := tui.NewTerminalLifecycle(int(os.Stdin.Fd()))
	if err := term.Push(); err != nil {
		ac.logger.Warn("could not enter raw mode, continuing anyway", "error", err)
	}
	defer func() { _ = term.Pop() }()

	p := tea.NewProgram(runtime, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(rootCtx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
