package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pennywise/internal/engine"
	"pennywise/internal/model"
	"pennywise/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live budget dashboard",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	events := make(chan tea.Msg, 16)

	// Handlers run on the engine's goroutine; drop rather than block when
	// the UI falls behind.
	push := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	_, cleanup, err := openSession(cmd.Context(),
		engine.WithRefreshHandler(func(snap model.Snapshot) { push(tui.SnapshotMsg(snap)) }),
		engine.WithMilestoneHandler(func(m model.Milestone) { push(tui.MilestoneMsg(m)) }),
	)
	if err != nil {
		return err
	}
	defer cleanup()

	p := tea.NewProgram(tui.NewWatch(events), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
