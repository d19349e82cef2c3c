package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ghanima/host/sim"
	"ghanima/host/tui"
)

var watchSpeed int

// watchCmd launches the interactive link viewer.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch both halves negotiate in an interactive simulator",
	Long: `Launch a terminal view of both halves running over an in-memory link.
The simulation runs in real time and reacts to key presses.

Key bindings:
  1 / 2        Plug or unplug USB on the left / right half
  d / D        Drop the next transfer from the left / right half
  c / C        Toggle corruption of transfers from the left / right half
  k / K        Press a key on the left / right half
  space        Pause or resume, s steps one tick while paused
  + / -        Double or halve the simulation speed
  q / Ctrl+C   Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(tui.New(sim.New(cfg), watchSpeed), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchSpeed, "speed", 50, "simulator ticks per 50ms frame")
	rootCmd.AddCommand(watchCmd)
}
