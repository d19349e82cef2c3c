package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ghanima/half"
	"ghanima/host/sim"
	"ghanima/role"
)

var (
	simTicks   int
	simUSB     []string
	simDrop    []string
	simCorrupt []string
	simKeys    []string
)

// SimulateResult is the structured output of simulate
type SimulateResult struct {
	Ticks   uint32      `json:"ticks" yaml:"ticks"`
	Settled bool        `json:"settled" yaml:"settled"`
	Status  []StatusRow `json:"status" yaml:"status"`
	Changes []ChangeRow `json:"changes" yaml:"changes"`
	Keys    []KeyRow    `json:"keys" yaml:"keys"`
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run both halves over an in-memory link and report the outcome",
	Long: `Run both halves in lockstep over an in-memory wire for a fixed number of
ticks and print their final negotiation state.

Faults are injected per side:
  --drop left=2      drop the next two transfers sent by the left half
  --corrupt right    flip a bit in every transfer sent by the right half
  --key right=1,3    the right half scans a press of row 1, column 3 once the link settled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simTicks <= 0 {
			return fmt.Errorf("--ticks must be positive")
		}
		s := sim.New(cfg)

		for _, name := range simUSB {
			side, err := role.ParseSide(name)
			if err != nil {
				return err
			}
			s.SetUSB(side, true)
		}
		for _, spec := range simDrop {
			side, n, err := parseSideCount(spec)
			if err != nil {
				return err
			}
			s.DropNext(side, n)
		}
		for _, name := range simCorrupt {
			side, err := role.ParseSide(name)
			if err != nil {
				return err
			}
			s.SetCorrupt(side, true)
		}
		keys := make([]keyPress, 0, len(simKeys))
		for _, spec := range simKeys {
			side, ev, err := parseKey(spec)
			if err != nil {
				return err
			}
			keys = append(keys, keyPress{side, ev})
		}

		s.RunUntil(sim.Settled, simTicks)
		for _, k := range keys {
			s.PressKey(k.side, k.ev)
		}
		if remaining := simTicks - int(s.Now()); remaining > 0 {
			s.Run(remaining)
		}

		res := SimulateResult{
			Ticks:   s.Now(),
			Settled: sim.Settled(s),
			Status:  statusRows(s.Status()),
			Changes: changeRows(s.Changes()),
			Keys:    keyRows(s.Deliveries()),
		}

		out := cmd.OutOrStdout()
		if formatter.Structured() {
			fmt.Fprint(out, formatter.Format(res))
			return nil
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("After %d ticks", res.Ticks)))
		fmt.Fprint(out, formatter.Format(res.Status))
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("Role changes"))
		fmt.Fprint(out, formatter.Format(res.Changes))
		if len(res.Keys) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, titleStyle.Render("Keys"))
			fmt.Fprint(out, formatter.Format(res.Keys))
		}
		fmt.Fprintln(out)
		if res.Settled {
			fmt.Fprintln(out, okStyle.Render("settled"))
		} else {
			fmt.Fprintln(out, errorStyle.Render("not settled"))
		}
		return nil
	},
}

type keyPress struct {
	side role.Side
	ev   half.KeyEvent
}

// parseSideCount parses "side=n"; a bare side means one
func parseSideCount(spec string) (role.Side, int, error) {
	name, count, found := strings.Cut(spec, "=")
	side, err := role.ParseSide(name)
	if err != nil {
		return side, 0, err
	}
	n := 1
	if found {
		if _, err := fmt.Sscanf(count, "%d", &n); err != nil || n < 0 {
			return side, 0, fmt.Errorf("invalid count in %q", spec)
		}
	}
	return side, n, nil
}

// parseKey parses "side=row,col"
func parseKey(spec string) (role.Side, half.KeyEvent, error) {
	name, pos, found := strings.Cut(spec, "=")
	side, err := role.ParseSide(name)
	if err != nil {
		return side, half.KeyEvent{}, err
	}
	var row, col uint8
	if !found {
		return side, half.KeyEvent{}, fmt.Errorf("key %q needs a position", spec)
	}
	if _, err := fmt.Sscanf(pos, "%d,%d", &row, &col); err != nil {
		return side, half.KeyEvent{}, fmt.Errorf("invalid key position in %q", spec)
	}
	return side, half.KeyEvent{Pressed: true, Row: row, Col: col}, nil
}

func init() {
	simulateCmd.Flags().IntVar(&simTicks, "ticks", 2000, "number of ticks to simulate")
	simulateCmd.Flags().StringSliceVar(&simUSB, "usb", nil, "sides with a USB host: left, right")
	simulateCmd.Flags().StringArrayVar(&simDrop, "drop", nil, "drop transfers: side[=count]")
	simulateCmd.Flags().StringSliceVar(&simCorrupt, "corrupt", nil, "corrupt every transfer from side")
	simulateCmd.Flags().StringArrayVar(&simKeys, "key", nil, "press a key: side=row,col")
	rootCmd.AddCommand(simulateCmd)
}
