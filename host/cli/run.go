package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ghanima/core"
	"ghanima/half"
	"ghanima/host/serial"
	"ghanima/role"
)

var (
	runDevice string
	runSide   string
	runUSB    bool
	runTicks  int

	// openPort is replaced in tests
	openPort = serial.Open
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one half against a serial port",
	Long: `Run one half of the link against a UART, for example a USB serial adapter
wired to the other half's link pins. The half negotiates its role, prints
role changes and key events forwarded by the peer, and logs link statistics
at the configured report interval. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runDevice != "" {
			cfg.Serial.Device = runDevice
		}
		if runSide != "" {
			if _, err := role.ParseSide(runSide); err != nil {
				return err
			}
			cfg.SideName = runSide
		}

		port, err := openPort(&serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeoutMs,
		})
		if err != nil {
			return err
		}
		stream := serial.NewStream(port, cfg.Link.TransferSize)
		defer stream.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h := half.New(cfg.HalfConfig(), stream.Port(), cfg.NewChecksum())
		return runHalf(ctx, h, cmd.OutOrStdout())
	},
}

type printSink struct{ out io.Writer }

func (p printSink) HandleKey(ev half.KeyEvent, local bool) {
	from := "peer"
	if local {
		from = "local"
	}
	fmt.Fprintf(p.out, "key %s from %s\n", ev, from)
}

// runHalf drives h from a wall-clock ticker until ctx ends or the tick
// limit is reached
func runHalf(ctx context.Context, h *half.Half, out io.Writer) error {
	h.SetUSBSensor(half.USBFunc(func() bool { return runUSB }))
	h.SetKeySink(printSink{out})
	h.OnRoleChange = func(from, to role.Role) {
		fmt.Fprintf(out, "%s: %s -> %s\n", h.Side(), from, to)
	}

	var sched core.Scheduler
	start := core.GetTime()
	sched.Schedule(core.Every(start+1, 1, func() {
		h.OnRxInterrupt()
		h.Tick()
		h.OnTxInterrupt()
	}))
	report := cfg.ReportTicks()
	sched.Schedule(core.Every(start+report, report, func() {
		h.Report()
	}))

	core.LogInfo(core.ComponentCLI, "running", "side", h.Side(), "device", cfg.Serial.Device, "tick_hz", cfg.TickHz)
	ticker := time.NewTicker(time.Second / time.Duration(max(cfg.TickHz, 1)))
	defer ticker.Stop()

	for n := 0; runTicks == 0 || n < runTicks; n++ {
		select {
		case <-ctx.Done():
			return summary(h, out)
		case <-ticker.C:
			sched.Dispatch(core.AdvanceTime(1))
		}
	}
	return summary(h, out)
}

func summary(h *half.Half, out io.Writer) error {
	st := h.Stats()
	row := StatusRow{
		Side:     h.Side().String(),
		State:    h.State().String(),
		Role:     h.Role().String(),
		USB:      h.USB(),
		Alone:    h.IsAlone(),
		Sent:     st.Tx.Frames,
		Received: st.Rx.Received,
		Dropped:  st.Rx.Dropped(),
	}
	fmt.Fprint(out, formatter.Format([]StatusRow{row}))
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runDevice, "device", "", "serial device (overrides config)")
	runCmd.Flags().StringVar(&runSide, "side", "", "board side: left, right (overrides config)")
	runCmd.Flags().BoolVar(&runUSB, "usb", false, "act as the half connected to the USB host")
	runCmd.Flags().IntVar(&runTicks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	rootCmd.AddCommand(runCmd)
}
