package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ghanima/half"
	"ghanima/protocol"
)

var (
	decodeFile   string
	decodeBuffer int
)

// FrameRow is one frame found in a capture
type FrameRow struct {
	Index   int    `json:"index" yaml:"index"`
	ID      string `json:"id" yaml:"id"`
	Message string `json:"message" yaml:"message"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode captured link traffic",
	Long: `Decode link traffic given as hex on the command line (spaces and colons
are ignored) or as raw bytes from --file. Every delimited frame is listed
with its envelope id, or with the reason it was dropped. A trailing
partial frame is reported as pending.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		switch {
		case decodeFile != "":
			b, err := os.ReadFile(decodeFile)
			if err != nil {
				return err
			}
			data = b
		case len(args) > 0:
			b, err := parseHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			data = b
		default:
			return fmt.Errorf("nothing to decode: pass hex arguments or --file")
		}

		rows, pending := decodeFrames(data, cfg.NewChecksum(), decodeBuffer)

		out := cmd.OutOrStdout()
		fmt.Fprint(out, formatter.Format(rows))
		if pending > 0 && !formatter.Structured() {
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d bytes pending without a delimiter", pending)))
		}
		return nil
	},
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// decodeFrames runs data through an accumulator of the given size and
// returns one row per frame plus the number of bytes left buffered
func decodeFrames(data []byte, sum protocol.Checksum, bufferSize int) ([]FrameRow, int) {
	acc := protocol.NewAccumulator(bufferSize)
	unmarshal := protocol.UnmarshalEnvelope(half.UnmarshalMessage)

	var rows []FrameRow
	for env, err := range protocol.Frames(acc, sum, data, unmarshal) {
		row := FrameRow{Index: len(rows)}
		if err != nil {
			row.ID = "-"
			row.Error = err.Error()
		} else {
			row.ID = fmt.Sprintf("%d", env.ID)
			row.Message = env.Payload.String()
		}
		rows = append(rows, row)
	}
	return rows, acc.Len()
}

func init() {
	decodeCmd.Flags().StringVar(&decodeFile, "file", "", "read raw bytes from file")
	decodeCmd.Flags().IntVar(&decodeBuffer, "buffer", protocol.MaxEncodedLen(protocol.MessageMax), "accumulator size in bytes")
	rootCmd.AddCommand(decodeCmd)
}
