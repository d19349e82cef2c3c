package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ghanima/half"
	"ghanima/protocol"
	"ghanima/role"
)

var (
	encodeID      uint16
	encodeRelease bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode (role establish|release|ack | key row,col)",
	Short: "Encode one message as a link frame",
	Long: `Encode one message in an envelope and print the frame as hex,
delimiter included. The output can be fed back to decode.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := parseMessage(args[0], args[1])
		if err != nil {
			return err
		}

		env := protocol.Envelope[half.Message]{ID: encodeID, Payload: msg}
		buf := make([]byte, protocol.MaxEncodedLen(protocol.MessageMax))
		n, err := protocol.Encode(env, cfg.NewChecksum(), buf)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf[:n]))
		return nil
	},
}

func parseMessage(kind, value string) (half.Message, error) {
	switch strings.ToLower(kind) {
	case "role":
		switch strings.ToLower(value) {
		case "establish":
			return half.RoleMessage(role.EstablishMaster), nil
		case "release":
			return half.RoleMessage(role.ReleaseMaster), nil
		case "ack":
			return half.RoleMessage(role.Ack), nil
		}
		return half.Message{}, fmt.Errorf("unknown role message %q", value)
	case "key":
		var row, col uint8
		if _, err := fmt.Sscanf(value, "%d,%d", &row, &col); err != nil {
			return half.Message{}, fmt.Errorf("invalid key position %q", value)
		}
		return half.KeyMessage(half.KeyEvent{Pressed: !encodeRelease, Row: row, Col: col}), nil
	}
	return half.Message{}, fmt.Errorf("unknown message kind %q", kind)
}

func init() {
	encodeCmd.Flags().Uint16Var(&encodeID, "id", 0, "envelope id")
	encodeCmd.Flags().BoolVar(&encodeRelease, "release", false, "encode a key release instead of a press")
	rootCmd.AddCommand(encodeCmd)
}
