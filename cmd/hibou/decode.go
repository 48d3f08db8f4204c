package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/hibou/hibouair"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode HEX...",
	Short: "Decode captured HibouAir advertisements",
	Long: `Decode one or more advertisement payloads, given as the hex string the
BleuIO dongle reports in the "data" field of a scan result, and print the
readings they carry.`,
	Example: `  hibou decode 0201061BFF5B07050422005A0000BA27C60017013E0000000000000001C002
  hibou decode --format json 0201061BFF5B07...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

var decodeFormat string

func init() {
	addDecodeFlags(decodeCmd)
}

func addDecodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&decodeFormat, "format", "f", "table", "Output format (table, json)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeFormat != "table" && decodeFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", decodeFormat)
	}

	readings := make([]hibouair.Reading, 0, len(args))
	for i, arg := range args {
		payload := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(arg), "0x"), "0X")
		r, err := hibouair.DecodeHex(payload)
		if err != nil {
			return fmt.Errorf("advertisement %d: %w", i+1, err)
		}
		readings = append(readings, r)
	}

	cmd.SilenceUsage = true
	return writeReadings(cmd.OutOrStdout(), decodeFormat, readings)
}
