package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-avrisp/client"
	"github.com/moffa90/go-avrisp/hexfile"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Dump target flash or EEPROM as Intel HEX",
	RunE: func(cmd *cobra.Command, args []string) error {
		part, err := partFlag(cmd)
		if err != nil {
			return err
		}
		memory, _ := cmd.Flags().GetString("memory")
		if memory != "flash" && memory != "eeprom" {
			return fmt.Errorf("unknown memory %q: use flash or eeprom", memory)
		}

		port, err := openPort(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = port.Close() }()

		ctx := context.Background()
		prog := client.New(port)
		if _, err := prog.Connect(ctx, part); err != nil {
			return err
		}
		defer func() { _ = prog.LeaveProgMode(ctx) }()

		var data []byte
		if memory == "flash" {
			data, err = prog.ReadFlash(ctx, 0, int(part.Params.FlashSize))
		} else {
			data, err = prog.ReadEEPROM(ctx, 0, int(part.Params.EEPROMSize))
		}
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return hexfile.WriteHex(w, 0, data)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringP("part", "p", "atmega328p", "Target part")
	readCmd.Flags().StringP("memory", "m", "flash", "Memory to read: flash or eeprom")
	readCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
}
