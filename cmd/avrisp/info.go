package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-avrisp/client"
	"github.com/moffa90/go-avrisp/protocol"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Identify the programmer and the attached target",
	RunE: func(cmd *cobra.Command, args []string) error {
		part, err := partFlag(cmd)
		if err != nil {
			return err
		}

		port, err := openPort(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = port.Close() }()

		ctx := context.Background()
		prog := client.New(port)
		if err := prog.Sync(ctx); err != nil {
			return err
		}

		signOn, err := prog.GetSignOn(ctx)
		if err != nil {
			return err
		}
		var versions [3]byte
		for i, parm := range []byte{protocol.ParmHWVersion, protocol.ParmSWMajor, protocol.ParmSWMinor} {
			if versions[i], err = prog.GetParameter(ctx, parm); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Programmer: %s (hw %d, sw %d.%d)\n", signOn, versions[0], versions[1], versions[2])

		// The part only sets the reset polarity and sizes here; the
		// signature decides what is reported.
		if err := prog.SetDevice(ctx, part.Params); err != nil {
			return err
		}
		if err := prog.EnterProgMode(ctx); err != nil {
			return err
		}
		defer func() { _ = prog.LeaveProgMode(ctx) }()

		sig, err := prog.ReadSignature(ctx)
		if err != nil {
			return err
		}
		name := "unknown"
		if found, ok := client.PartBySignature(sig); ok {
			name = found.Name
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signature:  %s (%s)\n", sig, name)

		fuses, err := prog.ReadFuses(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fuses:      low 0x%02X, high 0x%02X, ext 0x%02X, lock 0x%02X\n",
			fuses.Low, fuses.High, fuses.Extended, fuses.Lock)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringP("part", "p", "atmega328p", "Part whose parameters are sent before reading the signature")
}
