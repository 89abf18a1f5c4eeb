package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-avrisp/client"
	"github.com/moffa90/go-avrisp/hexfile"
)

// flashCmd represents the flash command
var flashCmd = &cobra.Command{
	Use:   "flash <image.hex>",
	Short: "Program an Intel HEX image into the target flash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := hexfile.Parse(args[0])
		if err != nil {
			return err
		}
		part, err := partFlag(cmd)
		if err != nil {
			return err
		}

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		port, err := openPort(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = port.Close() }()

		verify, _ := cmd.Flags().GetBool("verify")
		noErase, _ := cmd.Flags().GetBool("no-erase")
		prog := client.New(port,
			client.WithLogger(newZapLogger(logger)),
			client.WithVerifyAfterProgram(verify),
			client.WithEraseBeforeProgram(!noErase),
			client.WithProgressCallback(printProgress),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := prog.Program(ctx, img, part); err != nil {
			fmt.Fprintln(os.Stderr)
			return err
		}
		return nil
	},
}

func printProgress(p client.Progress) {
	fmt.Fprintf(os.Stderr, "\r%-12s %5.1f%%  page %d/%d", p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
	if p.Phase == client.PhaseComplete {
		fmt.Fprintf(os.Stderr, "\n%d bytes in %s\n", p.BytesWritten, p.ElapsedTime.Round(time.Millisecond))
	}
}

func init() {
	rootCmd.AddCommand(flashCmd)
	flashCmd.Flags().StringP("part", "p", "atmega328p", "Target part")
	flashCmd.Flags().BoolP("verify", "V", true, "Verify memory contents")
	flashCmd.Flags().Bool("no-erase", false, "Skip the chip erase")
}
