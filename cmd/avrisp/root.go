package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/moffa90/go-avrisp/client"
)

// pollInterval is the serial read timeout. Reads return empty after it so
// blocked loops can observe cancellation and reply timeouts.
const pollInterval = 100 * time.Millisecond

var rootCmd = &cobra.Command{
	Use:           "avrisp",
	Short:         "AVR in-system programmer over STK500v1",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("port", "P", "", "Serial port, e.g. /dev/ttyACM0")
	rootCmd.PersistentFlags().IntP("baud", "b", 19200, "Serial baud rate")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// openPort opens the serial port named by the --port flag.
func openPort(cmd *cobra.Command) (serial.Port, error) {
	name, _ := cmd.Flags().GetString("port")
	baud, _ := cmd.Flags().GetInt("baud")
	if name == "" {
		return nil, fmt.Errorf("no serial port given, see avrisp ports")
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

// newLogger builds the process logger from the --verbose flag.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// partFlag resolves the --part flag.
func partFlag(cmd *cobra.Command) (client.Part, error) {
	name, _ := cmd.Flags().GetString("part")
	return client.LookupPart(name)
}
