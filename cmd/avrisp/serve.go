package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-avrisp/isp"
	"github.com/moffa90/go-avrisp/periphisp"
	"github.com/moffa90/go-avrisp/sim"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Act as an ISP programmer for a host on the serial port",
	Long: `Serve STK500v1 requests from a host such as avrdude arriving on the
serial port, and program the target attached to SPI and GPIO lines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		bus, lines, closeHW, err := openTarget(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = closeHW() }()

		port, err := openPort(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = port.Close() }()

		rearm, _ := cmd.Flags().GetBool("rearm")
		opts := []isp.Option{
			isp.WithLogger(newZapLogger(logger)),
			isp.WithRearm(rearm),
		}
		if twiddle, _ := cmd.Flags().GetBool("twiddle"); twiddle {
			opts = append(opts, isp.WithIndicator(isp.NewTextIndicator(os.Stderr)))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d := isp.New(port, bus, lines, opts...)
		err = d.Serve(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info("stopped", zap.Uint32("errors", d.Errors()))
			return nil
		}
		return err
	},
}

// openTarget opens the bus and lines selected by the flags.
func openTarget(cmd *cobra.Command) (isp.Bus, isp.Lines, func() error, error) {
	simulate, _ := cmd.Flags().GetString("simulate")
	if simulate != "" {
		cfg, ok := simParts[simulate]
		if !ok {
			return nil, isp.Lines{}, nil, fmt.Errorf("no simulation for part %q", simulate)
		}
		lines := isp.Lines{Reset: &sim.Line{}, Clock: &sim.Line{}, DataOut: &sim.Line{}}
		return sim.NewTarget(cfg), lines, func() error { return nil }, nil
	}

	khz, _ := cmd.Flags().GetInt64("freq")
	freq := physic.Frequency(khz) * physic.KiloHertz

	var hw *periphisp.Hardware
	var err error
	if ft, _ := cmd.Flags().GetBool("ft232h"); ft {
		hw, err = periphisp.OpenFT232H(freq)
	} else {
		spiPort, _ := cmd.Flags().GetString("spi")
		reset, _ := cmd.Flags().GetString("reset")
		sck, _ := cmd.Flags().GetString("sck")
		mosi, _ := cmd.Flags().GetString("mosi")
		hw, err = periphisp.Open(periphisp.Config{
			Port:      spiPort,
			Frequency: freq,
			Reset:     reset,
			Clock:     sck,
			DataOut:   mosi,
		})
	}
	if err != nil {
		return nil, isp.Lines{}, nil, err
	}
	return hw.Bus, hw.Lines, hw.Close, nil
}

var simParts = map[string]sim.Config{
	"atmega328p": sim.ATmega328P,
	"attiny85":   sim.ATtiny85,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("spi", "", "SPI port name (default: first port)")
	serveCmd.Flags().String("reset", "GPIO25", "Target reset pin")
	serveCmd.Flags().String("sck", "GPIO11", "SPI clock pin")
	serveCmd.Flags().String("mosi", "GPIO10", "SPI data out pin")
	serveCmd.Flags().Bool("ft232h", false, "Use an FTDI FT232H instead of named SPI and GPIO")
	serveCmd.Flags().Int64("freq", 0, "SPI clock in kHz (default: 1 MHz / 6)")
	serveCmd.Flags().String("simulate", "", "Serve a simulated target: atmega328p or attiny85")
	serveCmd.Flags().Bool("rearm", true, "Accept a new session after Leave Programming Mode")
	serveCmd.Flags().Bool("twiddle", false, "Show activity and errors on stderr")
}
