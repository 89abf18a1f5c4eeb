// Command avrisp turns a host into an STK500v1 AVR in-system programmer
// and drives such programmers from the command line.
//
//	avrisp serve --port /dev/ttyGS0 --ft232h
//	avrisp flash --port /dev/ttyACM0 --part atmega328p blink.hex
//	avrisp info --port /dev/ttyACM0
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
