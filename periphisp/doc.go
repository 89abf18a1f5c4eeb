// Package periphisp connects the programmer to real hardware through
// periph.io.
//
// A Bus drives the target over an SPI port and Pin adapts GPIO pins to the
// reset, clock and data lines. Open resolves everything by name through the
// periph.io registries; OpenFT232H uses the MPSSE engine of an FTDI FT232H.
//
//	hw, err := periphisp.OpenFT232H(0)
//	if err != nil {
//	    return err
//	}
//	defer hw.Close()
//
//	d := isp.New(port, hw.Bus, hw.Lines)
package periphisp
