// Package client drives an STK500v1 in-system programmer, such as an
// ArduinoISP or the isp package of this module, from the host side.
//
// # Overview
//
// Program runs the complete flash sequence:
//   - Synchronizing with the programmer and sending the part parameters
//   - Entering programming mode and checking the device signature
//   - Erasing the chip
//   - Writing every page that holds image data
//   - Reading the flash back and comparing it with the image
//   - Leaving programming mode
//
// # Basic Usage
//
//	port, err := serial.Open("/dev/ttyACM0", &serial.Mode{BaudRate: 19200})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = port.SetReadTimeout(100 * time.Millisecond)
//
//	img, err := hexfile.Parse("blink.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	part, _ := client.LookupPart("atmega328p")
//
//	prog := client.New(port)
//	if err := prog.Program(context.Background(), img, part); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
//	prog := client.New(port,
//	    client.WithProgressCallback(func(p client.Progress) {
//	        fmt.Printf("[%s] %.1f%% - Page %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentPage, p.TotalPages)
//	    }),
//	)
//
// # Timeouts
//
// Serial ports configured with a read timeout return zero bytes when it
// expires. The programmer keeps reading until ReadTimeout has passed for
// the current reply and then fails with ErrTimeout.
//
// # Error Handling
//
// The package provides structured error types:
//   - SignatureMismatchError: the target is not the requested part
//   - VerifyError: flash read back differs from the image
//   - UnknownPartError: the part name is not in the part table
//   - protocol.ReplyError: the programmer answered FAILED, UNKNOWN or NOSYNC
package client
