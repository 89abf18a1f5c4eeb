// Package isp implements the programmer side of an STK500 version 1 AVR
// in-system programmer.
//
// # Overview
//
// A Dispatcher reads requests from a host one byte at a time, executes them
// against a target microcontroller over a synchronous bus, and writes framed
// replies:
//   - sign-on, version and parameter queries are answered directly
//   - Enter/Leave Programming Mode run the reset and clock sequence
//   - Program Page writes flash words page by page, or EEPROM bytes in
//     32-byte chunks
//   - Read Page and Read Signature stream target memory back to the host
//   - Universal passes a raw 4-byte instruction to the target
//
// All commands share one Session: the page buffer, the negotiated device
// parameters, the word address cursor and the error counter.
//
// # Hardware
//
// The package does not drive hardware directly. Callers provide:
//
//	host  io.ReadWriter  // serial link to the host, blocking reads
//	bus   isp.Bus        // SPI bus to the target
//	lines isp.Lines      // reset, clock and data-out lines
//
// Package periphisp provides Bus and Line implementations on periph.io,
// and package sim provides a simulated target for tests.
//
// # Errors
//
// Framing errors are answered with NOSYNC and counted; oversized writes are
// answered with INSYNC FAILED. None of them stop the dispatcher. Serve only
// returns when the host link fails or its context is cancelled between
// commands. Bus failures are logged and otherwise invisible: the host is
// expected to verify programmed memory by reading it back.
package isp
