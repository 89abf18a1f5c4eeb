// Package protocol implements the STK500 version 1 byte protocol spoken by
// AVR ISP programmers such as ArduinoISP.
//
// This package provides the wire constants shared by both ends of the link,
// functions to build host requests and parse programmer replies, and the
// device parameter block codec.
//
// # Protocol Overview
//
// Every request is a command byte, a fixed or length-prefixed payload and
// the CRCEOP marker. Replies are framed by the programmer:
//
//	Request:  [CMD][PAYLOAD...][CRC_EOP]
//	Success:  [INSYNC][RESULT...][OK]
//	Failure:  [INSYNC][FAILED]
//	Unknown:  [INSYNC][UNKNOWN]
//	Framing:  [NOSYNC]
//
// Where:
//   - CRC_EOP = 0x20
//   - INSYNC  = 0x14, NOSYNC = 0x15
//   - OK      = 0x10, FAILED = 0x11, UNKNOWN = 0x12
//
// # Byte Order
//
// Two conventions coexist and both are compatibility contracts with host
// tooling:
//   - page lengths and parameter block fields are big-endian
//   - the Load Address payload is little-endian (low byte first)
//
// # Command Builders
//
//	frame := protocol.BuildLoadAddressCmd(0x0040)
//	frame, err := protocol.BuildProgramPageCmd(protocol.MemFlash, page)
//
// # Reply Parsers
//
//	data, err := protocol.ReadReply(port, 3) // signature
//	if protocol.IsNoSync(err) {
//	    // resend after a Get Sync
//	}
package protocol
