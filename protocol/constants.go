package protocol

// ProtocolVersion is the STK500 protocol version implemented by this library.
const ProtocolVersion = "1.x"

// Framing constants per the STK500 communication protocol (AVR061).
const (
	// CRCEOP terminates every request. A request is only in sync when this
	// byte immediately follows its payload.
	CRCEOP = 0x20
)

// Command codes. Values are part of the wire contract with host tooling
// such as avrdude's "stk500v1" and "arduino" programmers.
const (
	// CmdGetSync is the sign-on and sync request. It also clears the error counter
	CmdGetSync = 0x30 // '0'

	// CmdGetSignOn returns the programmer identification string
	CmdGetSignOn = 0x31 // '1'

	// CmdGetParameter returns a single programmer parameter
	CmdGetParameter = 0x41 // 'A'

	// CmdSetDevice sends the 20-byte device parameter block
	CmdSetDevice = 0x42 // 'B'

	// CmdSetDeviceExt sends the extended parameter block (ignored)
	CmdSetDeviceExt = 0x45 // 'E'

	// CmdEnterProgMode enters serial programming mode
	CmdEnterProgMode = 0x50 // 'P'

	// CmdLeaveProgMode leaves programming mode and releases the target
	CmdLeaveProgMode = 0x51 // 'Q'

	// CmdLoadAddress sets the word address used by page commands
	CmdLoadAddress = 0x55 // 'U'

	// CmdUniversal passes a raw 4-byte serial programming instruction
	CmdUniversal = 0x56 // 'V'

	// CmdProgFlash programs a single flash word (accepted, no effect)
	CmdProgFlash = 0x60

	// CmdProgData programs a single EEPROM byte (accepted, no effect)
	CmdProgData = 0x61

	// CmdProgPage programs a block of flash or EEPROM
	CmdProgPage = 0x64

	// CmdReadPage reads a block of flash or EEPROM
	CmdReadPage = 0x74

	// CmdReadSign reads the 3-byte device signature
	CmdReadSign = 0x75
)

// Response codes.
const (
	// RespOK terminates a successful reply
	RespOK = 0x10

	// RespFailed reports a recognized but unsuccessful operation
	RespFailed = 0x11

	// RespUnknown reports an unrecognized command
	RespUnknown = 0x12

	// RespInSync opens every reply to a correctly framed request
	RespInSync = 0x14

	// RespNoSync reports a framing error (missing or wrong CRCEOP)
	RespNoSync = 0x15
)

// Parameter codes for CmdGetParameter.
const (
	ParmHWVersion      = 0x80
	ParmSWMajor        = 0x81
	ParmSWMinor        = 0x82
	ParmProgrammerType = 0x93
)

// Memory type tags for CmdProgPage and CmdReadPage.
const (
	MemFlash  = 'F'
	MemEEPROM = 'E'
)

// Programmer identification reported by CmdGetSignOn and CmdGetParameter.
const (
	// SignOnMessage is returned by CmdGetSignOn
	SignOnMessage = "AVR ISP"

	// HWVersion is the hardware version reported for ParmHWVersion
	HWVersion = 2

	// SWMajor is the firmware major version reported for ParmSWMajor
	SWMajor = 1

	// SWMinor is the firmware minor version reported for ParmSWMinor
	SWMinor = 18

	// ProgrammerTypeSerial is reported for ParmProgrammerType
	ProgrammerTypeSerial = 'S'
)

// Payload sizes.
const (
	// ParametersSize is the size of the CmdSetDevice payload
	ParametersSize = 20

	// ExtParametersSize is the size of the CmdSetDeviceExt payload
	ExtParametersSize = 5

	// SignatureSize is the number of signature bytes returned by CmdReadSign
	SignatureSize = 3

	// UniversalSize is the size of the CmdUniversal payload
	UniversalSize = 4

	// MaxPageSize is the largest block a single CmdProgPage may carry
	MaxPageSize = 256
)
