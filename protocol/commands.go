package protocol

import (
	"fmt"
)

// BuildGetSyncCmd constructs a Get Sync command.
//
//	[CMD][EOP]
func BuildGetSyncCmd() []byte {
	return []byte{CmdGetSync, CRCEOP}
}

// BuildGetSignOnCmd constructs a Get Sign On command.
//
//	[CMD][EOP]
func BuildGetSignOnCmd() []byte {
	return []byte{CmdGetSignOn, CRCEOP}
}

// BuildGetParameterCmd constructs a Get Parameter command for one parameter code.
//
//	[CMD][PARM][EOP]
func BuildGetParameterCmd(parm byte) []byte {
	return []byte{CmdGetParameter, parm, CRCEOP}
}

// BuildSetDeviceCmd constructs a Set Device command carrying the parameter block.
//
//	[CMD][PARAMS(20)][EOP]
func BuildSetDeviceCmd(p Parameters) []byte {
	frame := make([]byte, 0, ParametersSize+2)
	frame = append(frame, CmdSetDevice)
	frame = append(frame, p.Encode()...)
	frame = append(frame, CRCEOP)
	return frame
}

// BuildSetDeviceExtCmd constructs a Set Device Extended command.
// The ext block must be exactly ExtParametersSize bytes.
//
//	[CMD][EXT(5)][EOP]
func BuildSetDeviceExtCmd(ext []byte) ([]byte, error) {
	if len(ext) != ExtParametersSize {
		return nil, fmt.Errorf("extended parameters must be exactly %d bytes, got %d", ExtParametersSize, len(ext))
	}

	frame := make([]byte, 0, ExtParametersSize+2)
	frame = append(frame, CmdSetDeviceExt)
	frame = append(frame, ext...)
	frame = append(frame, CRCEOP)
	return frame, nil
}

// BuildEnterProgModeCmd constructs an Enter Programming Mode command.
func BuildEnterProgModeCmd() []byte {
	return []byte{CmdEnterProgMode, CRCEOP}
}

// BuildLeaveProgModeCmd constructs a Leave Programming Mode command.
func BuildLeaveProgModeCmd() []byte {
	return []byte{CmdLeaveProgMode, CRCEOP}
}

// BuildLoadAddressCmd constructs a Load Address command.
// The address is a word address for flash and half the byte address for EEPROM.
//
// Unlike page lengths, the address is sent low byte first:
//
//	[CMD][ADDR_L][ADDR_H][EOP]
func BuildLoadAddressCmd(addr uint16) []byte {
	return []byte{CmdLoadAddress, byte(addr), byte(addr >> 8), CRCEOP}
}

// BuildProgramPageCmd constructs a Program Page command.
// The memory type must be MemFlash or MemEEPROM.
//
// The length is sent high byte first:
//
//	[CMD][LEN_H][LEN_L][MEMTYPE][DATA...][EOP]
func BuildProgramPageCmd(memType byte, data []byte) ([]byte, error) {
	if err := checkMemType(memType); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}
	if len(data) > MaxPageSize {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(data), MaxPageSize)
	}

	frame := make([]byte, 0, len(data)+5)
	frame = append(frame, CmdProgPage, byte(len(data)>>8), byte(len(data)), memType)
	frame = append(frame, data...)
	frame = append(frame, CRCEOP)
	return frame, nil
}

// BuildReadPageCmd constructs a Read Page command.
//
//	[CMD][LEN_H][LEN_L][MEMTYPE][EOP]
func BuildReadPageCmd(memType byte, length int) ([]byte, error) {
	if err := checkMemType(memType); err != nil {
		return nil, err
	}
	if length <= 0 || length > MaxPageSize {
		return nil, fmt.Errorf("read length %d out of range 1-%d", length, MaxPageSize)
	}

	return []byte{CmdReadPage, byte(length >> 8), byte(length), memType, CRCEOP}, nil
}

// BuildUniversalCmd constructs a Universal command that passes a raw
// serial programming instruction through to the target.
//
//	[CMD][B1][B2][B3][B4][EOP]
func BuildUniversalCmd(instr [UniversalSize]byte) []byte {
	return []byte{CmdUniversal, instr[0], instr[1], instr[2], instr[3], CRCEOP}
}

// BuildReadSignCmd constructs a Read Signature command.
func BuildReadSignCmd() []byte {
	return []byte{CmdReadSign, CRCEOP}
}

func checkMemType(memType byte) error {
	if memType != MemFlash && memType != MemEEPROM {
		return fmt.Errorf("invalid memory type 0x%02X", memType)
	}
	return nil
}
